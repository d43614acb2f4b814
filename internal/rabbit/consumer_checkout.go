package rabbit

import (
	"context"
	"encoding/json"

	"pharma-order-service/internal/dto"
	"pharma-order-service/internal/model"

	"github.com/rs/zerolog"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*model.Order, error)
}

type CheckoutConsumer struct {
	creator OrderCreator
	log     zerolog.Logger
}

func NewCheckoutConsumer(creator OrderCreator, log zerolog.Logger) *CheckoutConsumer {
	return &CheckoutConsumer{creator: creator, log: log}
}

// Mensaje del checkout del carrito, publicado por el servicio de usuarios
type CartCheckoutMessage struct {
	CorrelationID string                 `json:"correlation_id"`
	Message       dto.CreateOrderRequest `json:"message"`
}

func (c *CheckoutConsumer) Handle(msg []byte) error {
	c.log.Info().Msg("[Rabbit] Evento recibido: cart_checkout")

	var event CartCheckoutMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		c.log.Error().Err(err).Msg("error parseando mensaje")
		return err
	}

	order, err := c.creator.CreateOrder(context.Background(), event.Message)
	if err != nil {
		c.log.Error().Err(err).Msg("❌ error creando el pedido")
		return err
	}

	c.log.Info().Str("order_id", order.OrderID).Str("order_code", order.OrderCode).
		Msg("✔ pedido creado desde el checkout")
	return nil
}
