// setup.go
package rabbit

import (
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	checkoutExchange = "cart_checkout"
	checkoutQueue    = "pharma_order_service_checkout"

	pushExchange = "push_gateway"
	mailExchange = "mail_gateway"
)

// SetupConsumers engancha el consumer del checkout al exchange fanout.
func SetupConsumers(ch *amqp091.Channel, consumer *CheckoutConsumer, log zerolog.Logger) error {
	if err := ch.ExchangeDeclare(checkoutExchange, "fanout", true, false, false, false, nil); err != nil {
		log.Error().Err(err).Msg("❌ error declarando exchange")
		return err
	}

	q, err := ch.QueueDeclare(
		checkoutQueue, // cola exclusiva para este micro
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Error().Err(err).Msg("❌ error declarando queue")
		return err
	}

	err = ch.QueueBind(
		q.Name,
		"", // fanout ignora routing key
		checkoutExchange,
		false,
		nil,
	)
	if err != nil {
		log.Error().Err(err).Msg("❌ error binding exchange")
		return err
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Error().Err(err).Msg("❌ error al consumir queue")
		return err
	}

	go func() {
		for m := range msgs {
			consumer.Handle(m.Body)
		}
	}()

	log.Info().Msg("🐰 suscrito a exchange cart_checkout (fanout)")
	return nil
}

// SetupPublishers declara los exchanges de salida (push y mail).
func SetupPublishers(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(pushExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	return ch.ExchangeDeclare(mailExchange, "fanout", true, false, false, false, nil)
}
