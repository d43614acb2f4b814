package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharma-order-service/internal/dto"
	"pharma-order-service/internal/message"
	"pharma-order-service/internal/model"
	"pharma-order-service/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Interfaz que debe implementar repository
type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	AppendTracking(ctx context.Context, orderID string, upd repository.TrackingUpdate) error
	AssignRider(ctx context.Context, orderID string, rider model.RiderSnapshot) error
	ClearRider(ctx context.Context, orderID string) error
	SetPayment(ctx context.Context, orderID string, payment model.Payment) error
	SetProcess(ctx context.Context, orderID string, process bool) error
	SetFinishedUser(ctx context.Context, orderID string) error
	FindByUserID(ctx context.Context, userID string) ([]*model.Order, error)
	FindByProviderID(ctx context.Context, providerID string) ([]*model.Order, error)
	FindByRiderID(ctx context.Context, riderID string) ([]*model.Order, error)
	FindUnassigned(ctx context.Context) ([]*model.Order, error)
	FindOverdueDelivered(ctx context.Context, cutoff time.Time) ([]*model.Order, error)
}

// Colaboradores externos, solo por interfaz
type Accounts interface {
	ResolveUser(ctx context.Context, userID string) (*UserAccount, error)
	ResolveProvider(ctx context.Context, providerID string) (*ProviderAccount, error)
	ResolveRider(ctx context.Context, riderID string) (*RiderAccount, error)
}

type PaymentProcessor interface {
	Charge(ctx context.Context, amount float64, customerID, account string) (string, error)
	LastFour(ctx context.Context, customerID string) (string, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, n message.Notification) error
}

type Mailer interface {
	SendMail(ctx context.Context, to, subject, template string, data map[string]string) error
}

type AlertStarter interface {
	StartAlerts(ctx context.Context, orderID, userID string) error
}

// Reintentos acotados cuando perdemos la carrera del tracking
const (
	casMaxRetries = 3
	casRetryDelay = 50 * time.Millisecond
)

// errNoAppend: la operación decide que no hay evento que añadir (p.ej. el
// usuario finaliza antes que el rider). No es un error para el caller.
var errNoAppend = errors.New("sin evento que añadir")

type OrderService struct {
	orders   OrderRepository
	accounts Accounts
	payments PaymentProcessor
	notifier Notifier
	mailer   Mailer
	alerts   AlertStarter
	log      zerolog.Logger

	finishTimeout time.Duration
}

func NewOrderService(orders OrderRepository, accounts Accounts, payments PaymentProcessor,
	notifier Notifier, mailer Mailer, alerts AlertStarter, finishTimeout time.Duration,
	log zerolog.Logger) *OrderService {
	return &OrderService{
		orders:        orders,
		accounts:      accounts,
		payments:      payments,
		notifier:      notifier,
		mailer:        mailer,
		alerts:        alerts,
		finishTimeout: finishTimeout,
		log:           log,
	}
}

// actorOwnsOrder es el único sitio donde se decide si un actor puede tocar
// un pedido. Todas las transiciones pasan por aquí.
func actorOwnsOrder(actor Actor, o *model.Order) bool {
	switch actor.Scope {
	case ScopeAdmin:
		return true
	case ScopeUser:
		return o.User.UserID == actor.ID
	case ScopeProvider:
		return o.Provider.ProviderID == actor.ID
	case ScopeRider:
		// Un pedido sin rider es visible para cualquier rider
		return o.Rider == nil || o.Rider.RiderID == actor.ID
	}
	return false
}

// appendTransition carga el pedido, deja que decide valide precondiciones y
// construya el evento, y lo añade con la actualización condicional. Si otro
// escritor ganó la carrera se recarga y revalida, con reintentos acotados.
func (s *OrderService) appendTransition(ctx context.Context, orderID string,
	decide func(o *model.Order) (repository.TrackingUpdate, error)) (*model.Order, error) {

	var result *model.Order

	op := func() error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return backoff.Permanent(err)
		}

		upd, err := decide(order)
		if err != nil {
			if errors.Is(err, errNoAppend) {
				result = order
				return nil
			}
			return backoff.Permanent(err)
		}

		upd.FromLen = len(order.Tracking)
		if err := s.orders.AppendTracking(ctx, orderID, upd); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return err // reintenta: recarga y revalida
			}
			return backoff.Permanent(err)
		}

		order.Tracking = append(order.Tracking, upd.Event)
		order.LastStatus = upd.Event.Status
		if upd.SetFinishedRider {
			order.IsFinishedRider = true
		}
		if upd.SetFinishedUser {
			order.IsFinishedUser = true
		}
		if upd.ClearRider {
			order.Rider = nil
		}
		if upd.Products != nil {
			order.Products = *upd.Products
		}
		result = order
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(casRetryDelay), casMaxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// La contención se resuelve aquí dentro o no se resuelve: para el
			// caller es un fallo interno, no un conflicto que pueda corregir
			return nil, fmt.Errorf("pedido %s: contención no resuelta tras %d reintentos", orderID, casMaxRetries)
		}
		return nil, err
	}
	return result, nil
}

func trackingEvent(status string) model.TrackingEvent {
	return model.TrackingEvent{Status: status, DateTime: time.Now().UTC()}
}

// CreateOrder crea el pedido desde un carrito cerrado (API o Rabbit).
func (s *OrderService) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrBadItems
	}

	provider, err := s.accounts.ResolveProvider(ctx, req.Delivery.ProviderID)
	if err != nil {
		return nil, err
	}
	if provider.StripeAccount == "" {
		return nil, ErrNoPayoutAccount
	}

	products := model.Products{Items: make([]model.OrderItem, 0, len(req.Items))}
	for _, it := range req.Items {
		// Un producto con receta obligatoria tiene que traerla ya subida
		if it.PrescriptionRequired && it.Prescription.PrescriptionID == "" {
			return nil, ErrBadItems
		}
		products.Items = append(products.Items, model.OrderItem{
			ReferenceID:          it.ReferenceID,
			ProductID:            it.ProductID,
			Name:                 it.Name,
			Qty:                  it.Qty,
			PVP:                  it.PVP,
			PrescriptionRequired: it.PrescriptionRequired,
			Prescription: model.Prescription{
				PrescriptionID: it.Prescription.PrescriptionID,
				Status:         it.Prescription.Status,
				Observation:    it.Prescription.Observation,
			},
		})
	}
	recalculateProducts(&products)

	now := time.Now().UTC()
	order := &model.Order{
		OrderID:    uuid.NewString(),
		OrderCode:  generateCode(8),
		OrderDate:  now,
		LastStatus: model.StatusPendingApproval,
		Tracking:   []model.TrackingEvent{{Status: model.StatusPendingApproval, DateTime: now}},
		User: model.UserSnapshot{
			UserID:      req.User.UserID,
			Name:        req.User.Name,
			PhoneNumber: req.User.PhoneNumber,
			Address:     req.User.Address,
			Address2:    req.User.Address2,
		},
		Provider: model.ProviderSnapshot{
			ProviderID:  provider.ProviderID,
			Name:        provider.Name,
			PhoneNumber: provider.PhoneNumber,
			Address:     provider.Address,
			Address2:    provider.Address2,
		},
		Delivery: model.Delivery{
			Name:        req.Delivery.Name,
			Address:     req.Delivery.Address,
			Address2:    req.Delivery.Address2,
			PhoneNumber: req.Delivery.PhoneNumber,
			DesiredTime: req.Delivery.DesiredTime,
			ProviderID:  provider.ProviderID,
		},
		Products: products,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	// Aviso al proveedor fuera del camino crítico
	go func() {
		data := map[string]string{
			"nameProvider": provider.Name,
			"name":         order.Delivery.Name,
			"desiredTime":  order.Delivery.DesiredTime,
			"address":      order.Delivery.Address,
			"address2":     order.Delivery.Address2,
		}
		if err := s.mailer.SendMail(context.Background(), provider.Email,
			"TelePharma - Ha sido creado un nuevo pedido", "createdOrder", data); err != nil {
			s.log.Error().Err(err).Str("order_id", order.OrderID).Msg("fallo enviando mail al proveedor")
		}
	}()

	return order, nil
}

// ValidateOrder: el proveedor acepta o rechaza el pedido revisando las líneas.
func (s *OrderService) ValidateOrder(ctx context.Context, actor Actor, orderID string, req dto.ValidateOrderRequest) (*model.Order, error) {
	accepted := req.Accepted != nil && *req.Accepted

	order, err := s.appendTransition(ctx, orderID, func(o *model.Order) (repository.TrackingUpdate, error) {
		if !actorOwnsOrder(actor, o) {
			return repository.TrackingUpdate{}, ErrUnauthorized
		}
		if o.CurrentStatus() != model.StatusPendingApproval {
			return repository.TrackingUpdate{}, ErrPreconditionFailed
		}

		products := o.Products
		items := make([]model.OrderItem, len(products.Items))
		copy(items, products.Items)

		for _, reviewed := range req.Items {
			idx := -1
			for i := range items {
				if items[i].ReferenceID == reviewed.ReferenceID {
					idx = i
					break
				}
			}
			if idx == -1 {
				return repository.TrackingUpdate{}, ErrBadItems
			}
			items[idx].PVP = reviewed.PVP
			items[idx].Comments = reviewed.Comments
			items[idx].Prescription.Status = reviewed.PrescriptionStatus
		}
		products.Items = items
		recalculateProducts(&products)

		status := model.StatusCancelled
		if accepted {
			status = model.StatusInPreparation
		}

		return repository.TrackingUpdate{
			Event:    trackingEvent(status),
			Products: &products,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyUser(order, "Pedido Validado", "Informamos que su pedido ha sido validado")
	return order, nil
}

// PreparateOrder: el pedido queda listo para enviar y se avisa a todos los
// riders de la app.
func (s *OrderService) PreparateOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	order, err := s.appendTransition(ctx, orderID, func(o *model.Order) (repository.TrackingUpdate, error) {
		if !actorOwnsOrder(actor, o) {
			return repository.TrackingUpdate{}, ErrUnauthorized
		}
		if o.CurrentStatus() != model.StatusInPreparation {
			return repository.TrackingUpdate{}, ErrPreconditionFailed
		}
		return repository.TrackingUpdate{Event: trackingEvent(model.StatusReadyToShip)}, nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchAsync(message.Notification{
		AppID:   model.AppRider,
		Target:  message.TargetAll,
		Title:   "Pedido Preparado",
		Message: "Informamos que hay un nuevo pedido disponible para poder ser asignado",
	}, orderID)

	return order, nil
}

// AssignOrder engancha al rider que llama. El primero que escribe gana; el
// perdedor de la carrera recibe ErrConflict.
func (s *OrderService) AssignOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Rider != nil {
		return nil, ErrConflict
	}

	switch order.CurrentStatus() {
	case model.StatusPendingApproval, model.StatusInPreparation:
		return nil, ErrPreconditionFailed
	case model.StatusFinished, model.StatusCancelled:
		return nil, ErrPreconditionFailed
	}

	rider, err := s.accounts.ResolveRider(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	snapshot := model.RiderSnapshot{
		RiderID:     rider.RiderID,
		Name:        rider.Name,
		PhoneNumber: rider.PhoneNumber,
	}

	if err := s.orders.AssignRider(ctx, orderID, snapshot); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, err
	}

	order.Rider = &snapshot
	return order, nil
}

// UnassignOrder suelta el pedido. Si no está cancelado ni en preparación se
// vuelve a publicar como listo para enviar; en ese caso el rider se
// desengancha en la misma actualización condicional que el evento.
func (s *OrderService) UnassignOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	return s.appendTransition(ctx, orderID, func(o *model.Order) (repository.TrackingUpdate, error) {
		if o.Rider != nil && !actorOwnsOrder(actor, o) {
			return repository.TrackingUpdate{}, ErrUnauthorized
		}

		last := o.CurrentStatus()
		if last == model.StatusCancelled || last == model.StatusInPreparation {
			if err := s.orders.ClearRider(ctx, orderID); err != nil {
				return repository.TrackingUpdate{}, err
			}
			o.Rider = nil
			return repository.TrackingUpdate{}, errNoAppend
		}

		return repository.TrackingUpdate{
			Event:      trackingEvent(model.StatusReadyToShip),
			ClearRider: true,
		}, nil
	})
}

// CollectOrder: el rider recoge el pedido en la farmacia.
func (s *OrderService) CollectOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	order, err := s.appendTransition(ctx, orderID, func(o *model.Order) (repository.TrackingUpdate, error) {
		if !actorOwnsOrder(actor, o) {
			return repository.TrackingUpdate{}, ErrUnauthorized
		}
		if o.CurrentStatus() != model.StatusReadyToShip {
			return repository.TrackingUpdate{}, ErrPreconditionFailed
		}
		return repository.TrackingUpdate{Event: trackingEvent(model.StatusInDistribution)}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyUser(order, "Pedido en Distribución", "Informamos que su pedido se está distribuyendo")
	return order, nil
}

// DeliveryOrder: entrega al usuario. Sin pago capturado no hay entrega.
// Dispara las alarmas del pedido y arma el auto-cierre diferido.
func (s *OrderService) DeliveryOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	order, err := s.appendTransition(ctx, orderID, func(o *model.Order) (repository.TrackingUpdate, error) {
		if !actorOwnsOrder(actor, o) {
			return repository.TrackingUpdate{}, ErrUnauthorized
		}
		if o.CurrentStatus() != model.StatusInDistribution {
			return repository.TrackingUpdate{}, ErrPreconditionFailed
		}
		if o.Payment == nil {
			return repository.TrackingUpdate{}, ErrUnpaidOrder
		}
		return repository.TrackingUpdate{
			Event:            trackingEvent(model.StatusDelivered),
			SetFinishedRider: true,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyUser(order, "Pedido Entregado", "Informamos que su pedido ha sido entregado")

	// Entregado el pedido arrancan sus alarmas
	if err := s.alerts.StartAlerts(context.Background(), order.OrderID, order.User.UserID); err != nil {
		s.log.Error().Err(err).Str("order_id", order.OrderID).Msg("fallo arrancando alarmas")
	}

	// Cierre automático si el usuario nunca confirma. El barrido de
	// recuperación cubre este timer si el proceso se reinicia.
	orderIDCopy := order.OrderID
	time.AfterFunc(s.finishTimeout, func() {
		if err := s.ForceFinish(context.Background(), orderIDCopy); err != nil {
			s.log.Error().Err(err).Str("order_id", orderIDCopy).Msg("fallo en el auto-cierre")
		}
	})

	return order, nil
}

// Pay captura el cobro del pedido a través del procesador externo.
func (s *OrderService) Pay(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !actorOwnsOrder(actor, order) {
		return nil, ErrUnauthorized
	}
	if order.Payment != nil {
		return nil, ErrAlreadyPaid
	}
	if order.IsTerminal() {
		return nil, ErrPreconditionFailed
	}

	user, err := s.accounts.ResolveUser(ctx, order.User.UserID)
	if err != nil {
		return nil, err
	}
	if user.CustomerID == "" || user.CardID == "" {
		return nil, ErrNoCard
	}

	provider, err := s.accounts.ResolveProvider(ctx, order.Provider.ProviderID)
	if err != nil {
		return nil, err
	}
	if provider.StripeAccount == "" {
		return nil, ErrNoPayoutAccount
	}

	status, err := s.payments.Charge(ctx, order.Products.Subtotal, user.CustomerID, provider.StripeAccount)
	if err != nil {
		return nil, err
	}
	if status != "succeeded" {
		return nil, ErrChargeFailed
	}

	lastFour, err := s.payments.LastFour(ctx, user.CustomerID)
	if err != nil {
		// El cobro ya pasó: registramos el pago con la tarjeta sin dígitos
		s.log.Error().Err(err).Str("order_id", orderID).Msg("no se pudieron leer los últimos dígitos")
		lastFour = ""
	}

	payment := model.Payment{
		Card:     "****" + lastFour,
		DateTime: time.Now().UTC(),
	}

	if err := s.orders.SetPayment(ctx, orderID, payment); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyPaid
		}
		return nil, err
	}

	order.Payment = &payment
	order.IsPaid = true
	return order, nil
}

// FinishOrder: confirmación del usuario. Solo cierra el tracking cuando el
// rider ya terminó su parte; las flags de cierre son idempotentes.
func (s *OrderService) FinishOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	return s.appendTransition(ctx, orderID, func(o *model.Order) (repository.TrackingUpdate, error) {
		if !actorOwnsOrder(actor, o) {
			return repository.TrackingUpdate{}, ErrUnauthorized
		}
		if o.CurrentStatus() != model.StatusDelivered {
			return repository.TrackingUpdate{}, ErrPreconditionFailed
		}

		if !o.IsFinishedRider {
			if err := s.orders.SetFinishedUser(ctx, orderID); err != nil {
				return repository.TrackingUpdate{}, err
			}
			o.IsFinishedUser = true
			return repository.TrackingUpdate{}, errNoAppend
		}

		return repository.TrackingUpdate{
			Event:           trackingEvent(model.StatusFinished),
			SetFinishedUser: true,
		}, nil
	})
}

// ForceFinish cierra un pedido entregado que el usuario nunca confirmó.
// Lo invocan el timer diferido y el barrido de recuperación; repetirlo no
// tiene efecto.
func (s *OrderService) ForceFinish(ctx context.Context, orderID string) error {
	_, err := s.appendTransition(ctx, orderID, func(o *model.Order) (repository.TrackingUpdate, error) {
		if o.CurrentStatus() != model.StatusDelivered || o.IsFinishedUser {
			return repository.TrackingUpdate{}, errNoAppend
		}
		return repository.TrackingUpdate{
			Event:           trackingEvent(model.StatusFinished),
			SetFinishedUser: true,
		}, nil
	})
	return err
}

// CancelOrder: cancelación de triaje. Solo antes de que el rider tenga la
// mercancía; a partir de IN_DISTRIBUTION ya no se cancela por admin.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	return s.appendTransition(ctx, orderID, func(o *model.Order) (repository.TrackingUpdate, error) {
		if !actorOwnsOrder(actor, o) {
			return repository.TrackingUpdate{}, ErrUnauthorized
		}
		switch o.CurrentStatus() {
		case model.StatusPendingApproval, model.StatusInPreparation, model.StatusReadyToShip:
			return repository.TrackingUpdate{Event: trackingEvent(model.StatusCancelled)}, nil
		}
		return repository.TrackingUpdate{}, ErrPreconditionFailed
	})
}

// ProcessOrder cambia la flag de triaje del back-office. No toca el tracking.
func (s *OrderService) ProcessOrder(ctx context.Context, orderID string, process bool) (*model.Order, error) {
	if err := s.orders.SetProcess(ctx, orderID, process); err != nil {
		return nil, err
	}
	return s.orders.FindByID(ctx, orderID)
}

// GetOrder devuelve el detalle comprobando que el actor tiene acceso.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actorOwnsOrder(actor, order) {
		return nil, ErrUnauthorized
	}
	return order, nil
}

func (s *OrderService) GetOrdersForActor(ctx context.Context, actor Actor) ([]*model.Order, error) {
	switch actor.Scope {
	case ScopeUser:
		return s.orders.FindByUserID(ctx, actor.ID)
	case ScopeProvider:
		return s.orders.FindByProviderID(ctx, actor.ID)
	case ScopeRider:
		return s.orders.FindByRiderID(ctx, actor.ID)
	}
	return nil, ErrUnauthorized
}

// GetUnassignedOrders: pedidos listos para enviar que cualquier rider puede
// reclamar.
func (s *OrderService) GetUnassignedOrders(ctx context.Context) ([]*model.Order, error) {
	return s.orders.FindUnassigned(ctx)
}

// Notificaciones: siempre después de persistir y nunca bloqueando la
// respuesta. Un fallo aquí se registra y se traga.
func (s *OrderService) notifyUser(order *model.Order, title, msg string) {
	s.dispatchAsync(message.Notification{
		AppID:   model.AppClient,
		Target:  message.TargetUser,
		UserID:  order.User.UserID,
		Param:   order.OrderID,
		Title:   title,
		Message: msg,
	}, order.OrderID)
}

func (s *OrderService) dispatchAsync(n message.Notification, orderID string) {
	go func() {
		if err := s.notifier.Dispatch(context.Background(), n); err != nil {
			s.log.Error().Err(err).Str("order_id", orderID).Msg("fallo notificando")
		}
	}()
}

func recalculateProducts(products *model.Products) {
	products.Qty = len(products.Items)
	subtotal := 0.0
	for _, i := range products.Items {
		subtotal += float64(i.Qty) * i.PVP
	}
	products.Subtotal = roundDecimal(subtotal)
}
