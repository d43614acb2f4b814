package service

import (
	"context"
	"sync"
	"time"

	"pharma-order-service/internal/dto"
	"pharma-order-service/internal/message"
	"pharma-order-service/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type AlertRepository interface {
	Create(ctx context.Context, a *model.Alert) error
	FindByID(ctx context.Context, alertID string) (*model.Alert, error)
	FindByOrderID(ctx context.Context, orderID string) ([]*model.Alert, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Alert, error)
	FindActivated(ctx context.Context) ([]*model.Alert, error)
	UpdateStatus(ctx context.Context, alertID, status string) error
	UpdateSchedule(ctx context.Context, alertID, status string, nextFireAt time.Time) error
	Update(ctx context.Context, a *model.Alert) error
	Delete(ctx context.Context, alertID string) error
}

// AlertService gestiona los recordatorios recurrentes. El estado vive en la
// base (status + next_fire_at); los timers en memoria son desechables y el
// barrido de recuperación los rearma tras un reinicio.
type AlertService struct {
	alerts   AlertRepository
	notifier Notifier
	log      zerolog.Logger

	// cuánto dura un "día" de alarma; se acorta en tests
	day time.Duration

	mu    sync.Mutex
	armed map[string]bool
}

func NewAlertService(alerts AlertRepository, notifier Notifier, day time.Duration, log zerolog.Logger) *AlertService {
	return &AlertService{
		alerts:   alerts,
		notifier: notifier,
		day:      day,
		log:      log,
		armed:    make(map[string]bool),
	}
}

func (s *AlertService) CreateAlert(ctx context.Context, userID string, req dto.CreateAlertRequest) (*model.Alert, error) {
	existing, err := s.alerts.FindByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.ReferenceID == req.ReferenceID {
			return nil, ErrAlertExists
		}
	}

	alert := &model.Alert{
		AlertID:         uuid.NewString(),
		UserID:          userID,
		OrderID:         req.OrderID,
		ReferenceID:     req.ReferenceID,
		ProductID:       req.ProductID,
		Title:           req.Title,
		Message:         req.Message,
		Periodicity:     req.Periodicity,
		WarningEndAlert: req.WarningEndAlert,
		AlertHour:       req.AlertHour,
		AlertRepeat:     req.AlertRepeat,
		Status:          model.AlertWaiting,
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *AlertService) UpdateAlert(ctx context.Context, userID, alertID string, req dto.UpdateAlertRequest) (*model.Alert, error) {
	alert, err := s.alerts.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.UserID != userID {
		return nil, ErrUnauthorized
	}

	alert.Title = req.Title
	alert.Message = req.Message
	alert.Periodicity = req.Periodicity
	alert.WarningEndAlert = req.WarningEndAlert
	alert.AlertHour = req.AlertHour
	alert.AlertRepeat = req.AlertRepeat

	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *AlertService) DeleteAlert(ctx context.Context, userID, alertID string) error {
	alert, err := s.alerts.FindByID(ctx, alertID)
	if err != nil {
		return err
	}
	if alert.UserID != userID {
		return ErrUnauthorized
	}
	return s.alerts.Delete(ctx, alertID)
}

func (s *AlertService) GetAlerts(ctx context.Context, userID string) ([]*model.Alert, error) {
	return s.alerts.FindByUserID(ctx, userID)
}

// DeactivateAlert marca la alarma como DISABLED. El bucle de disparo lo
// observa en su siguiente tick y se para solo; no se mata ningún timer.
func (s *AlertService) DeactivateAlert(ctx context.Context, userID, alertID string) error {
	alert, err := s.alerts.FindByID(ctx, alertID)
	if err != nil {
		return err
	}
	if alert.UserID != userID {
		return ErrUnauthorized
	}
	return s.alerts.UpdateStatus(ctx, alertID, model.AlertDisabled)
}

// StartAlerts activa las alarmas WAITING del pedido al entregarse y arma sus
// timers. La fecha del primer disparo se persiste antes de armar nada.
func (s *AlertService) StartAlerts(ctx context.Context, orderID, userID string) error {
	alerts, err := s.alerts.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	for _, alert := range alerts {
		if alert.UserID != userID || alert.Status != model.AlertWaiting {
			continue
		}

		next := time.Now().Add(s.interval(alert))
		if err := s.alerts.UpdateSchedule(ctx, alert.AlertID, model.AlertActivated, next); err != nil {
			s.log.Error().Err(err).Str("alert_id", alert.AlertID).Msg("no se pudo activar la alarma")
			continue
		}

		alert.Status = model.AlertActivated
		alert.NextFireAt = &next
		s.arm(alert)
	}
	return nil
}

// Rearm reconstruye el timer de una alarma ACTIVATED tras un reinicio.
func (s *AlertService) Rearm(alert *model.Alert) {
	if alert.Status != model.AlertActivated {
		return
	}
	if alert.NextFireAt == nil {
		next := time.Now().Add(s.interval(alert))
		if err := s.alerts.UpdateSchedule(context.Background(), alert.AlertID, model.AlertActivated, next); err != nil {
			s.log.Error().Err(err).Str("alert_id", alert.AlertID).Msg("no se pudo reprogramar la alarma")
			return
		}
		alert.NextFireAt = &next
	}
	s.arm(alert)
}

func (s *AlertService) interval(a *model.Alert) time.Duration {
	d := time.Duration(a.WarningEndAlert) * s.day
	if d <= 0 {
		d = s.day
	}
	return d
}

func (s *AlertService) arm(alert *model.Alert) {
	if !s.markArmed(alert.AlertID) {
		return // ya hay un timer vivo para esta alarma
	}

	delay := time.Until(*alert.NextFireAt)
	if delay < 0 {
		delay = time.Second
	}

	if !alert.AlertRepeat {
		a := *alert
		time.AfterFunc(delay, func() {
			defer s.unmarkArmed(a.AlertID)
			s.fireOnce(&a)
		})
		return
	}

	go s.repeatLoop(*alert, delay)
}

// fireOnce: alarma de un solo aviso. Dispara y queda DISABLED.
func (s *AlertService) fireOnce(alert *model.Alert) {
	s.dispatch(alert)
	if err := s.alerts.UpdateStatus(context.Background(), alert.AlertID, model.AlertDisabled); err != nil {
		s.log.Error().Err(err).Str("alert_id", alert.AlertID).Msg("no se pudo desactivar la alarma")
	}
}

// repeatLoop: alarma repetitiva. Antes de cada disparo relee el estado; si ya
// no está ACTIVATED, o la lectura falla, el bucle muere sin avisar a nadie
// (mejor callar que duplicar).
func (s *AlertService) repeatLoop(alert model.Alert, initial time.Duration) {
	defer s.unmarkArmed(alert.AlertID)

	interval := s.interval(&alert)
	timer := time.NewTimer(initial)
	defer timer.Stop()

	for {
		<-timer.C

		current, err := s.alerts.FindByID(context.Background(), alert.AlertID)
		if err != nil {
			return
		}
		if current.Status != model.AlertActivated {
			return
		}

		s.dispatch(current)

		next := time.Now().Add(interval)
		if err := s.alerts.UpdateSchedule(context.Background(), alert.AlertID, model.AlertActivated, next); err != nil {
			s.log.Error().Err(err).Str("alert_id", alert.AlertID).Msg("no se pudo reprogramar la alarma")
		}
		timer.Reset(interval)
	}
}

func (s *AlertService) dispatch(alert *model.Alert) {
	n := message.Notification{
		AppID:   model.AppClient,
		Target:  message.TargetUser,
		UserID:  alert.UserID,
		Param:   alert.ProductID,
		Title:   alert.Title,
		Message: alert.Message,
	}
	if err := s.notifier.Dispatch(context.Background(), n); err != nil {
		s.log.Error().Err(err).Str("alert_id", alert.AlertID).Msg("fallo enviando la alarma")
	}
}

func (s *AlertService) markArmed(alertID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed[alertID] {
		return false
	}
	s.armed[alertID] = true
	return true
}

func (s *AlertService) unmarkArmed(alertID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.armed, alertID)
}
