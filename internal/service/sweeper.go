package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper reconcilia el estado persistido con los timers en memoria: rearma
// las alarmas ACTIVATED y cierra los pedidos entregados fuera de plazo.
// Corre al arrancar (los timers no sobreviven a un reinicio) y de forma
// periódica por si algún timer se perdió.
type Sweeper struct {
	orders   OrderRepository
	alerts   AlertRepository
	alertSvc *AlertService
	orderSvc *OrderService
	log      zerolog.Logger

	interval time.Duration
	timeout  time.Duration
	cron     *cron.Cron
}

func NewSweeper(orders OrderRepository, alerts AlertRepository, alertSvc *AlertService,
	orderSvc *OrderService, interval, timeout time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		orders:   orders,
		alerts:   alerts,
		alertSvc: alertSvc,
		orderSvc: orderSvc,
		interval: interval,
		timeout:  timeout,
		log:      log,
	}
}

func (s *Sweeper) Start() error {
	s.Run()

	c := cron.New()
	if _, err := c.AddFunc("@every "+s.interval.String(), s.Run); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Sweeper) Run() {
	ctx := context.Background()

	alerts, err := s.alerts.FindActivated(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("barrido: no se pudieron leer las alarmas activas")
	} else {
		for _, alert := range alerts {
			s.alertSvc.Rearm(alert)
		}
	}

	cutoff := time.Now().UTC().Add(-s.timeout)
	overdue, err := s.orders.FindOverdueDelivered(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("barrido: no se pudieron leer los pedidos fuera de plazo")
		return
	}

	for _, order := range overdue {
		if err := s.orderSvc.ForceFinish(ctx, order.OrderID); err != nil {
			s.log.Error().Err(err).Str("order_id", order.OrderID).Msg("barrido: fallo auto-cerrando")
		} else {
			s.log.Info().Str("order_id", order.OrderID).Msg("pedido auto-cerrado por el barrido")
		}
	}
}
