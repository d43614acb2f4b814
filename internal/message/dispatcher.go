package message

import (
	"context"
	"errors"

	"pharma-order-service/internal/model"

	"github.com/rs/zerolog"
)

// Selector de destino de una notificación
const (
	TargetDevice = "device"
	TargetUser   = "user"
	TargetRider  = "rider"
	TargetAll    = "all"
)

var (
	ErrNoDevices = errors.New("no hay dispositivos para el destino")
	// ErrEndpointGone: el transporte informa de que el endpoint ya no existe
	// (app desinstalada). El dispatcher borra el registro del dispositivo.
	ErrEndpointGone = errors.New("endpoint gone")
)

// Notification es el mensaje lógico; el dispatcher lo resuelve a endpoints.
type Notification struct {
	AppID       string
	Target      string
	DeviceID    string
	UserID      string
	RiderID     string
	Title       string
	Message     string
	Param       string
	Key         string
	Badge       int
	Sound       string
	CollapseKey string
}

type DeviceRepository interface {
	FindByID(ctx context.Context, deviceID string) (*model.Device, error)
	FindByApp(ctx context.Context, appID string) ([]*model.Device, error)
	FindByAppAndUser(ctx context.Context, appID, userID string) ([]*model.Device, error)
	Delete(ctx context.Context, deviceID string) error
}

// PushSender es el transporte saliente. Un fallo por endpoint nunca corta
// el lote.
type PushSender interface {
	Send(ctx context.Context, platform, endpoint string, payload []byte) error
}

type Dispatcher struct {
	devices DeviceRepository
	sender  PushSender
	log     zerolog.Logger
}

func NewDispatcher(devices DeviceRepository, sender PushSender, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{devices: devices, sender: sender, log: log}
}

// Dispatch resuelve los dispositivos del destino y envía un payload por
// endpoint. Los fallos parciales se acumulan y se registran; solo la
// resolución del destino puede devolver error.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	devices, err := d.resolve(ctx, n)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return ErrNoDevices
	}

	failures := 0
	for _, dev := range devices {
		payload, err := d.buildPayload(dev.Platform, n)
		if err != nil {
			failures++
			d.log.Error().Err(err).Str("device_id", dev.DeviceID).Msg("payload inválido")
			continue
		}

		if err := d.sender.Send(ctx, dev.Platform, dev.Endpoint, payload); err != nil {
			failures++
			d.log.Error().Err(err).Str("device_id", dev.DeviceID).Msg("fallo enviando push")

			if errors.Is(err, ErrEndpointGone) {
				// App desinstalada: fuera el registro
				if derr := d.devices.Delete(ctx, dev.DeviceID); derr != nil {
					d.log.Error().Err(derr).Str("device_id", dev.DeviceID).Msg("no se pudo borrar el dispositivo")
				}
			}
		}
	}

	if failures > 0 {
		d.log.Warn().Int("failures", failures).Int("total", len(devices)).Msg("notificación con fallos parciales")
	}
	return nil
}

func (d *Dispatcher) resolve(ctx context.Context, n Notification) ([]*model.Device, error) {
	switch n.Target {
	case TargetDevice:
		dev, err := d.devices.FindByID(ctx, n.DeviceID)
		if err != nil {
			return nil, err
		}
		return []*model.Device{dev}, nil
	case TargetUser:
		return d.devices.FindByAppAndUser(ctx, n.AppID, n.UserID)
	case TargetRider:
		return d.devices.FindByAppAndUser(ctx, n.AppID, n.RiderID)
	case TargetAll:
		return d.devices.FindByApp(ctx, n.AppID)
	}
	return nil, ErrNoDevices
}

func (d *Dispatcher) buildPayload(platform string, n Notification) ([]byte, error) {
	if platform == "ios" {
		return buildIosPayload(n)
	}
	return buildAndroidPayload(n)
}
