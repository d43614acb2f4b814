package message

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharma-order-service/internal/model"
	"pharma-order-service/internal/repository"
)

type fakeDeviceRepo struct {
	devices map[string]*model.Device
	deleted []string
}

func newFakeDeviceRepo(devices ...*model.Device) *fakeDeviceRepo {
	r := &fakeDeviceRepo{devices: make(map[string]*model.Device)}
	for _, d := range devices {
		r.devices[d.DeviceID] = d
	}
	return r
}

func (r *fakeDeviceRepo) FindByID(ctx context.Context, deviceID string) (*model.Device, error) {
	d, ok := r.devices[deviceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (r *fakeDeviceRepo) FindByApp(ctx context.Context, appID string) ([]*model.Device, error) {
	var out []*model.Device
	for _, d := range r.devices {
		if d.AppID == appID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) FindByAppAndUser(ctx context.Context, appID, userID string) ([]*model.Device, error) {
	var out []*model.Device
	for _, d := range r.devices {
		if d.AppID == appID && d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) Delete(ctx context.Context, deviceID string) error {
	delete(r.devices, deviceID)
	r.deleted = append(r.deleted, deviceID)
	return nil
}

type sentPush struct {
	platform string
	endpoint string
	payload  []byte
}

type fakeSender struct {
	sent []sentPush
	// endpoints que fallan con el error indicado
	failing map[string]error
}

func (s *fakeSender) Send(ctx context.Context, platform, endpoint string, payload []byte) error {
	if err, ok := s.failing[endpoint]; ok {
		return err
	}
	s.sent = append(s.sent, sentPush{platform: platform, endpoint: endpoint, payload: payload})
	return nil
}

func device(id, app, user, platform, endpoint string) *model.Device {
	return &model.Device{DeviceID: id, AppID: app, UserID: user, Platform: platform, Endpoint: endpoint}
}

func TestDispatchUser(t *testing.T) {
	repo := newFakeDeviceRepo(
		device("d1", model.AppClient, "u1", "android", "ep-android"),
		device("d2", model.AppClient, "u1", "ios", "ep-ios"),
		device("d3", model.AppClient, "u2", "android", "ep-otro"),
	)
	sender := &fakeSender{}
	d := NewDispatcher(repo, sender, zerolog.Nop())

	err := d.Dispatch(context.Background(), Notification{
		AppID:   model.AppClient,
		Target:  TargetUser,
		UserID:  "u1",
		Title:   "Pedido Validado",
		Message: "Informamos que su pedido ha sido validado",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 2) // solo los dispositivos de u1
}

func TestDispatchPayloadsPorPlataforma(t *testing.T) {
	repo := newFakeDeviceRepo(
		device("d1", model.AppClient, "u1", "android", "ep-android"),
		device("d2", model.AppClient, "u1", "ios", "ep-ios"),
	)
	sender := &fakeSender{}
	d := NewDispatcher(repo, sender, zerolog.Nop())

	err := d.Dispatch(context.Background(), Notification{
		AppID:   model.AppClient,
		Target:  TargetUser,
		UserID:  "u1",
		Title:   "Pedido Entregado",
		Message: "Informamos que su pedido ha sido entregado",
		Param:   "o1",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 2)

	for _, push := range sender.sent {
		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(push.payload, &body))

		switch push.platform {
		case "ios":
			assert.Contains(t, body, "aps")
		case "android":
			assert.Contains(t, body, "data")
			assert.Contains(t, body, "collapseKey")
		default:
			t.Fatalf("plataforma inesperada: %s", push.platform)
		}
	}
}

func TestDispatchSinDispositivos(t *testing.T) {
	d := NewDispatcher(newFakeDeviceRepo(), &fakeSender{}, zerolog.Nop())

	err := d.Dispatch(context.Background(), Notification{
		AppID:  model.AppClient,
		Target: TargetUser,
		UserID: "u1",
	})
	assert.ErrorIs(t, err, ErrNoDevices)
}

func TestDispatchFalloParcialNoCortaElLote(t *testing.T) {
	repo := newFakeDeviceRepo(
		device("d1", model.AppRider, "r1", "android", "ep-1"),
		device("d2", model.AppRider, "r2", "android", "ep-2"),
		device("d3", model.AppRider, "r3", "android", "ep-3"),
	)
	sender := &fakeSender{failing: map[string]error{"ep-2": errors.New("gateway caído")}}
	d := NewDispatcher(repo, sender, zerolog.Nop())

	err := d.Dispatch(context.Background(), Notification{
		AppID:   model.AppRider,
		Target:  TargetAll,
		Message: "Hay un nuevo pedido disponible",
	})
	require.NoError(t, err) // el fallo parcial se registra, no se propaga
	assert.Len(t, sender.sent, 2)
	assert.Empty(t, repo.deleted) // un fallo normal no borra el registro
}

func TestDispatchEndpointDesaparecidoBorraElDispositivo(t *testing.T) {
	repo := newFakeDeviceRepo(
		device("d1", model.AppClient, "u1", "android", "ep-vivo"),
		device("d2", model.AppClient, "u1", "android", "ep-muerto"),
	)
	sender := &fakeSender{failing: map[string]error{"ep-muerto": ErrEndpointGone}}
	d := NewDispatcher(repo, sender, zerolog.Nop())

	err := d.Dispatch(context.Background(), Notification{
		AppID:  model.AppClient,
		Target: TargetUser,
		UserID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, repo.deleted)
	assert.Len(t, sender.sent, 1)
}

func TestDispatchDispositivoConcreto(t *testing.T) {
	repo := newFakeDeviceRepo(device("d1", model.AppClient, "u1", "ios", "ep-1"))
	sender := &fakeSender{}
	d := NewDispatcher(repo, sender, zerolog.Nop())

	err := d.Dispatch(context.Background(), Notification{
		Target:   TargetDevice,
		DeviceID: "d1",
		Message:  "prueba",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ep-1", sender.sent[0].endpoint)
}
