package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharma-order-service/internal/dto"
	"pharma-order-service/internal/model"
	"pharma-order-service/internal/repository"
)

type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts map[string]*model.Alert

	// si está puesto, FindByID falla con este error
	findErr error
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: make(map[string]*model.Alert)}
}

func (r *fakeAlertRepo) Create(ctx context.Context, a *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.alerts[a.AlertID] = &cp
	return nil
}

func (r *fakeAlertRepo) FindByID(ctx context.Context, alertID string) (*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.alerts[alertID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAlertRepo) FindByOrderID(ctx context.Context, orderID string) ([]*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Alert
	for _, a := range r.alerts {
		if a.OrderID == orderID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) FindByUserID(ctx context.Context, userID string) ([]*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Alert
	for _, a := range r.alerts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) FindActivated(ctx context.Context) ([]*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Alert
	for _, a := range r.alerts {
		if a.Status == model.AlertActivated {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) UpdateStatus(ctx context.Context, alertID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[alertID]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	return nil
}

func (r *fakeAlertRepo) UpdateSchedule(ctx context.Context, alertID, status string, nextFireAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[alertID]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	a.NextFireAt = &nextFireAt
	return nil
}

func (r *fakeAlertRepo) Update(ctx context.Context, a *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[a.AlertID]; !ok {
		return repository.ErrNotFound
	}
	cp := *a
	r.alerts[a.AlertID] = &cp
	return nil
}

func (r *fakeAlertRepo) Delete(ctx context.Context, alertID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[alertID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.alerts, alertID)
	return nil
}

func (r *fakeAlertRepo) setFindErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findErr = err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func newAlertFixture(day time.Duration) (*AlertService, *fakeAlertRepo, *fakeNotifier) {
	repo := newFakeAlertRepo()
	notifier := &fakeNotifier{}
	return NewAlertService(repo, notifier, day, zerolog.Nop()), repo, notifier
}

func alertRequest() dto.CreateAlertRequest {
	return dto.CreateAlertRequest{
		OrderID:         "o1",
		ReferenceID:     "r1",
		ProductID:       "prod1",
		Title:           "Recuerda tu medicación",
		Message:         "Toca renovar el Ibuprofeno",
		Periodicity:     1,
		WarningEndAlert: 1,
	}
}

func TestCreateAlert(t *testing.T) {
	svc, _, _ := newAlertFixture(time.Hour)

	alert, err := svc.CreateAlert(context.Background(), "u1", alertRequest())
	require.NoError(t, err)
	assert.Equal(t, model.AlertWaiting, alert.Status)
	assert.Nil(t, alert.NextFireAt)
}

func TestCreateAlertDuplicada(t *testing.T) {
	svc, _, _ := newAlertFixture(time.Hour)

	_, err := svc.CreateAlert(context.Background(), "u1", alertRequest())
	require.NoError(t, err)

	_, err = svc.CreateAlert(context.Background(), "u1", alertRequest())
	assert.ErrorIs(t, err, ErrAlertExists)

	// Otra referencia del mismo pedido sí entra
	req := alertRequest()
	req.ReferenceID = "r2"
	_, err = svc.CreateAlert(context.Background(), "u1", req)
	assert.NoError(t, err)
}

func TestStartAlertsActivaYDispara(t *testing.T) {
	svc, repo, notifier := newAlertFixture(30 * time.Millisecond)

	alert, err := svc.CreateAlert(context.Background(), "u1", alertRequest())
	require.NoError(t, err)

	require.NoError(t, svc.StartAlerts(context.Background(), "o1", "u1"))

	stored, err := repo.FindByID(context.Background(), alert.AlertID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertActivated, stored.Status)
	require.NotNil(t, stored.NextFireAt)

	// Alarma de un solo aviso: dispara y queda DISABLED
	assert.Eventually(t, func() bool {
		got, err := repo.FindByID(context.Background(), alert.AlertID)
		return err == nil && got.Status == model.AlertDisabled && notifier.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartAlertsIgnoraAlarmasDeOtroUsuario(t *testing.T) {
	svc, repo, _ := newAlertFixture(time.Hour)

	alert, err := svc.CreateAlert(context.Background(), "u2", alertRequest())
	require.NoError(t, err)

	require.NoError(t, svc.StartAlerts(context.Background(), "o1", "u1"))

	stored, err := repo.FindByID(context.Background(), alert.AlertID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertWaiting, stored.Status)
}

func TestAlertaRepetitivaSeReprograma(t *testing.T) {
	svc, repo, notifier := newAlertFixture(30 * time.Millisecond)

	req := alertRequest()
	req.AlertRepeat = true
	alert, err := svc.CreateAlert(context.Background(), "u1", req)
	require.NoError(t, err)

	require.NoError(t, svc.StartAlerts(context.Background(), "o1", "u1"))

	assert.Eventually(t, func() bool { return notifier.count() >= 2 }, 2*time.Second, 10*time.Millisecond)

	// Sigue activa y con próximo disparo programado
	stored, err := repo.FindByID(context.Background(), alert.AlertID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertActivated, stored.Status)
	assert.NotNil(t, stored.NextFireAt)

	require.NoError(t, svc.DeactivateAlert(context.Background(), "u1", alert.AlertID))
}

func TestDesactivarParaElBucle(t *testing.T) {
	svc, repo, notifier := newAlertFixture(60 * time.Millisecond)

	req := alertRequest()
	req.AlertRepeat = true
	alert, err := svc.CreateAlert(context.Background(), "u1", req)
	require.NoError(t, err)

	require.NoError(t, svc.StartAlerts(context.Background(), "o1", "u1"))

	// Desactivada antes del primer tick: el bucle relee el estado y muere
	// sin disparar nada
	require.NoError(t, svc.DeactivateAlert(context.Background(), "u1", alert.AlertID))

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, notifier.count())

	stored, err := repo.FindByID(context.Background(), alert.AlertID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertDisabled, stored.Status)
}

func TestFalloDeLecturaParaElBucle(t *testing.T) {
	svc, repo, notifier := newAlertFixture(40 * time.Millisecond)

	req := alertRequest()
	req.AlertRepeat = true
	_, err := svc.CreateAlert(context.Background(), "u1", req)
	require.NoError(t, err)

	require.NoError(t, svc.StartAlerts(context.Background(), "o1", "u1"))

	assert.Eventually(t, func() bool { return notifier.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	// La base deja de responder: el bucle relee antes de cada disparo y
	// muere en su siguiente tick sin avisar a nadie
	repo.setFindErr(errors.New("mongo caído"))
	fired := notifier.count()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, fired, notifier.count())
}

func TestRearmReprogramaSinFecha(t *testing.T) {
	svc, repo, _ := newAlertFixture(time.Hour)

	alert := &model.Alert{
		AlertID:         "a1",
		UserID:          "u1",
		OrderID:         "o1",
		ReferenceID:     "r1",
		WarningEndAlert: 2,
		Status:          model.AlertActivated,
	}
	require.NoError(t, repo.Create(context.Background(), alert))

	svc.Rearm(alert)

	stored, err := repo.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, stored.NextFireAt)
	assert.True(t, stored.NextFireAt.After(time.Now().Add(time.Hour)))
}

func TestRearmIgnoraAlarmasNoActivadas(t *testing.T) {
	svc, repo, _ := newAlertFixture(time.Hour)

	alert := &model.Alert{AlertID: "a1", UserID: "u1", Status: model.AlertDisabled}
	require.NoError(t, repo.Create(context.Background(), alert))

	svc.Rearm(alert)

	stored, err := repo.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Nil(t, stored.NextFireAt)
}

func TestUpdateAlertDeOtroUsuario(t *testing.T) {
	svc, _, _ := newAlertFixture(time.Hour)

	alert, err := svc.CreateAlert(context.Background(), "u1", alertRequest())
	require.NoError(t, err)

	_, err = svc.UpdateAlert(context.Background(), "u99", alert.AlertID, dto.UpdateAlertRequest{Title: "otro"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = svc.DeleteAlert(context.Background(), "u99", alert.AlertID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDeleteAlert(t *testing.T) {
	svc, repo, _ := newAlertFixture(time.Hour)

	alert, err := svc.CreateAlert(context.Background(), "u1", alertRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAlert(context.Background(), "u1", alert.AlertID))

	_, err = repo.FindByID(context.Background(), alert.AlertID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
