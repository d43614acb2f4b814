package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharma-order-service/internal/model"
)

func TestSweeperCierraEntregadosFueraDePlazo(t *testing.T) {
	overdue := seedOrder(model.StatusPendingApproval, model.StatusInPreparation,
		model.StatusReadyToShip, model.StatusInDistribution, model.StatusDelivered)
	overdue.IsFinishedRider = true
	overdue.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)

	f := newFixture(overdue)
	alertRepo := newFakeAlertRepo()
	alertSvc := NewAlertService(alertRepo, f.notifier, time.Hour, zerolog.Nop())

	sw := NewSweeper(f.repo, alertRepo, alertSvc, f.svc, time.Minute, 24*time.Hour, zerolog.Nop())
	sw.Run()

	got, err := f.repo.FindByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, got.CurrentStatus())
	assert.True(t, got.IsFinishedUser)
}

func TestSweeperRespetaEntregadosDentroDePlazo(t *testing.T) {
	recent := seedOrder(model.StatusPendingApproval, model.StatusInPreparation,
		model.StatusReadyToShip, model.StatusInDistribution, model.StatusDelivered)
	recent.UpdatedAt = time.Now().UTC()

	f := newFixture(recent)
	alertRepo := newFakeAlertRepo()
	alertSvc := NewAlertService(alertRepo, f.notifier, time.Hour, zerolog.Nop())

	sw := NewSweeper(f.repo, alertRepo, alertSvc, f.svc, time.Minute, 24*time.Hour, zerolog.Nop())
	sw.Run()

	got, err := f.repo.FindByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, got.CurrentStatus())
}

func TestSweeperRearmaAlarmasActivadas(t *testing.T) {
	f := newFixture()
	alertRepo := newFakeAlertRepo()
	alertSvc := NewAlertService(alertRepo, f.notifier, time.Hour, zerolog.Nop())

	// Activada pero sin fecha persistida: el barrido la reprograma
	require.NoError(t, alertRepo.Create(context.Background(), &model.Alert{
		AlertID:         "a1",
		UserID:          "u1",
		OrderID:         "o1",
		WarningEndAlert: 1,
		Status:          model.AlertActivated,
	}))

	sw := NewSweeper(f.repo, alertRepo, alertSvc, f.svc, time.Minute, 24*time.Hour, zerolog.Nop())
	sw.Run()

	stored, err := alertRepo.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.NotNil(t, stored.NextFireAt)
}
