package services

import (
	"regexp"
	"testing"
	"time"

	"repairshop-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, st := range models.AllStatuses {
		got, err := ParseStatus(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}

	_, err := ParseStatus("lost")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestApplyTransitionStampsStartOnce(t *testing.T) {
	actor := uuid.New()
	r := &models.Repair{ID: uuid.New(), Status: models.StatusDiagnosing}
	t1 := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(3 * time.Hour)

	h1, err := ApplyTransition(r, TransitionRequest{Status: models.StatusRepairing}, actor, t1)
	require.NoError(t, err)
	h2, err := ApplyTransition(r, TransitionRequest{Status: models.StatusRepairing, Notes: "still on it"}, actor, t2)
	require.NoError(t, err)

	assert.Equal(t, t1, *r.StartedAt)
	assert.Equal(t, models.StatusRepairing, h1.Status)
	assert.Equal(t, "still on it", h2.Notes)
	assert.Equal(t, actor, *h2.ChangedBy)
	assert.Equal(t, t2, h2.CreatedAt)
}

func TestApplyTransitionCompletedAtSetOnce(t *testing.T) {
	actor := uuid.New()
	r := &models.Repair{Status: models.StatusQualityCheck, WarrantyDays: 30}
	ready := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	delivered := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	_, err := ApplyTransition(r, TransitionRequest{Status: models.StatusReady}, actor, ready)
	require.NoError(t, err)
	_, err = ApplyTransition(r, TransitionRequest{Status: models.StatusDelivered, Signature: "data:image/png;base64,AAA"}, actor, delivered)
	require.NoError(t, err)

	assert.Equal(t, ready, *r.CompletedAt)
	assert.Equal(t, delivered, *r.DeliveredAt)
	assert.Equal(t, time.Date(2024, 2, 9, 10, 0, 0, 0, time.UTC), *r.WarrantyExpires)
	assert.Equal(t, "data:image/png;base64,AAA", r.SignatureDelivery)
}

func TestApplyTransitionRejections(t *testing.T) {
	actor := uuid.New()
	now := time.Now()

	t.Run("delivery needs a signature", func(t *testing.T) {
		r := &models.Repair{Status: models.StatusReady}
		_, err := ApplyTransition(r, TransitionRequest{Status: models.StatusDelivered}, actor, now)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "signature", verr.Field)
		assert.Equal(t, models.StatusReady, r.Status)
		assert.Nil(t, r.DeliveredAt)
	})

	t.Run("terminal states are final", func(t *testing.T) {
		for _, st := range []models.RepairStatus{models.StatusDelivered, models.StatusCancelled} {
			r := &models.Repair{Status: st, SignatureDelivery: "sig"}
			_, err := ApplyTransition(r, TransitionRequest{Status: models.StatusDelivered, Signature: "sig"}, actor, now)
			assert.Error(t, err)
			assert.Equal(t, st, r.Status)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		r := &models.Repair{Status: models.StatusReceived}
		_, err := ApplyTransition(r, TransitionRequest{Status: "teleported"}, actor, now)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestApplyTransitionSchedulesPickup(t *testing.T) {
	r := &models.Repair{Status: models.StatusReady}
	pickup := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	h, err := ApplyTransition(r, TransitionRequest{Status: models.StatusReady, EstimatedDelivery: &pickup}, uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, pickup, *r.EstimatedDelivery)
	assert.Empty(t, h.Notes)
}

func TestTemplateForStatus(t *testing.T) {
	assert.Equal(t, TemplateRepairReady, TemplateForStatus(models.StatusReady))
	assert.Equal(t, TemplateStatusChanged, TemplateForStatus(models.StatusDelivered))
	assert.Equal(t, TemplateStatusChanged, TemplateForStatus(models.StatusDiagnosing))
}

func TestGenerateTicketNumber(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^REP-240110-\d{4}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, GenerateTicketNumber(now))
	}
}
