package services

import (
	"testing"

	"repairshop-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPolicy(t *testing.T) {
	var p Policy
	owner := &models.User{ID: uuid.New(), Role: models.RoleClient}
	stranger := &models.User{ID: uuid.New(), Role: models.RoleClient}
	tech := &models.User{ID: uuid.New(), Role: models.RoleTechnician}
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}

	repair := func(st models.RepairStatus) *models.Repair {
		return &models.Repair{ID: uuid.New(), CustomerID: owner.ID, Status: st}
	}

	t.Run("view", func(t *testing.T) {
		r := repair(models.StatusReceived)
		assert.True(t, p.CanView(owner, r, ""))
		assert.False(t, p.CanView(owner, r, FieldInternalNotes))
		assert.False(t, p.CanView(stranger, r, ""))
		assert.True(t, p.CanView(tech, r, FieldInternalNotes))
		assert.True(t, p.CanView(admin, r, ""))
		assert.False(t, p.CanView(nil, r, ""))
	})

	t.Run("edit fields", func(t *testing.T) {
		assert.False(t, p.CanEditField(owner, "labor_cost"))
		assert.True(t, p.CanEditField(tech, "labor_cost"))
		assert.False(t, p.CanEditField(admin, "customer_id"))
		assert.False(t, p.CanEditField(admin, "total_cost"))
	})

	t.Run("client transitions", func(t *testing.T) {
		cases := []struct {
			from, to models.RepairStatus
			want     bool
		}{
			{models.StatusWaitingApproval, models.StatusRepairing, true},
			{models.StatusWaitingApproval, models.StatusCancelled, true},
			{models.StatusReady, models.StatusReady, true},
			{models.StatusWaitingApproval, models.StatusDelivered, false},
			{models.StatusReady, models.StatusDelivered, false},
			{models.StatusReceived, models.StatusCancelled, false},
			{models.StatusRepairing, models.StatusReady, false},
		}
		for _, c := range cases {
			assert.Equal(t, c.want, p.CanTransition(owner, repair(c.from), c.to), "%s -> %s", c.from, c.to)
			assert.False(t, p.CanTransition(stranger, repair(c.from), c.to))
		}
	})

	t.Run("staff transitions", func(t *testing.T) {
		for _, st := range models.AllStatuses {
			assert.True(t, p.CanTransition(tech, repair(models.StatusReceived), st))
		}
	})

	t.Run("admin only actions", func(t *testing.T) {
		assert.True(t, p.CanDelete(admin))
		assert.False(t, p.CanDelete(tech))
		assert.False(t, p.CanDelete(owner))
		assert.True(t, p.CanManageCatalog(admin))
		assert.False(t, p.CanManageCatalog(tech))
		assert.True(t, p.CanWriteInternalNotes(tech))
		assert.False(t, p.CanWriteInternalNotes(owner))
	})
}
