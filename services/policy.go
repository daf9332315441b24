package services

import (
	"repairshop-backend/models"
)

// Field names a repair attribute as exposed over the API.
type Field string

const (
	FieldInternalNotes Field = "internal_notes"
)

// staffOnlyFields are never shown to clients, even on their own repairs.
var staffOnlyFields = map[Field]bool{
	FieldInternalNotes: true,
}

// EditableFields is the allow-list of attributes a repair patch may touch.
var EditableFields = map[Field]bool{
	"technician_id":          true,
	"device_type_id":         true,
	"brand_id":               true,
	"brand_other":            true,
	"model":                  true,
	"color":                  true,
	"storage_capacity":       true,
	"serial_number":          true,
	"imei":                   true,
	"device_password":        true,
	"accessories_received":   true,
	"physical_condition":     true,
	"existing_damage":        true,
	"function_checklist":     true,
	"battery_health":         true,
	"screen_status":          true,
	"account_status":         true,
	"service_id":             true,
	"service_requested":      true,
	"problem_description":    true,
	"technical_observations": true,
	"priority":               true,
	"estimated_delivery":     true,
	"diagnosis_cost":         true,
	"labor_cost":             true,
	"parts_cost":             true,
	"discount":               true,
	"advance_payment":        true,
	"warranty_days":          true,
}

// Policy decides what a user may see and do with repairs. It is stateless.
type Policy struct{}

// CanView reports whether user may see field of r. An empty field asks
// about the repair as a whole.
func (Policy) CanView(user *models.User, r *models.Repair, field Field) bool {
	if user == nil || r == nil {
		return false
	}
	if user.Role.IsStaff() {
		return true
	}
	if user.Role != models.RoleClient || r.CustomerID != user.ID {
		return false
	}
	return !staffOnlyFields[field]
}

func (Policy) CanEditField(user *models.User, field Field) bool {
	if user == nil || !user.Role.IsStaff() {
		return false
	}
	return EditableFields[field]
}

// CanTransition reports whether user may move r to target. Clients may only
// approve or reject a quote and schedule the pickup of a finished repair.
func (p Policy) CanTransition(user *models.User, r *models.Repair, target models.RepairStatus) bool {
	if user == nil || r == nil {
		return false
	}
	if user.Role.IsStaff() {
		return true
	}
	if !p.CanView(user, r, "") {
		return false
	}
	switch r.Status {
	case models.StatusWaitingApproval:
		return target == models.StatusRepairing || target == models.StatusCancelled
	case models.StatusReady:
		return target == models.StatusReady
	}
	return false
}

func (Policy) CanDelete(user *models.User) bool {
	return user != nil && user.Role == models.RoleAdmin
}

func (Policy) CanManageCatalog(user *models.User) bool {
	return user != nil && user.Role == models.RoleAdmin
}

// CanWriteInternalNotes reports whether notes by user may stay hidden from clients.
func (Policy) CanWriteInternalNotes(user *models.User) bool {
	return user != nil && user.Role.IsStaff()
}
