package services

import (
	"time"

	"repairshop-backend/models"

	"github.com/google/uuid"
)

var statusLabels = map[models.RepairStatus]string{
	models.StatusReceived:        "Received",
	models.StatusDiagnosing:      "Diagnosing",
	models.StatusWaitingApproval: "Waiting for approval",
	models.StatusWaitingParts:    "Waiting for parts",
	models.StatusRepairing:       "Repairing",
	models.StatusQualityCheck:    "Quality check",
	models.StatusReady:           "Ready for pickup",
	models.StatusDelivered:       "Delivered",
	models.StatusCancelled:       "Cancelled",
}

// StatusLabel returns the human readable name of a status.
func StatusLabel(s models.RepairStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func ParseStatus(s string) (models.RepairStatus, error) {
	st := models.RepairStatus(s)
	if _, ok := statusLabels[st]; !ok {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// IsTerminal reports whether no further transition may leave s.
func IsTerminal(s models.RepairStatus) bool {
	return s == models.StatusDelivered || s == models.StatusCancelled
}

// IsInProgress covers the statuses in which the shop is actively working.
func IsInProgress(s models.RepairStatus) bool {
	switch s {
	case models.StatusDiagnosing, models.StatusWaitingParts, models.StatusRepairing, models.StatusQualityCheck:
		return true
	}
	return false
}

// TransitionRequest is a status change asked for by a user.
type TransitionRequest struct {
	Status            models.RepairStatus
	Notes             string
	EstimatedDelivery *time.Time
	// Signature is the approval signature when entering repairing and the
	// delivery signature when entering delivered.
	Signature string
}

// ApplyTransition moves r to req.Status and stamps lifecycle timestamps.
// Permission checks happen before; r is left untouched on error.
func ApplyTransition(r *models.Repair, req TransitionRequest, actor uuid.UUID, now time.Time) (*models.StatusHistory, error) {
	if _, ok := statusLabels[req.Status]; !ok {
		return nil, ErrInvalidStatus
	}
	if IsTerminal(r.Status) {
		return nil, &ValidationError{Field: "status", Message: "repair is already " + string(r.Status)}
	}
	if req.Status == models.StatusDelivered && req.Signature == "" && r.SignatureDelivery == "" {
		return nil, newValidationError("signature", "delivery signature is required")
	}

	switch req.Status {
	case models.StatusRepairing:
		if req.Signature != "" && r.Status == models.StatusWaitingApproval {
			r.SignatureApproval = req.Signature
		}
		if r.StartedAt == nil {
			r.StartedAt = timePtr(now)
		}
	case models.StatusReady:
		if r.CompletedAt == nil {
			r.CompletedAt = timePtr(now)
		}
	case models.StatusDelivered:
		if req.Signature != "" {
			r.SignatureDelivery = req.Signature
		}
		if r.CompletedAt == nil {
			r.CompletedAt = timePtr(now)
		}
		r.DeliveredAt = timePtr(now)
		r.WarrantyExpires = timePtr(WarrantyExpiration(now, r.WarrantyDays))
	}
	if req.EstimatedDelivery != nil {
		r.EstimatedDelivery = req.EstimatedDelivery
	}
	r.Status = req.Status

	return &models.StatusHistory{
		RepairID:  r.ID,
		Status:    req.Status,
		Notes:     req.Notes,
		ChangedBy: &actor,
		CreatedAt: now,
	}, nil
}

const (
	TemplateRepairCreated = "repairCreated"
	TemplateStatusChanged = "statusChanged"
	TemplateRepairReady   = "repairReady"
)

// TemplateForStatus picks the customer notification sent after a transition.
func TemplateForStatus(s models.RepairStatus) string {
	if s == models.StatusReady {
		return TemplateRepairReady
	}
	return TemplateStatusChanged
}

func timePtr(t time.Time) *time.Time {
	return &t
}
