package services

import (
	"time"

	"repairshop-backend/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RepairPatch is a partial update. Nil fields are left untouched. Version,
// when set, must match the stored version.
type RepairPatch struct {
	TechnicianID *uuid.UUID `json:"technician_id"`

	DeviceTypeID        *uuid.UUID      `json:"device_type_id"`
	BrandID             *uuid.UUID      `json:"brand_id"`
	BrandOther          *string         `json:"brand_other"`
	Model               *string         `json:"model"`
	Color               *string         `json:"color"`
	StorageCapacity     *string         `json:"storage_capacity"`
	SerialNumber        *string         `json:"serial_number"`
	IMEI                *string         `json:"imei"`
	DevicePassword      *string         `json:"device_password"`
	AccessoriesReceived *string         `json:"accessories_received"`
	PhysicalCondition   *int            `json:"physical_condition"`
	ExistingDamage      *string         `json:"existing_damage"`
	FunctionChecklist   *datatypes.JSON `json:"function_checklist"`
	BatteryHealth       *int            `json:"battery_health"`
	ScreenStatus        *string         `json:"screen_status"`
	AccountStatus       *string         `json:"account_status"`

	ServiceID             *uuid.UUID `json:"service_id"`
	ServiceRequested      *string    `json:"service_requested"`
	ProblemDescription    *string    `json:"problem_description"`
	TechnicalObservations *string    `json:"technical_observations"`
	Priority              *string    `json:"priority"`
	EstimatedDelivery     *time.Time `json:"estimated_delivery"`

	DiagnosisCost  *float64 `json:"diagnosis_cost"`
	LaborCost      *float64 `json:"labor_cost"`
	PartsCost      *float64 `json:"parts_cost"`
	Discount       *float64 `json:"discount"`
	AdvancePayment *float64 `json:"advance_payment"`
	WarrantyDays   *int     `json:"warranty_days"`

	Version *int `json:"version"`
}

func (p *RepairPatch) costs() CostInput {
	return CostInput{
		DiagnosisCost: p.DiagnosisCost,
		LaborCost:     p.LaborCost,
		PartsCost:     p.PartsCost,
		Discount:      p.Discount,
	}
}

// Fields lists the attributes present in the patch.
func (p *RepairPatch) Fields() []Field {
	present := []struct {
		name Field
		set  bool
	}{
		{"technician_id", p.TechnicianID != nil},
		{"device_type_id", p.DeviceTypeID != nil},
		{"brand_id", p.BrandID != nil},
		{"brand_other", p.BrandOther != nil},
		{"model", p.Model != nil},
		{"color", p.Color != nil},
		{"storage_capacity", p.StorageCapacity != nil},
		{"serial_number", p.SerialNumber != nil},
		{"imei", p.IMEI != nil},
		{"device_password", p.DevicePassword != nil},
		{"accessories_received", p.AccessoriesReceived != nil},
		{"physical_condition", p.PhysicalCondition != nil},
		{"existing_damage", p.ExistingDamage != nil},
		{"function_checklist", p.FunctionChecklist != nil},
		{"battery_health", p.BatteryHealth != nil},
		{"screen_status", p.ScreenStatus != nil},
		{"account_status", p.AccountStatus != nil},
		{"service_id", p.ServiceID != nil},
		{"service_requested", p.ServiceRequested != nil},
		{"problem_description", p.ProblemDescription != nil},
		{"technical_observations", p.TechnicalObservations != nil},
		{"priority", p.Priority != nil},
		{"estimated_delivery", p.EstimatedDelivery != nil},
		{"diagnosis_cost", p.DiagnosisCost != nil},
		{"labor_cost", p.LaborCost != nil},
		{"parts_cost", p.PartsCost != nil},
		{"discount", p.Discount != nil},
		{"advance_payment", p.AdvancePayment != nil},
		{"warranty_days", p.WarrantyDays != nil},
	}

	var fields []Field
	for _, f := range present {
		if f.set {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// optionalID maps the nil UUID to "unassigned".
func optionalID(id *uuid.UUID) *uuid.UUID {
	if *id == uuid.Nil {
		return nil
	}
	v := *id
	return &v
}

// apply copies every non-cost field onto r. Costs go through ApplyCosts.
func (p *RepairPatch) apply(r *models.Repair) {
	if p.TechnicianID != nil {
		r.TechnicianID = optionalID(p.TechnicianID)
	}
	if p.DeviceTypeID != nil {
		r.DeviceTypeID = optionalID(p.DeviceTypeID)
	}
	if p.BrandID != nil {
		r.BrandID = optionalID(p.BrandID)
	}
	if p.BrandOther != nil {
		r.BrandOther = *p.BrandOther
	}
	if p.Model != nil {
		r.Model = *p.Model
	}
	if p.Color != nil {
		r.Color = *p.Color
	}
	if p.StorageCapacity != nil {
		r.StorageCapacity = *p.StorageCapacity
	}
	if p.SerialNumber != nil {
		r.SerialNumber = *p.SerialNumber
	}
	if p.IMEI != nil {
		r.IMEI = *p.IMEI
	}
	if p.DevicePassword != nil {
		r.DevicePassword = *p.DevicePassword
	}
	if p.AccessoriesReceived != nil {
		r.AccessoriesReceived = *p.AccessoriesReceived
	}
	if p.PhysicalCondition != nil {
		r.PhysicalCondition = *p.PhysicalCondition
	}
	if p.ExistingDamage != nil {
		r.ExistingDamage = *p.ExistingDamage
	}
	if p.FunctionChecklist != nil {
		r.FunctionChecklist = *p.FunctionChecklist
	}
	if p.BatteryHealth != nil {
		r.BatteryHealth = p.BatteryHealth
	}
	if p.ScreenStatus != nil {
		r.ScreenStatus = *p.ScreenStatus
	}
	if p.AccountStatus != nil {
		r.AccountStatus = *p.AccountStatus
	}
	if p.ServiceID != nil {
		r.ServiceID = optionalID(p.ServiceID)
	}
	if p.ServiceRequested != nil {
		r.ServiceRequested = *p.ServiceRequested
	}
	if p.ProblemDescription != nil {
		r.ProblemDescription = *p.ProblemDescription
	}
	if p.TechnicalObservations != nil {
		r.TechnicalObservations = *p.TechnicalObservations
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.EstimatedDelivery != nil {
		r.EstimatedDelivery = p.EstimatedDelivery
	}
	if p.AdvancePayment != nil {
		r.AdvancePayment = *p.AdvancePayment
	}
	if p.WarrantyDays != nil {
		r.WarrantyDays = *p.WarrantyDays
		if r.DeliveredAt != nil {
			r.WarrantyExpires = timePtr(WarrantyExpiration(*r.DeliveredAt, r.WarrantyDays))
		}
	}
}
