package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RepairStatus string

const (
	StatusReceived        RepairStatus = "received"
	StatusDiagnosing      RepairStatus = "diagnosing"
	StatusWaitingApproval RepairStatus = "waiting_approval"
	StatusWaitingParts    RepairStatus = "waiting_parts"
	StatusRepairing       RepairStatus = "repairing"
	StatusQualityCheck    RepairStatus = "quality_check"
	StatusReady           RepairStatus = "ready"
	StatusDelivered       RepairStatus = "delivered"
	StatusCancelled       RepairStatus = "cancelled"
)

// AllStatuses lists the lifecycle in display order.
var AllStatuses = []RepairStatus{
	StatusReceived,
	StatusDiagnosing,
	StatusWaitingApproval,
	StatusWaitingParts,
	StatusRepairing,
	StatusQualityCheck,
	StatusReady,
	StatusDelivered,
	StatusCancelled,
}

// Repair is a single device repair order.
type Repair struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TicketNumber string     `gorm:"type:varchar(20);uniqueIndex;not null" json:"ticket_number"`
	CustomerID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	TechnicianID *uuid.UUID `gorm:"type:uuid;index" json:"technician_id"`

	// Device
	DeviceTypeID        *uuid.UUID     `gorm:"type:uuid" json:"device_type_id"`
	BrandID             *uuid.UUID     `gorm:"type:uuid" json:"brand_id"`
	BrandOther          string         `json:"brand_other"`
	Model               string         `json:"model"`
	Color               string         `json:"color"`
	StorageCapacity     string         `json:"storage_capacity"`
	SerialNumber        string         `json:"serial_number"`
	IMEI                string         `gorm:"column:imei" json:"imei"`
	DevicePassword      string         `json:"device_password"`
	AccessoriesReceived string         `gorm:"type:text" json:"accessories_received"`
	PhysicalCondition   int            `gorm:"default:5" json:"physical_condition"`
	ExistingDamage      string         `gorm:"type:text" json:"existing_damage"`
	FunctionChecklist   datatypes.JSON `json:"function_checklist"`
	BatteryHealth       *int           `json:"battery_health"`
	ScreenStatus        string         `json:"screen_status"`
	AccountStatus       string         `json:"account_status"`

	// Service
	ServiceID             *uuid.UUID `gorm:"type:uuid;index" json:"service_id"`
	ServiceRequested      string     `json:"service_requested"`
	ProblemDescription    string     `gorm:"type:text" json:"problem_description"`
	TechnicalObservations string     `gorm:"type:text" json:"technical_observations"`
	Priority              string     `gorm:"type:varchar(10);default:'normal'" json:"priority"`
	EstimatedDelivery     *time.Time `json:"estimated_delivery"`

	// Costs
	DiagnosisCost  float64 `gorm:"type:decimal(10,2);default:0" json:"diagnosis_cost"`
	LaborCost      float64 `gorm:"type:decimal(10,2);default:0" json:"labor_cost"`
	PartsCost      float64 `gorm:"type:decimal(10,2);default:0" json:"parts_cost"`
	Discount       float64 `gorm:"type:decimal(10,2);default:0" json:"discount"`
	AdvancePayment float64 `gorm:"type:decimal(10,2);default:0" json:"advance_payment"`
	TotalCost      float64 `gorm:"type:decimal(10,2);default:0" json:"total_cost"`

	// Lifecycle
	Status          RepairStatus `gorm:"type:varchar(30);index;not null" json:"status"`
	WarrantyDays    int          `json:"warranty_days"`
	WarrantyExpires *time.Time   `json:"warranty_expires"`
	StartedAt       *time.Time   `json:"started_at"`
	CompletedAt     *time.Time   `json:"completed_at"`
	DeliveredAt     *time.Time   `json:"delivered_at"`

	SignatureApproval string `gorm:"type:text" json:"signature_approval,omitempty"`
	SignatureDelivery string `gorm:"type:text" json:"signature_delivery,omitempty"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Customer   *User           `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Technician *User           `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	Service    *Service        `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	DeviceType *DeviceType     `gorm:"foreignKey:DeviceTypeID" json:"device_type,omitempty"`
	Brand      *Brand          `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Images     []RepairImage   `gorm:"foreignKey:RepairID" json:"images,omitempty"`
	History    []StatusHistory `gorm:"foreignKey:RepairID" json:"history,omitempty"`
	Notes      []RepairNote    `gorm:"foreignKey:RepairID" json:"notes,omitempty"`
}

func (r *Repair) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusReceived
	}
	if r.Version == 0 {
		r.Version = 1
	}
	return
}

// StatusHistory is an append-only audit row written on every status change.
type StatusHistory struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	RepairID  uuid.UUID    `gorm:"type:uuid;index;not null" json:"repair_id"`
	Status    RepairStatus `gorm:"type:varchar(30);not null" json:"status"`
	Notes     string       `gorm:"type:text" json:"notes"`
	ChangedBy *uuid.UUID   `gorm:"type:uuid" json:"changed_by"`
	CreatedAt time.Time    `gorm:"index" json:"created_at"`

	ChangedByUser *User `gorm:"foreignKey:ChangedBy" json:"changed_by_user,omitempty"`
}

func (StatusHistory) TableName() string {
	return "repair_status_history"
}

func (h *StatusHistory) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return
}

type RepairNote struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RepairID   uuid.UUID `gorm:"type:uuid;index;not null" json:"repair_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Note       string    `gorm:"type:text;not null" json:"note"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (n *RepairNote) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

type ImageStage string

const (
	ImageBefore ImageStage = "before"
	ImageDuring ImageStage = "during"
	ImageAfter  ImageStage = "after"
)

func (s ImageStage) IsValid() bool {
	return s == ImageBefore || s == ImageDuring || s == ImageAfter
}

type RepairImage struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RepairID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"repair_id"`
	ImagePath   string     `gorm:"not null" json:"image_path"`
	ImageType   ImageStage `gorm:"type:varchar(10);not null" json:"image_type"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	Description string     `json:"description"`
	UploadedBy  uuid.UUID  `gorm:"type:uuid" json:"uploaded_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (i *RepairImage) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}
