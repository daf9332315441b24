package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"repairshop-backend/metrics"
	"repairshop-backend/models"
	"repairshop-backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateRepairInput is the intake form of a new repair.
type CreateRepairInput struct {
	CustomerID   *uuid.UUID `json:"customer_id"`
	TechnicianID *uuid.UUID `json:"technician_id"`

	DeviceTypeID        *uuid.UUID     `json:"device_type_id"`
	BrandID             *uuid.UUID     `json:"brand_id"`
	BrandOther          string         `json:"brand_other"`
	Model               string         `json:"model"`
	Color               string         `json:"color"`
	StorageCapacity     string         `json:"storage_capacity"`
	SerialNumber        string         `json:"serial_number"`
	IMEI                string         `json:"imei"`
	DevicePassword      string         `json:"device_password"`
	AccessoriesReceived string         `json:"accessories_received"`
	PhysicalCondition   *int           `json:"physical_condition"`
	ExistingDamage      string         `json:"existing_damage"`
	FunctionChecklist   datatypes.JSON `json:"function_checklist"`
	BatteryHealth       *int           `json:"battery_health"`
	ScreenStatus        string         `json:"screen_status"`
	AccountStatus       string         `json:"account_status"`

	ServiceID             *uuid.UUID `json:"service_id"`
	ServiceRequested      string     `json:"service_requested"`
	ProblemDescription    string     `json:"problem_description"`
	TechnicalObservations string     `json:"technical_observations"`
	Priority              string     `json:"priority"`
	EstimatedDelivery     *time.Time `json:"estimated_delivery"`

	DiagnosisCost  *float64 `json:"diagnosis_cost"`
	LaborCost      *float64 `json:"labor_cost"`
	PartsCost      *float64 `json:"parts_cost"`
	Discount       *float64 `json:"discount"`
	AdvancePayment *float64 `json:"advance_payment"`
	WarrantyDays   *int     `json:"warranty_days"`
}

func (in *CreateRepairInput) costs() CostInput {
	return CostInput{
		DiagnosisCost: in.DiagnosisCost,
		LaborCost:     in.LaborCost,
		PartsCost:     in.PartsCost,
		Discount:      in.Discount,
	}
}

// RepairFilter narrows a repair listing.
type RepairFilter struct {
	Status       string
	CustomerID   *uuid.UUID
	TechnicianID *uuid.UUID
	Search       string
	Page         int
	Limit        int
}

type RepairService struct {
	db       *gorm.DB
	settings *SettingsService
	notifier *NotificationService
	files    storage.FileStorage
	policy   Policy
	log      *zap.Logger
	now      func() time.Time
	ticket   func(time.Time) string
}

func NewRepairService(db *gorm.DB, settings *SettingsService, notifier *NotificationService, files storage.FileStorage, log *zap.Logger) *RepairService {
	return &RepairService{
		db:       db,
		settings: settings,
		notifier: notifier,
		files:    files,
		log:      log,
		now:      time.Now,
		ticket:   GenerateTicketNumber,
	}
}

// SetClock replaces the time source.
func (s *RepairService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *RepairService) Create(ctx context.Context, actor *models.User, in CreateRepairInput) (*models.Repair, error) {
	if actor == nil {
		return nil, &AuthorizationError{}
	}
	if actor.Role == models.RoleClient {
		// Clients open repairs for themselves and describe the problem only.
		in.CustomerID = &actor.ID
		in.TechnicianID = nil
		in.TechnicalObservations = ""
		in.DiagnosisCost, in.LaborCost, in.PartsCost, in.Discount = nil, nil, nil, nil
		in.AdvancePayment = nil
		in.WarrantyDays = nil
	}
	if err := s.validateCreate(ctx, &in); err != nil {
		return nil, err
	}

	warrantyDays := s.settings.GetInt(ctx, models.SettingDefaultWarrantyDays, DefaultWarrantyDays)
	if in.WarrantyDays != nil {
		warrantyDays = *in.WarrantyDays
	}

	repair := models.Repair{
		CustomerID:            *in.CustomerID,
		TechnicianID:          in.TechnicianID,
		DeviceTypeID:          in.DeviceTypeID,
		BrandID:               in.BrandID,
		BrandOther:            in.BrandOther,
		Model:                 in.Model,
		Color:                 in.Color,
		StorageCapacity:       in.StorageCapacity,
		SerialNumber:          in.SerialNumber,
		IMEI:                  in.IMEI,
		DevicePassword:        in.DevicePassword,
		AccessoriesReceived:   in.AccessoriesReceived,
		PhysicalCondition:     5,
		ExistingDamage:        in.ExistingDamage,
		FunctionChecklist:     in.FunctionChecklist,
		BatteryHealth:         in.BatteryHealth,
		ScreenStatus:          in.ScreenStatus,
		AccountStatus:         in.AccountStatus,
		ServiceID:             in.ServiceID,
		ServiceRequested:      in.ServiceRequested,
		ProblemDescription:    in.ProblemDescription,
		TechnicalObservations: in.TechnicalObservations,
		Priority:              "normal",
		EstimatedDelivery:     in.EstimatedDelivery,
		Status:                models.StatusReceived,
		WarrantyDays:          warrantyDays,
		Version:               1,
	}
	if in.PhysicalCondition != nil {
		repair.PhysicalCondition = *in.PhysicalCondition
	}
	if in.Priority != "" {
		repair.Priority = in.Priority
	}
	if in.AdvancePayment != nil {
		repair.AdvancePayment = *in.AdvancePayment
	}
	ApplyCosts(&repair, in.costs())

	var err error
	for attempt := 1; attempt <= ticketAttempts; attempt++ {
		now := s.now()
		repair.ID = uuid.Nil
		repair.TicketNumber = s.ticket(now)
		repair.CreatedAt = now
		repair.UpdatedAt = now

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit("Customer", "Technician", "Service", "DeviceType", "Brand", "Images", "History", "Notes").
				Create(&repair).Error; err != nil {
				return err
			}
			history := models.StatusHistory{
				RepairID:  repair.ID,
				Status:    models.StatusReceived,
				Notes:     "Repair created",
				ChangedBy: &actor.ID,
				CreatedAt: now,
			}
			if err := tx.Create(&history).Error; err != nil {
				return err
			}
			return s.enqueue(ctx, tx, &repair, TemplateRepairCreated, "")
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		s.log.Warn("ticket number collision, retrying",
			zap.String("ticket", repair.TicketNumber), zap.Int("attempt", attempt))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Message: "could not allocate a ticket number"}
		}
		return nil, fmt.Errorf("create repair: %w", err)
	}

	metrics.RepairsCreatedTotal.Inc()
	s.log.Info("repair created",
		zap.String("repair_id", repair.ID.String()),
		zap.String("ticket", repair.TicketNumber),
		zap.String("customer_id", repair.CustomerID.String()))
	return &repair, nil
}

func (s *RepairService) validateCreate(ctx context.Context, in *CreateRepairInput) error {
	if in.CustomerID == nil || *in.CustomerID == uuid.Nil {
		return newValidationError("customer_id", "is required")
	}
	if strings.TrimSpace(in.ProblemDescription) == "" {
		return newValidationError("problem_description", "is required")
	}
	if err := validateCommon(in.PhysicalCondition, in.Priority, in.WarrantyDays, in.costs(), in.AdvancePayment); err != nil {
		return err
	}

	in.ServiceID = nilIfZero(in.ServiceID)
	in.DeviceTypeID = nilIfZero(in.DeviceTypeID)
	in.BrandID = nilIfZero(in.BrandID)
	if err := checkCatalog(ctx, s.db, in.ServiceID, in.DeviceTypeID, in.BrandID); err != nil {
		return err
	}

	var customer models.User
	err := s.db.WithContext(ctx).Where("id = ? AND role = ?", *in.CustomerID, models.RoleClient).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newValidationError("customer_id", "customer not found")
	}
	if err != nil {
		return err
	}
	if in.TechnicianID != nil {
		if err := s.checkTechnician(ctx, s.db, *in.TechnicianID); err != nil {
			return err
		}
	}
	return nil
}

func validateCommon(condition *int, priority string, warrantyDays *int, costs CostInput, advance *float64) error {
	if condition != nil && (*condition < 1 || *condition > 5) {
		return newValidationError("physical_condition", "must be between 1 and 5")
	}
	if priority != "" && priority != "normal" && priority != "urgent" {
		return newValidationError("priority", "must be normal or urgent")
	}
	if warrantyDays != nil && *warrantyDays <= 0 {
		return newValidationError("warranty_days", "must be a positive number of days")
	}
	for field, v := range map[string]*float64{
		"diagnosis_cost":  costs.DiagnosisCost,
		"labor_cost":      costs.LaborCost,
		"parts_cost":      costs.PartsCost,
		"discount":        costs.Discount,
		"advance_payment": advance,
	} {
		if v != nil && *v < 0 {
			return newValidationError(field, "must not be negative")
		}
	}
	return nil
}

func (s *RepairService) checkTechnician(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	var tech models.User
	err := db.WithContext(ctx).
		Where("id = ? AND role IN ? AND is_active = ?", id, []models.Role{models.RoleTechnician, models.RoleAdmin}, true).
		First(&tech).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newValidationError("technician_id", "technician not found")
	}
	return err
}

// checkCatalog reports the first referenced catalog entry that does not
// exist. Nil ids and the nil UUID reference nothing.
func checkCatalog(ctx context.Context, db *gorm.DB, serviceID, deviceTypeID, brandID *uuid.UUID) error {
	refs := []struct {
		id     *uuid.UUID
		model  interface{}
		entity string
	}{
		{serviceID, &models.Service{}, "service"},
		{deviceTypeID, &models.DeviceType{}, "device type"},
		{brandID, &models.Brand{}, "brand"},
	}
	for _, ref := range refs {
		if ref.id == nil || *ref.id == uuid.Nil {
			continue
		}
		var count int64
		if err := db.WithContext(ctx).Model(ref.model).Where("id = ?", *ref.id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return &NotFoundError{Entity: ref.entity}
		}
	}
	return nil
}

func nilIfZero(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

// Get loads a repair with its images, history and the notes actor may read.
// Repairs the actor may not see are reported as not found.
func (s *RepairService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Repair, error) {
	repair, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanView(actor, repair, "") {
		return nil, ErrRepairNotFound
	}
	showInternal := s.policy.CanView(actor, repair, FieldInternalNotes)

	err = s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Technician").
		Preload("Service").
		Preload("DeviceType").
		Preload("Brand").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("History.ChangedByUser").
		Preload("Notes", func(db *gorm.DB) *gorm.DB {
			if !showInternal {
				db = db.Where("is_internal = ?", false)
			}
			return db.Order("created_at")
		}).
		Preload("Notes.User").
		First(repair, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return repair, nil
}

// List returns one page of repairs visible to actor, newest first.
func (s *RepairService) List(ctx context.Context, actor *models.User, f RepairFilter) ([]models.Repair, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	q := s.db.WithContext(ctx).Model(&models.Repair{})
	if !actor.Role.IsStaff() {
		q = q.Where("customer_id = ?", actor.ID)
	} else if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Status != "" {
		if _, err := ParseStatus(f.Status); err != nil {
			return nil, 0, err
		}
		q = q.Where("status = ?", f.Status)
	}
	if f.TechnicianID != nil {
		q = q.Where("technician_id = ?", *f.TechnicianID)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(ticket_number) LIKE ? OR LOWER(model) LIKE ? OR LOWER(serial_number) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var repairs []models.Repair
	err := q.Preload("Customer").
		Preload("Technician").
		Preload("DeviceType").
		Preload("Brand").
		Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&repairs).Error
	if err != nil {
		return nil, 0, err
	}
	return repairs, total, nil
}

// Update applies a staff patch to the allow-listed fields and recomputes the
// total when any cost component changes.
func (s *RepairService) Update(ctx context.Context, actor *models.User, id uuid.UUID, patch RepairPatch) (*models.Repair, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil, ErrNoFieldsToUpdate
	}
	for _, f := range fields {
		if !s.policy.CanEditField(actor, f) {
			return nil, &AuthorizationError{Message: fmt.Sprintf("not allowed to edit %s", f)}
		}
	}
	if err := validateCommon(patch.PhysicalCondition, deref(patch.Priority), patch.WarrantyDays, patch.costs(), patch.AdvancePayment); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repair, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanView(actor, repair, "") {
			return ErrRepairNotFound
		}
		expected := repair.Version
		if patch.Version != nil && *patch.Version != expected {
			return ErrStaleRepair
		}
		if patch.TechnicianID != nil && *patch.TechnicianID != uuid.Nil {
			if err := s.checkTechnician(ctx, tx, *patch.TechnicianID); err != nil {
				return err
			}
		}
		if err := checkCatalog(ctx, tx, patch.ServiceID, patch.DeviceTypeID, patch.BrandID); err != nil {
			return err
		}

		patch.apply(repair)
		if patch.costs().Touched() {
			ApplyCosts(repair, MergeCosts(repair, patch.costs()))
		}
		return s.save(tx, repair, expected)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Transition changes the status of a repair, records the history row and
// queues the customer notification in one transaction.
func (s *RepairService) Transition(ctx context.Context, actor *models.User, id uuid.UUID, req TransitionRequest, version *int) (*models.Repair, error) {
	if _, err := ParseStatus(string(req.Status)); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repair, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanView(actor, repair, "") {
			return ErrRepairNotFound
		}
		if !s.policy.CanTransition(actor, repair, req.Status) {
			return &AuthorizationError{Message: fmt.Sprintf("not allowed to change status from %s to %s", repair.Status, req.Status)}
		}
		if err := clientPreconditions(actor, repair, &req); err != nil {
			return err
		}
		expected := repair.Version
		if version != nil && *version != expected {
			return ErrStaleRepair
		}

		history, err := ApplyTransition(repair, req, actor.ID, s.now())
		if err != nil {
			return err
		}
		if err := s.save(tx, repair, expected); err != nil {
			return err
		}
		if err := tx.Create(history).Error; err != nil {
			return err
		}
		return s.enqueue(ctx, tx, repair, TemplateForStatus(repair.Status), req.Notes)
	})
	if err != nil {
		return nil, err
	}

	metrics.StatusTransitionsTotal.WithLabelValues(string(req.Status)).Inc()
	s.log.Info("repair status changed",
		zap.String("repair_id", id.String()),
		zap.String("status", string(req.Status)),
		zap.String("actor", actor.ID.String()))
	return s.Get(ctx, actor, id)
}

func clientPreconditions(actor *models.User, r *models.Repair, req *TransitionRequest) error {
	if actor.Role != models.RoleClient {
		return nil
	}
	switch {
	case r.Status == models.StatusWaitingApproval && req.Status == models.StatusRepairing:
		if req.Signature == "" {
			return newValidationError("signature", "approval signature is required")
		}
		req.EstimatedDelivery = nil
	case r.Status == models.StatusReady && req.Status == models.StatusReady:
		if req.EstimatedDelivery == nil {
			return newValidationError("estimated_delivery", "pickup date is required")
		}
		req.Signature = ""
	default:
		req.EstimatedDelivery = nil
		req.Signature = ""
	}
	return nil
}

// AddNote attaches a note. Notes written by clients are never internal.
func (s *RepairService) AddNote(ctx context.Context, actor *models.User, id uuid.UUID, text string, internal bool) (*models.RepairNote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, newValidationError("note", "is required")
	}
	repair, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanView(actor, repair, "") {
		return nil, ErrRepairNotFound
	}
	if !s.policy.CanWriteInternalNotes(actor) {
		internal = false
	}

	note := models.RepairNote{
		RepairID:   id,
		UserID:     actor.ID,
		Note:       text,
		IsInternal: internal,
		CreatedAt:  s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		return nil, err
	}
	note.User = actor
	return &note, nil
}

// Delete removes a repair with its history, notes, images and queued
// notifications. Image files are removed after commit on a best-effort basis.
func (s *RepairService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if !s.policy.CanDelete(actor) {
		return &AuthorizationError{Message: "only administrators can delete repairs"}
	}

	var images []models.RepairImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.load(tx, id); err != nil {
			return err
		}
		if err := tx.Where("repair_id = ?", id).Find(&images).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{
			&models.RepairImage{},
			&models.RepairNote{},
			&models.StatusHistory{},
			&models.NotificationEvent{},
		} {
			if err := tx.Where("repair_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Repair{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	for _, img := range images {
		s.removeFile(ctx, img.ImagePath)
	}
	s.log.Info("repair deleted", zap.String("repair_id", id.String()), zap.String("actor", actor.ID.String()))
	return nil
}

func (s *RepairService) removeFile(ctx context.Context, path string) {
	if s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, path); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		s.log.Warn("failed to delete image file", zap.String("path", path), zap.Error(err))
	}
}

func (s *RepairService) load(db *gorm.DB, id uuid.UUID) (*models.Repair, error) {
	var repair models.Repair
	err := db.First(&repair, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRepairNotFound
	}
	if err != nil {
		return nil, err
	}
	return &repair, nil
}

// save writes every mutable column guarded by the version read earlier.
func (s *RepairService) save(tx *gorm.DB, r *models.Repair, expected int) error {
	r.Version = expected + 1
	r.UpdatedAt = s.now()

	res := tx.Model(&models.Repair{}).
		Where("id = ? AND version = ?", r.ID, expected).
		Updates(map[string]interface{}{
			"technician_id":          r.TechnicianID,
			"device_type_id":         r.DeviceTypeID,
			"brand_id":               r.BrandID,
			"brand_other":            r.BrandOther,
			"model":                  r.Model,
			"color":                  r.Color,
			"storage_capacity":       r.StorageCapacity,
			"serial_number":          r.SerialNumber,
			"imei":                   r.IMEI,
			"device_password":        r.DevicePassword,
			"accessories_received":   r.AccessoriesReceived,
			"physical_condition":     r.PhysicalCondition,
			"existing_damage":        r.ExistingDamage,
			"function_checklist":     r.FunctionChecklist,
			"battery_health":         r.BatteryHealth,
			"screen_status":          r.ScreenStatus,
			"account_status":         r.AccountStatus,
			"service_id":             r.ServiceID,
			"service_requested":      r.ServiceRequested,
			"problem_description":    r.ProblemDescription,
			"technical_observations": r.TechnicalObservations,
			"priority":               r.Priority,
			"estimated_delivery":     r.EstimatedDelivery,
			"diagnosis_cost":         r.DiagnosisCost,
			"labor_cost":             r.LaborCost,
			"parts_cost":             r.PartsCost,
			"discount":               r.Discount,
			"advance_payment":        r.AdvancePayment,
			"total_cost":             r.TotalCost,
			"status":                 r.Status,
			"warranty_days":          r.WarrantyDays,
			"warranty_expires":       r.WarrantyExpires,
			"started_at":             r.StartedAt,
			"completed_at":           r.CompletedAt,
			"delivered_at":           r.DeliveredAt,
			"signature_approval":     r.SignatureApproval,
			"signature_delivery":     r.SignatureDelivery,
			"version":                r.Version,
			"updated_at":             r.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		metrics.ConflictsTotal.Inc()
		return ErrStaleRepair
	}
	return nil
}

func (s *RepairService) enqueue(ctx context.Context, tx *gorm.DB, r *models.Repair, templateName, notes string) error {
	if s.notifier == nil {
		return nil
	}
	var customer models.User
	if err := tx.First(&customer, "id = ?", r.CustomerID).Error; err != nil {
		return err
	}
	if r.BrandID != nil && r.Brand == nil {
		var brand models.Brand
		err := tx.First(&brand, "id = ?", *r.BrandID).Error
		switch {
		case err == nil:
			r.Brand = &brand
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
	}
	return s.notifier.Enqueue(ctx, tx, r, &customer, templateName, notes)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
