// services/notification_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"repairshop-backend/metrics"
	"repairshop-backend/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationConfig struct {
	BatchSize   int
	MaxAttempts int
}

// NotificationService queues customer notifications in the outbox table and
// delivers them from a scheduled worker.
type NotificationService struct {
	db          *gorm.DB
	settings    *SettingsService
	dispatchers map[string]Dispatcher
	cfg         NotificationConfig
	log         *zap.Logger
	cron        *cron.Cron
	now         func() time.Time
}

func NewNotificationService(db *gorm.DB, settings *SettingsService, cfg NotificationConfig, log *zap.Logger) *NotificationService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &NotificationService{
		db:          db,
		settings:    settings,
		dispatchers: make(map[string]Dispatcher),
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// Register attaches the dispatcher used for a channel.
func (s *NotificationService) Register(channel string, d Dispatcher) {
	s.dispatchers[channel] = d
}

func (s *NotificationService) HasChannel(channel string) bool {
	_, ok := s.dispatchers[channel]
	return ok
}

// Enqueue writes one outbox row per usable channel using tx, so the rows
// commit or roll back together with the repair change.
func (s *NotificationService) Enqueue(ctx context.Context, tx *gorm.DB, r *models.Repair, customer *models.User, templateName, notes string) error {
	settings := s.settings.WithDB(tx)
	data := eventData(ctx, settings, r, customer, notes)
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	var events []models.NotificationEvent
	add := func(channel, recipient string) {
		events = append(events, models.NotificationEvent{
			RepairID:  r.ID,
			Channel:   channel,
			Recipient: recipient,
			Template:  templateName,
			Payload:   datatypes.JSON(payload),
			Status:    models.NotificationPending,
		})
	}

	if customer != nil && customer.Email != "" && s.HasChannel(models.ChannelEmail) {
		add(models.ChannelEmail, customer.Email)
	}
	if customer != nil && customer.Phone != "" && s.HasChannel(models.ChannelSMS) &&
		settings.GetBool(ctx, models.SettingSMSNotifications) {
		add(models.ChannelSMS, customer.Phone)
	}
	if s.HasChannel(models.ChannelBroker) {
		add(models.ChannelBroker, "repair."+string(r.Status))
	}

	if len(events) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&events).Error
}

func eventData(ctx context.Context, settings *SettingsService, r *models.Repair, customer *models.User, notes string) map[string]any {
	data := map[string]any{
		"repair_id":          r.ID.String(),
		"ticket_number":      r.TicketNumber,
		"status":             string(r.Status),
		"status_label":       StatusLabel(r.Status),
		"device":             deviceLabel(r),
		"service":            r.ServiceRequested,
		"total_cost":         strconv.FormatFloat(r.TotalCost, 'f', 2, 64),
		"estimated_delivery": "",
		"notes":              notes,
		"customer_name":      "",
		"business_name":      settings.Get(ctx, models.SettingBusinessName, "Repair Shop"),
	}
	if r.EstimatedDelivery != nil {
		data["estimated_delivery"] = r.EstimatedDelivery.Format("2006-01-02")
	}
	if customer != nil {
		data["customer_name"] = customer.FullName()
	}
	return data
}

func deviceLabel(r *models.Repair) string {
	brand := r.BrandOther
	if r.Brand != nil {
		brand = r.Brand.Name
	}
	if brand == "" {
		if r.Model == "" {
			return "device"
		}
		return r.Model
	}
	return brand + " " + r.Model
}

// StartScheduler runs ProcessPending on the given cron spec until ctx ends.
// A tick that fires while the previous batch is still running is skipped.
func (s *NotificationService) StartScheduler(ctx context.Context, spec string) error {
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.ProcessPending(ctx); err != nil {
			s.log.Error("notification batch failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule notifications: %w", err)
	}

	s.cron.Start()
	s.log.Info("notification scheduler started", zap.String("schedule", spec))

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.log.Info("notification scheduler stopped")
	}()
	return nil
}

// ProcessPending delivers one batch of pending events and returns how many
// were sent. Delivery failures are recorded on the row, never returned.
func (s *NotificationService) ProcessPending(ctx context.Context) (int, error) {
	var events []models.NotificationEvent
	err := s.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", models.NotificationPending, s.cfg.MaxAttempts).
		Order("created_at").
		Limit(s.cfg.BatchSize).
		Find(&events).Error
	if err != nil {
		return 0, fmt.Errorf("load pending notifications: %w", err)
	}
	metrics.PendingNotifications.Set(float64(len(events)))

	sent := 0
	for i := range events {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		claimed, err := s.claim(ctx, &events[i])
		if err != nil {
			return sent, err
		}
		if !claimed {
			continue
		}
		if s.deliver(ctx, &events[i]) {
			sent++
		}
	}
	return sent, nil
}

// claim moves a pending event to sending. It reports false when another
// worker got to the row first.
func (s *NotificationService) claim(ctx context.Context, e *models.NotificationEvent) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.NotificationEvent{}).
		Where("id = ? AND status = ?", e.ID, models.NotificationPending).
		Update("status", models.NotificationSending)
	if res.Error != nil {
		return false, fmt.Errorf("claim notification: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	e.Status = models.NotificationSending
	return true, nil
}

func (s *NotificationService) deliver(ctx context.Context, e *models.NotificationEvent) bool {
	log := s.log.With(
		zap.String("event_id", e.ID.String()),
		zap.String("channel", e.Channel),
		zap.String("template", e.Template),
	)

	err := s.send(ctx, e)
	e.Attempts++
	updates := map[string]interface{}{"attempts": e.Attempts}

	if err != nil {
		log.Warn("notification delivery failed", zap.Int("attempt", e.Attempts), zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues(e.Channel, "error").Inc()
		updates["last_error"] = err.Error()
		updates["status"] = models.NotificationPending
		if e.Attempts >= s.cfg.MaxAttempts {
			updates["status"] = models.NotificationFailed
			log.Error("notification gave up", zap.Int("attempts", e.Attempts))
		}
	} else {
		metrics.NotificationsTotal.WithLabelValues(e.Channel, "sent").Inc()
		updates["status"] = models.NotificationSent
		updates["sent_at"] = s.now()
		updates["last_error"] = ""
		log.Debug("notification sent", zap.String("recipient", e.Recipient))
	}

	if uerr := s.db.WithContext(ctx).Model(&models.NotificationEvent{}).Where("id = ?", e.ID).Updates(updates).Error; uerr != nil {
		log.Error("failed to record notification result", zap.Error(uerr))
	}
	return err == nil
}

func (s *NotificationService) send(ctx context.Context, e *models.NotificationEvent) error {
	d, ok := s.dispatchers[e.Channel]
	if !ok {
		return fmt.Errorf("no dispatcher for channel %q", e.Channel)
	}
	var data map[string]any
	if len(e.Payload) > 0 {
		if err := json.Unmarshal(e.Payload, &data); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	return d.Send(ctx, e.Recipient, e.Template, data)
}
