package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ChannelEmail  = "email"
	ChannelSMS    = "sms"
	ChannelBroker = "broker"

	NotificationPending = "pending"
	NotificationSending = "sending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// NotificationEvent is an outbox row written in the same transaction as the
// repair change it reports. The notification worker delivers it later.
type NotificationEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RepairID  uuid.UUID      `gorm:"type:uuid;index;not null" json:"repair_id"`
	Channel   string         `gorm:"type:varchar(20);not null" json:"channel"` // email, sms, broker
	Recipient string         `gorm:"not null" json:"recipient"`
	Template  string         `gorm:"type:varchar(50);not null" json:"template"`
	Payload   datatypes.JSON `json:"payload"`
	Status    string         `gorm:"type:varchar(20);index;not null" json:"status"` // pending, sending, sent, failed
	Attempts  int            `gorm:"default:0" json:"attempts"`
	LastError string         `gorm:"type:text" json:"last_error"`
	SentAt    *time.Time     `json:"sent_at"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (e *NotificationEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = NotificationPending
	}
	return
}
