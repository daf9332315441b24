package models

import "time"

// Setting is a single shop-wide key/value configuration entry.
type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	SettingBusinessName        = "business_name"
	SettingDefaultWarrantyDays = "default_warranty_days"
	SettingContactEmail        = "contact_email"
	SettingContactPhone        = "contact_phone"
	SettingSMSNotifications    = "sms_notifications"
)

// DefaultSettings are seeded on migrate when absent.
var DefaultSettings = map[string]string{
	SettingBusinessName:        "Repair Shop",
	SettingDefaultWarrantyDays: "30",
	SettingContactEmail:        "",
	SettingContactPhone:        "",
	SettingSMSNotifications:    "false",
}
