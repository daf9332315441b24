package services

import "time"

const DefaultWarrantyDays = 30

// WarrantyExpiration is the delivery instant plus the given calendar days.
func WarrantyExpiration(deliveredAt time.Time, days int) time.Time {
	return deliveredAt.AddDate(0, 0, days)
}
