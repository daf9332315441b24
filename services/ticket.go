package services

import (
	"fmt"
	"math/rand"
	"time"
)

const ticketAttempts = 5

// GenerateTicketNumber formats REP-YYMMDD-NNNN with a random suffix.
func GenerateTicketNumber(now time.Time) string {
	return fmt.Sprintf("REP-%s-%04d", now.Format("060102"), rand.Intn(10000))
}
