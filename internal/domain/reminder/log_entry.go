package reminder

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the recorded outcome of one channel attempt.
type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// LogEntry is an append-only audit record, one per attempted channel delivery.
// Corresponds to the 'notifications' table.
type LogEntry struct {
	ID           uuid.UUID
	ReminderID   uuid.UUID
	UserID       uuid.UUID
	Message      string
	Channel      Channel
	Status       DeliveryStatus
	SentAt       time.Time
	ExternalID   sql.NullString // provider message id
	ErrorMessage sql.NullString
	Attempts     int
}
