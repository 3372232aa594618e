package models

import (
	"time"
)

const (
	NotificationCustomerSeated = "customer_seated"
	NotificationStaffAlert     = "staff_alert"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// Notification is an outbound message produced by a floor cycle. It is kept
// in the in-memory notification log and handed to delivery sinks; it is not
// persisted.
type Notification struct {
	SequenceID uint64    `json:"sequence_id"`
	CycleID    string    `json:"cycle_id"`
	Type       string    `json:"type"`
	Recipient  string    `json:"recipient"`
	Contact    string    `json:"contact,omitempty"`
	Message    string    `json:"message"`
	Priority   string    `json:"priority"`
	TableID    uint      `json:"table_id"`
	EntryID    *uint     `json:"queue_entry_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
