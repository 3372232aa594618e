package models

import "time"

type QueueEntry struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	PartySize         int       `gorm:"not null" json:"party_size"`
	Phone             *string   `gorm:"type:varchar(50)" json:"phone"`
	Position          int       `gorm:"not null;index" json:"position"`
	EstimatedWaitTime int       `gorm:"not null;default:0" json:"estimated_wait_time"`
	JoinedAt          time.Time `gorm:"not null" json:"joined_at"`
	// Notified stays false for every stored entry: a party is only notified
	// when it is seated, and seating deletes its entry in the same write-back.
	Notified          bool      `gorm:"not null;default:false" json:"notified"`
}

// TableName maps queue entries to the "queue" table.
func (QueueEntry) TableName() string {
	return "queue"
}

// Contact returns the phone number or "N/A" when the party left none.
func (q QueueEntry) Contact() string {
	if q.Phone == nil || *q.Phone == "" {
		return "N/A"
	}
	return *q.Phone
}
