package models

import "time"

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
)

type Table struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TableNumber   string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"number"`
	Capacity      int        `gorm:"not null" json:"capacity"`
	Status        string     `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	OccupiedSince *time.Time `json:"occupied_since"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

// ValidTableStatus reports whether s is one of the known table states.
func ValidTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved:
		return true
	}
	return false
}

// SetStatus moves the table to status and keeps OccupiedSince consistent:
// it is set to now when the table becomes occupied and cleared otherwise.
func (t *Table) SetStatus(status string, now time.Time) {
	t.Status = status
	if status == TableStatusOccupied {
		since := now
		t.OccupiedSince = &since
		return
	}
	t.OccupiedSince = nil
}
