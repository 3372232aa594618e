package database

import (
	"context"
	"time"

	"github.com/yeremiapane/restaurant-floor/models"
	"github.com/yeremiapane/restaurant-floor/utils"
	"gorm.io/gorm"
)

// Seed fills an empty floor with the demo layout: eight tables and three
// waiting parties. It does nothing when any table exists and reports whether
// it wrote anything.
func Seed(ctx context.Context, db *gorm.DB, now time.Time) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Table{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	occupied := func(number string, capacity int) models.Table {
		t := models.Table{TableNumber: number, Capacity: capacity}
		t.SetStatus(models.TableStatusOccupied, now)
		return t
	}
	tables := []models.Table{
		{TableNumber: "T1", Capacity: 2, Status: models.TableStatusAvailable},
		occupied("T2", 4),
		{TableNumber: "T3", Capacity: 4, Status: models.TableStatusAvailable},
		{TableNumber: "T4", Capacity: 6, Status: models.TableStatusReserved},
		{TableNumber: "T5", Capacity: 2, Status: models.TableStatusAvailable},
		occupied("T6", 8),
		{TableNumber: "T7", Capacity: 4, Status: models.TableStatusAvailable},
		occupied("T8", 2),
	}

	phone := func(s string) *string { return &s }
	queue := []models.QueueEntry{
		{Name: "John Doe", PartySize: 4, Phone: phone("555-0001"), Position: 1, EstimatedWaitTime: 15, JoinedAt: now},
		{Name: "Jane Smith", PartySize: 2, Phone: phone("555-0002"), Position: 2, EstimatedWaitTime: 25, JoinedAt: now},
		{Name: "Bob Johnson", PartySize: 6, Phone: phone("555-0003"), Position: 3, EstimatedWaitTime: 35, JoinedAt: now},
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tables).Error; err != nil {
			return err
		}
		return tx.Create(&queue).Error
	})
	if err != nil {
		return false, err
	}

	utils.InfoLogger.Printf("Seeded %d tables and %d queue entries", len(tables), len(queue))
	return true, nil
}
