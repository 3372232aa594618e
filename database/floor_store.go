package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-floor/floor"
	"github.com/yeremiapane/restaurant-floor/models"
	"gorm.io/gorm"
)

var (
	ErrTableNotFound   = errors.New("table not found")
	ErrEntryNotFound   = errors.New("queue entry not found")
	ErrDuplicateTable  = errors.New("table number already exists")
	ErrInvalidStatus   = errors.New("invalid table status")
	ErrInvalidCapacity = errors.New("capacity must be positive")
)

// FloorStore keeps tables and the waiting queue in a gorm database and
// implements floor.Store.
type FloorStore struct {
	DB *gorm.DB
}

func NewFloorStore(db *gorm.DB) *FloorStore {
	return &FloorStore{DB: db}
}

var _ floor.Store = (*FloorStore)(nil)

func (s *FloorStore) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *FloorStore) ListQueue(ctx context.Context) ([]models.QueueEntry, error) {
	var queue []models.QueueEntry
	if err := s.DB.WithContext(ctx).Order("position ASC, id ASC").Find(&queue).Error; err != nil {
		return nil, err
	}
	return queue, nil
}

// ApplyWriteBack applies the whole batch in one transaction. Rows that no
// longer exist are reported as skipped and do not fail the batch. A seating
// is checked on both sides first and skipped whole when either is gone.
func (s *FloorStore) ApplyWriteBack(ctx context.Context, wb floor.WriteBack) (floor.ApplyReport, error) {
	var report floor.ApplyReport

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report = floor.ApplyReport{}

		for _, st := range wb.Seatings {
			seated, err := seat(tx, st)
			if err != nil {
				return fmt.Errorf("seat entry %d at table %d: %w", st.QueueEntryID, st.TableID, err)
			}
			if !seated {
				report.Skipped = append(report.Skipped,
					floor.SkippedRecord{Kind: floor.RecordTable, ID: st.TableID, Op: floor.OpSeat},
					floor.SkippedRecord{Kind: floor.RecordQueueEntry, ID: st.QueueEntryID, Op: floor.OpSeat},
				)
			}
		}

		for _, u := range wb.Positions {
			res := tx.Model(&models.QueueEntry{}).Where("id = ?", u.QueueEntryID).Update("position", u.NewPosition)
			found, err := rowFound(tx, res, &models.QueueEntry{}, u.QueueEntryID)
			if err != nil {
				return fmt.Errorf("update position of entry %d: %w", u.QueueEntryID, err)
			}
			if !found {
				report.Skipped = append(report.Skipped, floor.SkippedRecord{Kind: floor.RecordQueueEntry, ID: u.QueueEntryID, Op: floor.OpUpdatePosition})
			}
		}

		for _, u := range wb.Waits {
			res := tx.Model(&models.QueueEntry{}).Where("id = ?", u.QueueEntryID).Update("estimated_wait_time", u.Minutes)
			found, err := rowFound(tx, res, &models.QueueEntry{}, u.QueueEntryID)
			if err != nil {
				return fmt.Errorf("update wait of entry %d: %w", u.QueueEntryID, err)
			}
			if !found {
				report.Skipped = append(report.Skipped, floor.SkippedRecord{Kind: floor.RecordQueueEntry, ID: u.QueueEntryID, Op: floor.OpUpdateWait})
			}
		}
		return nil
	})
	if err != nil {
		return floor.ApplyReport{}, err
	}
	return report, nil
}

// seat occupies the table and removes the queue entry. It reports false and
// changes nothing when either row is missing.
func seat(tx *gorm.DB, st floor.Seating) (bool, error) {
	var tables, entries int64
	if err := tx.Model(&models.Table{}).Where("id = ?", st.TableID).Count(&tables).Error; err != nil {
		return false, err
	}
	if err := tx.Model(&models.QueueEntry{}).Where("id = ?", st.QueueEntryID).Count(&entries).Error; err != nil {
		return false, err
	}
	if tables == 0 || entries == 0 {
		return false, nil
	}

	since := st.OccupiedSince
	if err := tx.Model(&models.Table{}).Where("id = ?", st.TableID).Updates(map[string]interface{}{
		"status":         models.TableStatusOccupied,
		"occupied_since": &since,
	}).Error; err != nil {
		return false, err
	}
	if err := tx.Delete(&models.QueueEntry{}, st.QueueEntryID).Error; err != nil {
		return false, err
	}
	return true, nil
}

// rowFound tells a missing row apart from an update that changed nothing,
// which some drivers also report as zero affected rows.
func rowFound(tx *gorm.DB, res *gorm.DB, model interface{}, id uint) (bool, error) {
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateTable inserts a table. An empty status means available.
func (s *FloorStore) CreateTable(ctx context.Context, table *models.Table, now time.Time) error {
	if table.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if table.Status == "" {
		table.Status = models.TableStatusAvailable
	}
	if !models.ValidTableStatus(table.Status) {
		return ErrInvalidStatus
	}
	table.SetStatus(table.Status, now)

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Table{}).Where("table_number = ?", table.TableNumber).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateTable
		}
		return tx.Create(table).Error
	})
}

func (s *FloorStore) GetTable(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := s.DB.WithContext(ctx).First(&table, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &table, nil
}

// SetTableStatus changes the status of a table. Occupying a table stamps
// OccupiedSince with now, any other status clears it.
func (s *FloorStore) SetTableStatus(ctx context.Context, id uint, status string, now time.Time) (*models.Table, error) {
	if !models.ValidTableStatus(status) {
		return nil, ErrInvalidStatus
	}
	table, err := s.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	table.SetStatus(status, now)
	if err := s.DB.WithContext(ctx).Model(table).Updates(map[string]interface{}{
		"status":         table.Status,
		"occupied_since": table.OccupiedSince,
	}).Error; err != nil {
		return nil, err
	}
	return table, nil
}

func (s *FloorStore) DeleteTable(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.Table{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTableNotFound
	}
	return nil
}

// JoinQueue appends a party to the end of the queue. The initial estimate is
// one wait increment; the next cycle replaces it.
func (s *FloorStore) JoinQueue(ctx context.Context, entry *models.QueueEntry, initialWait int, now time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition int
		if err := tx.Model(&models.QueueEntry{}).Select("COALESCE(MAX(position), 0)").Scan(&maxPosition).Error; err != nil {
			return err
		}
		entry.ID = 0
		entry.Position = maxPosition + 1
		entry.EstimatedWaitTime = initialWait
		entry.JoinedAt = now
		return tx.Create(entry).Error
	})
}

func (s *FloorStore) GetEntry(ctx context.Context, id uint) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	if err := s.DB.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// LeaveQueue removes a party. Positions are closed up by the next cycle.
func (s *FloorStore) LeaveQueue(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.QueueEntry{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}
