package floor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-floor/models"
)

// Store is the persistence the cycle reads from and writes back to.
//
// ApplyWriteBack must apply the whole batch in one transaction. A record that
// no longer exists is not an error: it is reported in ApplyReport.Skipped and
// the rest of the batch is still applied. A seating whose table or queue entry
// is gone is skipped as a whole and reported once per side. Any other failure
// must leave the store untouched.
type Store interface {
	ListTables(ctx context.Context) ([]models.Table, error)
	ListQueue(ctx context.Context) ([]models.QueueEntry, error)
	ApplyWriteBack(ctx context.Context, wb WriteBack) (ApplyReport, error)
}

// Seating puts a matched party at its table: the table becomes occupied and
// the queue entry is removed. Both halves are applied or neither is.
type Seating struct {
	TableID       uint      `json:"table_id"`
	QueueEntryID  uint      `json:"queue_entry_id"`
	OccupiedSince time.Time `json:"occupied_since"`
}

type PositionUpdate struct {
	QueueEntryID uint `json:"queue_entry_id"`
	OldPosition  int  `json:"old_position"`
	NewPosition  int  `json:"new_position"`
}

type WaitUpdate struct {
	QueueEntryID uint `json:"queue_entry_id"`
	Minutes      int  `json:"estimated_wait_time"`
}

// WriteBack is every store mutation produced by one cycle.
type WriteBack struct {
	Seatings  []Seating        `json:"seatings"`
	Positions []PositionUpdate `json:"positions"`
	Waits     []WaitUpdate     `json:"waits"`
}

func (wb WriteBack) Empty() bool {
	return len(wb.Seatings) == 0 && len(wb.Positions) == 0 && len(wb.Waits) == 0
}

const (
	RecordTable      = "table"
	RecordQueueEntry = "queue_entry"

	OpSeat           = "seat"
	OpUpdatePosition = "update position"
	OpUpdateWait     = "update wait"
)

// SkippedRecord names a write-back record whose target was already gone.
type SkippedRecord struct {
	Kind string `json:"kind"`
	ID   uint   `json:"id"`
	Op   string `json:"op"`
}

type ApplyReport struct {
	Skipped []SkippedRecord `json:"skipped"`
}

// ErrStoreFailure matches every *StoreError via errors.Is.
var ErrStoreFailure = errors.New("floor store failure")

// StoreError aborts a cycle. Op names the step that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("floor store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

func storeError(op string, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
