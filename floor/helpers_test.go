package floor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-floor/models"
)

var testNow = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func ptrString(s string) *string { return &s }

func table(id uint, number string, capacity int, status string) models.Table {
	return models.Table{ID: id, TableNumber: number, Capacity: capacity, Status: status}
}

func occupiedTable(id uint, number string, capacity int, since time.Time) models.Table {
	t := table(id, number, capacity, models.TableStatusOccupied)
	t.OccupiedSince = ptrTime(since)
	return t
}

func entry(id uint, name string, size, position int) models.QueueEntry {
	return models.QueueEntry{ID: id, Name: name, PartySize: size, Position: position}
}

// memStore is an in-memory Store. ApplyWriteBack works on a copy and swaps it
// in only when the whole batch succeeded.
type memStore struct {
	mu      sync.Mutex
	tables  map[uint]models.Table
	queue   map[uint]models.QueueEntry
	listErr error
	// applyErr makes the next ApplyWriteBack calls fail.
	applyErr error
	applied  []WriteBack
}

var errBoom = errors.New("boom")

func newMemStore(tables []models.Table, queue []models.QueueEntry) *memStore {
	s := &memStore{
		tables: make(map[uint]models.Table),
		queue:  make(map[uint]models.QueueEntry),
	}
	for _, t := range tables {
		s.tables[t.ID] = t
	}
	for _, q := range queue {
		s.queue[q.ID] = q
	}
	return s
}

func (s *memStore) ListTables(ctx context.Context) ([]models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListQueue(ctx context.Context) ([]models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.QueueEntry, 0, len(s.queue))
	for _, q := range s.queue {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ApplyWriteBack(ctx context.Context, wb WriteBack) (ApplyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return ApplyReport{}, s.applyErr
	}

	tables := make(map[uint]models.Table, len(s.tables))
	for k, v := range s.tables {
		tables[k] = v
	}
	queue := make(map[uint]models.QueueEntry, len(s.queue))
	for k, v := range s.queue {
		queue[k] = v
	}

	var report ApplyReport
	for _, st := range wb.Seatings {
		t, tableOK := tables[st.TableID]
		_, entryOK := queue[st.QueueEntryID]
		if !tableOK || !entryOK {
			report.Skipped = append(report.Skipped,
				SkippedRecord{Kind: RecordTable, ID: st.TableID, Op: OpSeat},
				SkippedRecord{Kind: RecordQueueEntry, ID: st.QueueEntryID, Op: OpSeat},
			)
			continue
		}
		since := st.OccupiedSince
		t.Status = models.TableStatusOccupied
		t.OccupiedSince = &since
		tables[st.TableID] = t
		delete(queue, st.QueueEntryID)
	}
	for _, u := range wb.Positions {
		q, ok := queue[u.QueueEntryID]
		if !ok {
			report.Skipped = append(report.Skipped, SkippedRecord{Kind: RecordQueueEntry, ID: u.QueueEntryID, Op: OpUpdatePosition})
			continue
		}
		q.Position = u.NewPosition
		queue[u.QueueEntryID] = q
	}
	for _, u := range wb.Waits {
		q, ok := queue[u.QueueEntryID]
		if !ok {
			report.Skipped = append(report.Skipped, SkippedRecord{Kind: RecordQueueEntry, ID: u.QueueEntryID, Op: OpUpdateWait})
			continue
		}
		q.EstimatedWaitTime = u.Minutes
		queue[u.QueueEntryID] = q
	}

	s.tables = tables
	s.queue = queue
	s.applied = append(s.applied, wb)
	return report, nil
}

func (s *memStore) entry(id uint) (models.QueueEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queue[id]
	return q, ok
}

func (s *memStore) table(id uint) models.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[id]
}

// vanishingStore deletes a table or a queue entry right before the first
// write-back, as if a concurrent request had removed it.
type vanishingStore struct {
	*memStore
	tableID uint
	entryID uint
	done    bool
}

func (v *vanishingStore) ApplyWriteBack(ctx context.Context, wb WriteBack) (ApplyReport, error) {
	v.mu.Lock()
	if !v.done {
		delete(v.tables, v.tableID)
		delete(v.queue, v.entryID)
		v.done = true
	}
	v.mu.Unlock()
	return v.memStore.ApplyWriteBack(ctx, wb)
}
