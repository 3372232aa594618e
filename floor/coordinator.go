// Package floor runs the decision cycle of the restaurant floor: it detects
// stale occupancies, seats queued parties at free tables, compacts the queue,
// estimates waits and notifies customers and staff.
package floor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-floor/models"
)

type Summary struct {
	TotalTables     int `json:"total_tables"`
	AvailableTables int `json:"available_tables"`
	OccupiedTables  int `json:"occupied_tables"`
	ReservedTables  int `json:"reserved_tables"`
	QueueLength     int `json:"queue_length"`
	MatchesFound    int `json:"matches_found"`
	Alerts          int `json:"alerts"`
}

type CycleResult struct {
	CycleID         string                `json:"cycle_id"`
	Timestamp       time.Time             `json:"timestamp"`
	Summary         Summary               `json:"summary"`
	Matches         []Match               `json:"matches"`
	Alerts          []Alert               `json:"alerts"`
	Recommendations []Recommendation      `json:"recommendations"`
	PositionUpdates []PositionUpdate      `json:"position_updates"`
	WaitEstimates   []WaitEstimate        `json:"wait_estimates"`
	Notifications   []models.Notification `json:"notifications"`
	Exclusions      []Exclusion           `json:"exclusions"`
	Skipped         []SkippedRecord       `json:"skipped"`
}

// Analysis is a read-only view of what a cycle would do right now.
type Analysis struct {
	Timestamp       time.Time           `json:"timestamp"`
	Summary         Summary             `json:"summary"`
	Occupancy       []OccupiedTable     `json:"occupancy"`
	Alerts          []Alert             `json:"alerts"`
	Recommendations []Recommendation    `json:"recommendations"`
	Matches         []Match             `json:"proposed_matches"`
	Residual        []models.QueueEntry `json:"residual_queue"`
	Exclusions      []Exclusion         `json:"exclusions"`
}

// CycleObserver is told about every finished cycle. err is non-nil when the
// cycle failed, in which case result is nil.
type CycleObserver interface {
	ObserveCycle(result *CycleResult, err error)
}

type Option func(*Coordinator)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func WithObserver(o CycleObserver) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, o) }
}

// WithIDGenerator replaces the uuid cycle id generator.
func WithIDGenerator(gen func() string) Option {
	return func(c *Coordinator) { c.newID = gen }
}

// Coordinator runs floor cycles one at a time against a Store.
type Coordinator struct {
	store     Store
	policy    Policy
	notifier  *Notifier
	logger    logrus.FieldLogger
	observers []CycleObserver
	newID     func() string

	mu sync.Mutex
}

func NewCoordinator(store Store, policy Policy, notifier *Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		policy:   policy,
		notifier: notifier,
		logger:   logrus.StandardLogger(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Policy() Policy { return c.policy }

func (c *Coordinator) Notifier() *Notifier { return c.notifier }

// RunCycle runs one full cycle and commits its effects atomically.
func (c *Coordinator) RunCycle(ctx context.Context, now time.Time) (*CycleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runCycle(ctx, now)
}

// Trigger applies mutate and then runs a cycle, holding the cycle lock for
// both so no other cycle observes the store between the two.
func (c *Coordinator) Trigger(ctx context.Context, now time.Time, mutate func(ctx context.Context) error) (*CycleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := mutate(ctx); err != nil {
		return nil, err
	}
	result, err := c.runCycle(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("floor cycle: %w", err)
	}
	return result, nil
}

// Analyze reports occupancy and the matches a cycle would make, without
// writing anything or notifying anyone.
func (c *Coordinator) Analyze(ctx context.Context, now time.Time) (*Analysis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := BuildSnapshot(ctx, c.store)
	if err != nil {
		return nil, err
	}
	report := MonitorOccupancy(snap.Tables, now, c.policy)
	match := MatchQueue(snap.Queue, report.Available)

	return &Analysis{
		Timestamp:       now,
		Summary:         summarize(snap, report, match),
		Occupancy:       report.Occupancy,
		Alerts:          report.Alerts,
		Recommendations: report.Recommendations,
		Matches:         match.Matches,
		Residual:        match.Residual,
		Exclusions:      match.Exclusions,
	}, nil
}

func (c *Coordinator) runCycle(ctx context.Context, now time.Time) (*CycleResult, error) {
	cycleID := c.newID()
	log := c.logger.WithField("cycle_id", cycleID)

	result, err := c.cycle(ctx, now, cycleID, log)
	if err != nil {
		log.WithError(err).Error("floor cycle failed")
	}
	for _, o := range c.observers {
		o.ObserveCycle(result, err)
	}
	return result, err
}

func (c *Coordinator) cycle(ctx context.Context, now time.Time, cycleID string, log logrus.FieldLogger) (*CycleResult, error) {
	snap, err := BuildSnapshot(ctx, c.store)
	if err != nil {
		return nil, err
	}

	report := MonitorOccupancy(snap.Tables, now, c.policy)
	for _, a := range report.Alerts {
		log.WithFields(logrus.Fields{
			"table_id":        a.TableID,
			"table_number":    a.TableNumber,
			"elapsed_minutes": fmt.Sprintf("%.1f", a.ElapsedMinutes),
		}).Warn("stale table occupancy")
	}

	match := MatchQueue(snap.Queue, report.Available)
	for _, ex := range match.Exclusions {
		log.WithFields(logrus.Fields{
			"kind":   ex.Kind,
			"id":     ex.ID,
			"reason": ex.Reason,
		}).Warn("record excluded from matching")
	}

	compacted, positions := CompactQueue(match.Residual)
	availableCount, anyOccupied := c.estimatorInputs(report, match)
	estimates := EstimateWaits(compacted, availableCount, anyOccupied, c.policy.WaitIncrementMinutes)

	batch := c.notifier.Compose(cycleID, match.Matches, report.Alerts, now)
	wb := buildWriteBack(now, match.Matches, positions, estimates)

	var applied ApplyReport
	if !wb.Empty() {
		applied, err = c.store.ApplyWriteBack(ctx, wb)
		if err != nil {
			return nil, storeError("write back", err)
		}
	}
	seated := match.Matches
	if len(applied.Skipped) > 0 {
		for _, s := range applied.Skipped {
			log.WithFields(logrus.Fields{
				"kind": s.Kind,
				"id":   s.ID,
				"op":   s.Op,
			}).Warn("write-back record not found, skipped")
		}
		batch.Drop(touchesSkipped(applied.Skipped))
		seated = seatedMatches(match.Matches, applied.Skipped)

		if len(seated) < len(match.Matches) {
			p, e, err := c.recompact(ctx, snap.Queue, availableCount, anyOccupied)
			if err != nil {
				log.WithError(err).Error("queue not recompacted after skipped seatings, next cycle will")
			} else {
				positions, estimates = p, e
			}
		}
	}

	sent := c.notifier.Commit(batch)

	result := &CycleResult{
		CycleID:         cycleID,
		Timestamp:       now,
		Summary:         summarize(snap, report, match),
		Matches:         seated,
		Alerts:          report.Alerts,
		Recommendations: report.Recommendations,
		PositionUpdates: positions,
		WaitEstimates:   estimates,
		Notifications:   sent,
		Exclusions:      match.Exclusions,
		Skipped:         applied.Skipped,
	}
	result.Summary.MatchesFound = len(seated)
	if result.Skipped == nil {
		result.Skipped = []SkippedRecord{}
	}

	log.WithFields(logrus.Fields{
		"tables":        result.Summary.TotalTables,
		"available":     result.Summary.AvailableTables,
		"queue_length":  result.Summary.QueueLength,
		"matches":       result.Summary.MatchesFound,
		"alerts":        result.Summary.Alerts,
		"notifications": len(sent),
	}).Info("floor cycle complete")

	return result, nil
}

// estimatorInputs counts only the free tables that can seat anyone: tables
// excluded from matching never shorten a wait.
func (c *Coordinator) estimatorInputs(report OccupancyReport, match MatchResult) (int, bool) {
	if c.policy.Availability == AvailabilityAfterMatch {
		return len(match.Remaining), len(report.Occupied) > 0 || len(match.Matches) > 0
	}
	usable := len(report.Available)
	for _, ex := range match.Exclusions {
		if ex.Kind == RecordTable {
			usable--
		}
	}
	return usable, len(report.Occupied) > 0
}

// recompact closes the queue again after a seating was skipped. The party
// that kept its place still holds its old position, so the stored queue is
// renumbered in the order the cycle started with.
func (c *Coordinator) recompact(ctx context.Context, order []models.QueueEntry, availableCount int, anyOccupied bool) ([]PositionUpdate, []WaitEstimate, error) {
	queue, err := c.store.ListQueue(ctx)
	if err != nil {
		return nil, nil, storeError("read queue", err)
	}

	rank := make(map[uint]int, len(order))
	for i, e := range order {
		rank[e.ID] = i
	}
	sort.SliceStable(queue, func(i, j int) bool {
		ri, iok := rank[queue[i].ID]
		rj, jok := rank[queue[j].ID]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		case queue[i].Position != queue[j].Position:
			return queue[i].Position < queue[j].Position
		}
		return queue[i].ID < queue[j].ID
	})

	compacted, positions := CompactQueue(queue)
	estimates := EstimateWaits(compacted, availableCount, anyOccupied, c.policy.WaitIncrementMinutes)

	wb := WriteBack{Positions: positions}
	for _, e := range estimates {
		if e.Changed() {
			wb.Waits = append(wb.Waits, WaitUpdate{QueueEntryID: e.QueueEntryID, Minutes: e.Minutes})
		}
	}
	if !wb.Empty() {
		if _, err := c.store.ApplyWriteBack(ctx, wb); err != nil {
			return nil, nil, storeError("recompact queue", err)
		}
	}
	return positions, estimates, nil
}

func buildWriteBack(now time.Time, matches []Match, positions []PositionUpdate, estimates []WaitEstimate) WriteBack {
	wb := WriteBack{Positions: positions}
	for _, m := range matches {
		wb.Seatings = append(wb.Seatings, Seating{
			TableID:       m.TableID,
			QueueEntryID:  m.QueueEntryID,
			OccupiedSince: now,
		})
	}
	for _, e := range estimates {
		if e.Changed() {
			wb.Waits = append(wb.Waits, WaitUpdate{QueueEntryID: e.QueueEntryID, Minutes: e.Minutes})
		}
	}
	return wb
}

// touchesSkipped drops seating notices whose seating was not applied.
func touchesSkipped(skipped []SkippedRecord) func(models.Notification) bool {
	tables := make(map[uint]bool)
	entries := make(map[uint]bool)
	for _, s := range skipped {
		if s.Op != OpSeat {
			continue
		}
		switch s.Kind {
		case RecordTable:
			tables[s.ID] = true
		case RecordQueueEntry:
			entries[s.ID] = true
		}
	}
	return func(n models.Notification) bool {
		if n.Type != models.NotificationCustomerSeated {
			return false
		}
		if tables[n.TableID] {
			return true
		}
		return n.EntryID != nil && entries[*n.EntryID]
	}
}

// seatedMatches drops the matches whose seating was skipped.
func seatedMatches(matches []Match, skipped []SkippedRecord) []Match {
	lost := make(map[uint]bool)
	for _, s := range skipped {
		if s.Kind == RecordQueueEntry && s.Op == OpSeat {
			lost[s.ID] = true
		}
	}
	seated := make([]Match, 0, len(matches))
	for _, m := range matches {
		if !lost[m.QueueEntryID] {
			seated = append(seated, m)
		}
	}
	return seated
}

func summarize(snap Snapshot, report OccupancyReport, match MatchResult) Summary {
	return Summary{
		TotalTables:     len(snap.Tables),
		AvailableTables: len(report.Available),
		OccupiedTables:  len(report.Occupied),
		ReservedTables:  len(report.Reserved),
		QueueLength:     len(snap.Queue),
		MatchesFound:    len(match.Matches),
		Alerts:          len(report.Alerts),
	}
}
