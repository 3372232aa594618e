package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-floor/floor"
	"github.com/yeremiapane/restaurant-floor/models"
	"github.com/yeremiapane/restaurant-floor/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var now = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

// setupTestDB opens a private in-memory sqlite database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func createTable(t *testing.T, s *FloorStore, number string, capacity int, status string) models.Table {
	t.Helper()
	table := models.Table{TableNumber: number, Capacity: capacity, Status: status}
	require.NoError(t, s.CreateTable(context.Background(), &table, now))
	return table
}

func joinQueue(t *testing.T, s *FloorStore, name string, size int) models.QueueEntry {
	t.Helper()
	entry := models.QueueEntry{Name: name, PartySize: size}
	require.NoError(t, s.JoinQueue(context.Background(), &entry, 15, now))
	return entry
}

func TestFloorStore_CreateTable(t *testing.T) {
	s := NewFloorStore(setupTestDB(t))
	ctx := context.Background()

	t1 := createTable(t, s, "T1", 2, "")
	assert.Equal(t, models.TableStatusAvailable, t1.Status)
	assert.Nil(t, t1.OccupiedSince)

	t2 := createTable(t, s, "T2", 4, models.TableStatusOccupied)
	require.NotNil(t, t2.OccupiedSince)
	assert.True(t, t2.OccupiedSince.Equal(now))

	dup := models.Table{TableNumber: "T1", Capacity: 2}
	assert.ErrorIs(t, s.CreateTable(ctx, &dup, now), ErrDuplicateTable)

	bad := models.Table{TableNumber: "T3", Capacity: 0}
	assert.ErrorIs(t, s.CreateTable(ctx, &bad, now), ErrInvalidCapacity)

	bad = models.Table{TableNumber: "T3", Capacity: 2, Status: "dirty"}
	assert.ErrorIs(t, s.CreateTable(ctx, &bad, now), ErrInvalidStatus)

	tables, err := s.ListTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 2)
}

func TestFloorStore_SetTableStatus(t *testing.T) {
	s := NewFloorStore(setupTestDB(t))
	ctx := context.Background()
	table := createTable(t, s, "T1", 4, models.TableStatusAvailable)

	updated, err := s.SetTableStatus(ctx, table.ID, models.TableStatusOccupied, now)
	require.NoError(t, err)
	require.NotNil(t, updated.OccupiedSince)

	stored, err := s.GetTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusOccupied, stored.Status)
	require.NotNil(t, stored.OccupiedSince)
	assert.True(t, stored.OccupiedSince.Equal(now))

	_, err = s.SetTableStatus(ctx, table.ID, models.TableStatusAvailable, now)
	require.NoError(t, err)
	stored, err = s.GetTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.OccupiedSince)

	_, err = s.SetTableStatus(ctx, 999, models.TableStatusOccupied, now)
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = s.SetTableStatus(ctx, table.ID, "broken", now)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestFloorStore_DeleteTable(t *testing.T) {
	s := NewFloorStore(setupTestDB(t))
	ctx := context.Background()
	table := createTable(t, s, "T1", 4, "")

	require.NoError(t, s.DeleteTable(ctx, table.ID))
	assert.ErrorIs(t, s.DeleteTable(ctx, table.ID), ErrTableNotFound)
}

func TestFloorStore_Queue(t *testing.T) {
	db := setupTestDB(t)
	s := NewFloorStore(db)
	ctx := context.Background()

	a := joinQueue(t, s, "A", 2)
	b := joinQueue(t, s, "B", 4)
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, 2, b.Position)
	assert.Equal(t, 15, b.EstimatedWaitTime)
	assert.True(t, b.JoinedAt.Equal(now))

	// a gap left by a departure is not reused
	require.NoError(t, s.LeaveQueue(ctx, a.ID))
	c := joinQueue(t, s, "C", 2)
	assert.Equal(t, 3, c.Position)

	assert.ErrorIs(t, s.LeaveQueue(ctx, a.ID), ErrEntryNotFound)
	_, err := s.GetEntry(ctx, a.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	got, err := s.GetEntry(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "C", got.Name)

	// equal positions fall back to id order
	require.NoError(t, db.Model(&models.QueueEntry{}).Where("id = ?", c.ID).Update("position", 2).Error)
	queue, err := s.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, []string{"B", "C"}, []string{queue[0].Name, queue[1].Name})
}

func TestFloorStore_ApplyWriteBack(t *testing.T) {
	s := NewFloorStore(setupTestDB(t))
	ctx := context.Background()
	t1 := createTable(t, s, "T1", 2, "")
	a := joinQueue(t, s, "A", 2)
	b := joinQueue(t, s, "B", 2)

	report, err := s.ApplyWriteBack(ctx, floor.WriteBack{
		Seatings:  []floor.Seating{{TableID: t1.ID, QueueEntryID: a.ID, OccupiedSince: now}},
		Positions: []floor.PositionUpdate{{QueueEntryID: b.ID, OldPosition: 2, NewPosition: 1}, {QueueEntryID: 407, OldPosition: 3, NewPosition: 2}},
		Waits:     []floor.WaitUpdate{{QueueEntryID: b.ID, Minutes: 10}, {QueueEntryID: 405, Minutes: 10}},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []floor.SkippedRecord{
		{Kind: floor.RecordQueueEntry, ID: 407, Op: floor.OpUpdatePosition},
		{Kind: floor.RecordQueueEntry, ID: 405, Op: floor.OpUpdateWait},
	}, report.Skipped)

	table, err := s.GetTable(ctx, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusOccupied, table.Status)
	require.NotNil(t, table.OccupiedSince)
	assert.True(t, table.OccupiedSince.Equal(now))

	queue, err := s.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, b.ID, queue[0].ID)
	assert.Equal(t, 1, queue[0].Position)
	assert.Equal(t, 10, queue[0].EstimatedWaitTime)
}

func TestFloorStore_ApplyWriteBackSeatingIsAllOrNothing(t *testing.T) {
	t.Run("table gone", func(t *testing.T) {
		s := NewFloorStore(setupTestDB(t))
		ctx := context.Background()
		t1 := createTable(t, s, "T1", 4, "")
		ana := joinQueue(t, s, "Ana", 2)
		require.NoError(t, s.DeleteTable(ctx, t1.ID))

		report, err := s.ApplyWriteBack(ctx, floor.WriteBack{
			Seatings: []floor.Seating{{TableID: t1.ID, QueueEntryID: ana.ID, OccupiedSince: now}},
		})
		require.NoError(t, err)

		assert.Equal(t, []floor.SkippedRecord{
			{Kind: floor.RecordTable, ID: t1.ID, Op: floor.OpSeat},
			{Kind: floor.RecordQueueEntry, ID: ana.ID, Op: floor.OpSeat},
		}, report.Skipped)
		got, err := s.GetEntry(ctx, ana.ID)
		require.NoError(t, err, "the party keeps its place in the queue")
		assert.Equal(t, 1, got.Position)
	})

	t.Run("entry gone", func(t *testing.T) {
		s := NewFloorStore(setupTestDB(t))
		ctx := context.Background()
		t1 := createTable(t, s, "T1", 4, "")
		ana := joinQueue(t, s, "Ana", 2)
		require.NoError(t, s.LeaveQueue(ctx, ana.ID))

		report, err := s.ApplyWriteBack(ctx, floor.WriteBack{
			Seatings: []floor.Seating{{TableID: t1.ID, QueueEntryID: ana.ID, OccupiedSince: now}},
		})
		require.NoError(t, err)

		assert.Len(t, report.Skipped, 2)
		table, err := s.GetTable(ctx, t1.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TableStatusAvailable, table.Status, "nobody sits at the table")
		assert.Nil(t, table.OccupiedSince)
	})
}

// tableRemover deletes a table right before the write-back, like a concurrent
// DELETE /tables/:id that slipped in between the cycle's read and write.
type tableRemover struct {
	*FloorStore
	tableID uint
}

func (r tableRemover) ApplyWriteBack(ctx context.Context, wb floor.WriteBack) (floor.ApplyReport, error) {
	if r.tableID != 0 {
		if err := r.DeleteTable(ctx, r.tableID); err != nil && !errors.Is(err, ErrTableNotFound) {
			return floor.ApplyReport{}, err
		}
	}
	return r.FloorStore.ApplyWriteBack(ctx, wb)
}

func TestFloorStore_CycleKeepsPartyWhenTableVanishes(t *testing.T) {
	s := NewFloorStore(setupTestDB(t))
	ctx := context.Background()
	t1 := createTable(t, s, "T1", 4, "")
	ana := joinQueue(t, s, "Ana", 2)

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	coord := floor.NewCoordinator(tableRemover{FloorStore: s, tableID: t1.ID}, floor.DefaultPolicy(), floor.NewNotifier(10), floor.WithLogger(quiet))

	result, err := coord.RunCycle(ctx, now)
	require.NoError(t, err)

	assert.Empty(t, result.Matches)
	assert.Empty(t, result.Notifications)
	assert.Len(t, result.Skipped, 2)

	got, err := s.GetEntry(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Position)
	assert.False(t, got.Notified, "nobody told Ana a table is ready")
}

func TestFloorStore_ApplyWriteBackUnchangedRowIsNotSkipped(t *testing.T) {
	s := NewFloorStore(setupTestDB(t))
	a := joinQueue(t, s, "A", 2)

	report, err := s.ApplyWriteBack(context.Background(), floor.WriteBack{
		Waits: []floor.WaitUpdate{{QueueEntryID: a.ID, Minutes: a.EstimatedWaitTime}},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
}

func TestFloorStore_ApplyWriteBackIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	s := NewFloorStore(db)
	t1 := createTable(t, s, "T1", 2, "")
	a := joinQueue(t, s, "A", 2)

	errBoom := errors.New("boom")
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_delete", func(d *gorm.DB) {
		d.AddError(errBoom)
	}))

	_, err := s.ApplyWriteBack(context.Background(), floor.WriteBack{
		Seatings: []floor.Seating{{TableID: t1.ID, QueueEntryID: a.ID, OccupiedSince: now}},
	})
	require.ErrorIs(t, err, errBoom)

	table, err := s.GetTable(context.Background(), t1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusAvailable, table.Status)
	assert.Nil(t, table.OccupiedSince)
}

func TestFloorStore_DrivesCoordinator(t *testing.T) {
	s := NewFloorStore(setupTestDB(t))
	createTable(t, s, "T1", 2, "")
	createTable(t, s, "T2", 4, "")
	joinQueue(t, s, "PartyA", 2)
	joinQueue(t, s, "PartyB", 4)
	c := joinQueue(t, s, "PartyC", 2)

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	coord := floor.NewCoordinator(s, floor.DefaultPolicy(), floor.NewNotifier(10), floor.WithLogger(quiet))

	result, err := coord.RunCycle(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.MatchesFound)

	queue, err := s.ListQueue(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, c.ID, queue[0].ID)
	assert.Equal(t, 1, queue[0].Position)
	assert.Equal(t, 5, queue[0].EstimatedWaitTime)

	tables, err := s.ListTables(context.Background())
	require.NoError(t, err)
	for _, tbl := range tables {
		assert.Equal(t, models.TableStatusOccupied, tbl.Status)
	}
}

func TestSeed(t *testing.T) {
	db := setupTestDB(t)
	s := NewFloorStore(db)
	ctx := context.Background()

	seeded, err := Seed(ctx, db, now)
	require.NoError(t, err)
	assert.True(t, seeded)

	tables, err := s.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 8)
	assert.Equal(t, "T1", tables[0].TableNumber)
	assert.Equal(t, models.TableStatusOccupied, tables[1].Status)
	assert.NotNil(t, tables[1].OccupiedSince)
	assert.Equal(t, models.TableStatusReserved, tables[3].Status)

	queue, err := s.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, "555-0001", queue[0].Contact())

	seeded, err = Seed(ctx, db, now)
	require.NoError(t, err)
	assert.False(t, seeded)
}
