package floor

import (
	"context"
	"sort"

	"github.com/yeremiapane/restaurant-floor/models"
)

// Snapshot is the working set of one cycle. Queue is sorted by position.
type Snapshot struct {
	Tables []models.Table
	Queue  []models.QueueEntry
}

func BuildSnapshot(ctx context.Context, store Store) (Snapshot, error) {
	tables, err := store.ListTables(ctx)
	if err != nil {
		return Snapshot{}, storeError("read tables", err)
	}
	queue, err := store.ListQueue(ctx)
	if err != nil {
		return Snapshot{}, storeError("read queue", err)
	}

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Position != queue[j].Position {
			return queue[i].Position < queue[j].Position
		}
		return queue[i].ID < queue[j].ID
	})

	return Snapshot{Tables: tables, Queue: queue}, nil
}
