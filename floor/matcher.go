package floor

import (
	"fmt"

	"github.com/yeremiapane/restaurant-floor/models"
)

// Match pairs one queued party with one table for the current cycle.
type Match struct {
	QueueEntryID  uint   `json:"queue_entry_id"`
	CustomerName  string `json:"customer_name"`
	Contact       string `json:"contact"`
	PartySize     int    `json:"party_size"`
	TableID       uint   `json:"table_id"`
	TableNumber   string `json:"table_number"`
	TableCapacity int    `json:"table_capacity"`
}

// Exclusion records an entry or table that was kept out of matching because
// it violates a model constraint.
type Exclusion struct {
	Kind   string `json:"kind"`
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

type MatchResult struct {
	Matches []Match `json:"matches"`
	// Residual holds the unmatched entries in their original order.
	Residual []models.QueueEntry `json:"residual"`
	// Remaining holds the available tables nobody was seated at.
	Remaining  []models.Table `json:"-"`
	Exclusions []Exclusion    `json:"exclusions"`
}

// MatchQueue seats queued parties first-come-first-served. Each party gets the
// smallest free table that fits it, lowest id first on equal capacity. A party
// that fits nowhere stays queued and the scan moves on, so a large party never
// blocks a smaller one behind it.
//
// queue must be sorted by position. available is not modified.
func MatchQueue(queue []models.QueueEntry, available []models.Table) MatchResult {
	result := MatchResult{
		Matches:    []Match{},
		Residual:   []models.QueueEntry{},
		Exclusions: []Exclusion{},
	}

	pool := make([]models.Table, 0, len(available))
	for _, table := range available {
		if table.Capacity <= 0 {
			result.Exclusions = append(result.Exclusions, Exclusion{
				Kind:   RecordTable,
				ID:     table.ID,
				Reason: fmt.Sprintf("non-positive capacity %d", table.Capacity),
			})
			continue
		}
		pool = append(pool, table)
	}

	for _, entry := range queue {
		if entry.PartySize <= 0 {
			result.Exclusions = append(result.Exclusions, Exclusion{
				Kind:   RecordQueueEntry,
				ID:     entry.ID,
				Reason: fmt.Sprintf("non-positive party size %d", entry.PartySize),
			})
			result.Residual = append(result.Residual, entry)
			continue
		}

		best := bestFit(pool, entry.PartySize)
		if best < 0 {
			result.Residual = append(result.Residual, entry)
			continue
		}

		table := pool[best]
		pool = append(pool[:best], pool[best+1:]...)
		result.Matches = append(result.Matches, Match{
			QueueEntryID:  entry.ID,
			CustomerName:  entry.Name,
			Contact:       entry.Contact(),
			PartySize:     entry.PartySize,
			TableID:       table.ID,
			TableNumber:   table.TableNumber,
			TableCapacity: table.Capacity,
		})
	}

	result.Remaining = pool
	return result
}

// bestFit returns the index of the smallest table seating partySize, or -1.
func bestFit(pool []models.Table, partySize int) int {
	best := -1
	for i, table := range pool {
		if table.Capacity < partySize {
			continue
		}
		if best < 0 ||
			table.Capacity < pool[best].Capacity ||
			(table.Capacity == pool[best].Capacity && table.ID < pool[best].ID) {
			best = i
		}
	}
	return best
}
