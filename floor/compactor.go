package floor

import "github.com/yeremiapane/restaurant-floor/models"

// CompactQueue renumbers residual to positions 1..N in its current order and
// returns an update for every entry whose position changed.
func CompactQueue(residual []models.QueueEntry) ([]models.QueueEntry, []PositionUpdate) {
	compacted := make([]models.QueueEntry, len(residual))
	updates := []PositionUpdate{}

	for i, entry := range residual {
		position := i + 1
		if entry.Position != position {
			updates = append(updates, PositionUpdate{
				QueueEntryID: entry.ID,
				OldPosition:  entry.Position,
				NewPosition:  position,
			})
		}
		entry.Position = position
		compacted[i] = entry
	}

	return compacted, updates
}
