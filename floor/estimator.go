package floor

import "github.com/yeremiapane/restaurant-floor/models"

const (
	immediateSeatingMinutes = 5
	minimumExpectedWait     = 10
	turnoverCredit          = 5
)

type WaitEstimate struct {
	QueueEntryID uint   `json:"queue_entry_id"`
	CustomerName string `json:"customer_name"`
	Position     int    `json:"position"`
	Minutes      int    `json:"estimated_wait_time"`
	Previous     int    `json:"previous_wait_time"`
}

// Changed reports whether the estimate differs from the stored value.
func (w WaitEstimate) Changed() bool { return w.Minutes != w.Previous }

// EstimateWait is the wait heuristic for a single queue position.
func EstimateWait(position, availableCount int, anyOccupied bool, incrementMinutes int) int {
	base := position * incrementMinutes
	if base < 0 {
		base = 0
	}
	if availableCount > 0 {
		return min(immediateSeatingMinutes, base)
	}
	if anyOccupied {
		return max(minimumExpectedWait, base-turnoverCredit)
	}
	return base
}

// EstimateWaits estimates every entry of queue from its current position.
func EstimateWaits(queue []models.QueueEntry, availableCount int, anyOccupied bool, incrementMinutes int) []WaitEstimate {
	estimates := make([]WaitEstimate, 0, len(queue))
	for _, entry := range queue {
		estimates = append(estimates, WaitEstimate{
			QueueEntryID: entry.ID,
			CustomerName: entry.Name,
			Position:     entry.Position,
			Minutes:      EstimateWait(entry.Position, availableCount, anyOccupied, incrementMinutes),
			Previous:     entry.EstimatedWaitTime,
		})
	}
	return estimates
}
