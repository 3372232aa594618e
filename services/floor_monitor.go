package services

import (
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-floor/floor"
)

// FloorMetrics counts what the floor cycles have done since start.
type FloorMetrics struct {
	CyclesRun          int64          `json:"cycles_run"`
	CyclesFailed       int64          `json:"cycles_failed"`
	TotalMatches       int64          `json:"total_matches"`
	TotalAlerts        int64          `json:"total_alerts"`
	TotalNotifications int64          `json:"total_notifications"`
	SkippedRecords     int64          `json:"skipped_records"`
	LastCycleID        string         `json:"last_cycle_id,omitempty"`
	LastCycleAt        *time.Time     `json:"last_cycle_at,omitempty"`
	LastSummary        *floor.Summary `json:"last_summary,omitempty"`
	LastError          string         `json:"last_error,omitempty"`
}

// FloorMonitor collects FloorMetrics as a floor.CycleObserver.
type FloorMonitor struct {
	metrics FloorMetrics
	mutex   sync.Mutex
}

func NewFloorMonitor() *FloorMonitor {
	return &FloorMonitor{}
}

var _ floor.CycleObserver = (*FloorMonitor)(nil)

func (m *FloorMonitor) ObserveCycle(result *floor.CycleResult, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err != nil {
		m.metrics.CyclesFailed++
		m.metrics.LastError = err.Error()
		return
	}

	m.metrics.CyclesRun++
	m.metrics.TotalMatches += int64(result.Summary.MatchesFound)
	m.metrics.TotalAlerts += int64(result.Summary.Alerts)
	m.metrics.TotalNotifications += int64(len(result.Notifications))
	m.metrics.SkippedRecords += int64(len(result.Skipped))
	m.metrics.LastCycleID = result.CycleID
	at := result.Timestamp
	m.metrics.LastCycleAt = &at
	summary := result.Summary
	m.metrics.LastSummary = &summary
	m.metrics.LastError = ""
}

// GetMetrics returns a copy of the current metrics.
func (m *FloorMonitor) GetMetrics() FloorMetrics {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.metrics
}
