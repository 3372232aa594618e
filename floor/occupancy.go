package floor

import (
	"math"
	"time"

	"github.com/yeremiapane/restaurant-floor/models"
)

const RecommendationNoTablesAvailable = "no_tables_available"

// Alert flags a table that has been occupied longer than the stale threshold.
type Alert struct {
	TableID        uint      `json:"table_id"`
	TableNumber    string    `json:"table_number"`
	OccupiedSince  time.Time `json:"occupied_since"`
	ElapsedMinutes float64   `json:"elapsed_minutes"`
}

type Recommendation struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// OccupiedTable describes how long an occupied table has been in use and when
// it is expected to free up given the average dining time.
type OccupiedTable struct {
	TableID               uint       `json:"table_id"`
	TableNumber           string     `json:"table_number"`
	Capacity              int        `json:"capacity"`
	OccupiedSince         *time.Time `json:"occupied_since"`
	ElapsedMinutes        float64    `json:"elapsed_minutes"`
	ExpectedFreeInMinutes float64    `json:"expected_free_in_minutes"`
	Stale                 bool       `json:"stale"`
}

type OccupancyReport struct {
	Available       []models.Table   `json:"-"`
	Occupied        []models.Table   `json:"-"`
	Reserved        []models.Table   `json:"-"`
	Occupancy       []OccupiedTable  `json:"occupancy"`
	Alerts          []Alert          `json:"alerts"`
	Recommendations []Recommendation `json:"recommendations"`
}

// MonitorOccupancy partitions tables by status and flags stale occupancies.
// Tables with an unknown status land in no partition.
func MonitorOccupancy(tables []models.Table, now time.Time, policy Policy) OccupancyReport {
	report := OccupancyReport{
		Alerts:          []Alert{},
		Recommendations: []Recommendation{},
		Occupancy:       []OccupiedTable{},
	}
	threshold := float64(policy.StaleThresholdMinutes)

	for _, table := range tables {
		switch table.Status {
		case models.TableStatusAvailable:
			report.Available = append(report.Available, table)
		case models.TableStatusReserved:
			report.Reserved = append(report.Reserved, table)
		case models.TableStatusOccupied:
			report.Occupied = append(report.Occupied, table)

			occupied := OccupiedTable{
				TableID:       table.ID,
				TableNumber:   table.TableNumber,
				Capacity:      table.Capacity,
				OccupiedSince: table.OccupiedSince,
			}
			if table.OccupiedSince != nil {
				elapsed := now.Sub(*table.OccupiedSince).Minutes()
				occupied.ElapsedMinutes = elapsed
				occupied.ExpectedFreeInMinutes = math.Max(0, float64(policy.AvgDiningMinutes)-elapsed)
				if elapsed > threshold {
					occupied.Stale = true
					report.Alerts = append(report.Alerts, Alert{
						TableID:        table.ID,
						TableNumber:    table.TableNumber,
						OccupiedSince:  *table.OccupiedSince,
						ElapsedMinutes: elapsed,
					})
				}
			}
			report.Occupancy = append(report.Occupancy, occupied)
		}
	}

	if len(report.Available) == 0 {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Type:    RecommendationNoTablesAvailable,
			Message: "No tables available - queue will grow",
		})
	}

	return report
}
