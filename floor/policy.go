package floor

import "fmt"

// AvailabilityBasis selects which table counts feed the wait estimator.
type AvailabilityBasis string

const (
	// AvailabilityBeforeMatch uses the tables that were free when the cycle
	// started and the tables that were already occupied.
	AvailabilityBeforeMatch AvailabilityBasis = "before_match"
	// AvailabilityAfterMatch uses the tables still free after matching and
	// counts the tables matched in this cycle as occupied.
	AvailabilityAfterMatch AvailabilityBasis = "after_match"
)

// Policy holds the tunables of a floor cycle. All durations are minutes.
type Policy struct {
	AvgDiningMinutes      int               `yaml:"avg_dining_minutes" json:"avg_dining_minutes"`
	StaleThresholdMinutes int               `yaml:"stale_threshold_minutes" json:"stale_threshold_minutes"`
	WaitIncrementMinutes  int               `yaml:"wait_increment_minutes" json:"wait_increment_minutes"`
	Availability          AvailabilityBasis `yaml:"availability" json:"availability"`
	NotificationLogSize   int               `yaml:"notification_log_size" json:"notification_log_size"`
}

func DefaultPolicy() Policy {
	return Policy{
		AvgDiningMinutes:      45,
		StaleThresholdMinutes: 60,
		WaitIncrementMinutes:  15,
		Availability:          AvailabilityBeforeMatch,
		NotificationLogSize:   200,
	}
}

func (p Policy) Validate() error {
	if p.AvgDiningMinutes <= 0 {
		return fmt.Errorf("avg dining minutes must be positive, got %d", p.AvgDiningMinutes)
	}
	if p.StaleThresholdMinutes <= 0 {
		return fmt.Errorf("stale threshold minutes must be positive, got %d", p.StaleThresholdMinutes)
	}
	if p.WaitIncrementMinutes <= 0 {
		return fmt.Errorf("wait increment minutes must be positive, got %d", p.WaitIncrementMinutes)
	}
	switch p.Availability {
	case AvailabilityBeforeMatch, AvailabilityAfterMatch:
	default:
		return fmt.Errorf("unknown availability basis %q", p.Availability)
	}
	if p.NotificationLogSize <= 0 {
		return fmt.Errorf("notification log size must be positive, got %d", p.NotificationLogSize)
	}
	return nil
}
