package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yeremiapane/restaurant-floor/floor"
	"github.com/yeremiapane/restaurant-floor/utils"
)

// CycleRunner is the part of the floor coordinator the scheduler drives.
type CycleRunner interface {
	RunCycle(ctx context.Context, now time.Time) (*floor.CycleResult, error)
}

// SweepFunc drops state that went stale by now and returns how many entries
// it removed.
type SweepFunc func(now time.Time) int

type sweep struct {
	name string
	fn   SweepFunc
}

// FloorScheduler runs floor cycles on a cron schedule so stale tables are
// noticed even when nobody touches the floor. Every hour it also sweeps
// expired revoked tokens and whatever was registered with AddSweep.
type FloorScheduler struct {
	cron    *cron.Cron
	runner  CycleRunner
	timeout time.Duration
	sweeps  []sweep
	Now     func() time.Time
}

// NewFloorScheduler accepts six-field cron specs (with seconds) and
// descriptors such as "@every 1m". An empty schedule only registers the
// hourly sweep.
func NewFloorScheduler(runner CycleRunner, schedule string) (*FloorScheduler, error) {
	logger := cron.PrintfLogger(utils.InfoLogger)
	s := &FloorScheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		runner:  runner,
		timeout: 30 * time.Second,
		Now:     time.Now,
		sweeps:  []sweep{{name: "expired revoked tokens", fn: func(time.Time) int { return utils.CleanupBlacklist() }}},
	}

	if schedule != "" {
		if _, err := s.cron.AddFunc(schedule, s.runScheduledCycle); err != nil {
			return nil, fmt.Errorf("invalid floor cycle schedule %q: %w", schedule, err)
		}
	}
	if _, err := s.cron.AddFunc("@hourly", func() { s.Sweep() }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FloorScheduler) Start() {
	s.cron.Start()
	utils.InfoLogger.Printf("Floor scheduler started with %d jobs", len(s.cron.Entries()))
}

// Stop halts the scheduler and waits for a running cycle to finish.
func (s *FloorScheduler) Stop() {
	<-s.cron.Stop().Done()
	utils.InfoLogger.Println("Floor scheduler stopped")
}

// RunOnce runs a single cycle at the scheduler's clock.
func (s *FloorScheduler) RunOnce(ctx context.Context) (*floor.CycleResult, error) {
	return s.runner.RunCycle(ctx, s.Now())
}

func (s *FloorScheduler) runScheduledCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		utils.ErrorLogger.Printf("Scheduled floor cycle failed: %v", err)
	}
}

// AddSweep registers fn with the hourly sweep. Call it before Start.
func (s *FloorScheduler) AddSweep(name string, fn SweepFunc) {
	s.sweeps = append(s.sweeps, sweep{name: name, fn: fn})
}

// Sweep runs every registered sweep at the scheduler's clock and returns the
// number of entries removed per sweep name.
func (s *FloorScheduler) Sweep() map[string]int {
	now := s.Now()
	removed := make(map[string]int, len(s.sweeps))
	for _, sw := range s.sweeps {
		n := sw.fn(now)
		removed[sw.name] = n
		if n > 0 {
			utils.InfoLogger.Printf("Removed %d %s", n, sw.name)
		}
	}
	return removed
}
