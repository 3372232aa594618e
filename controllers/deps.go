package controllers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-floor/database"
	"github.com/yeremiapane/restaurant-floor/floor"
	"github.com/yeremiapane/restaurant-floor/hub"
	"github.com/yeremiapane/restaurant-floor/services"
	"github.com/yeremiapane/restaurant-floor/utils"
)

// Deps is what the floor controllers share.
type Deps struct {
	Store       *database.FloorStore
	Coordinator *floor.Coordinator
	Hub         *hub.Hub
	Monitor     *services.FloorMonitor
	Now         func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

var ErrInvalidID = errors.New("invalid id")

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, c.Param(name))
	}
	return uint(id), nil
}

// cycleOutcome describes the floor cycle run after a change.
type cycleOutcome struct {
	Result *floor.CycleResult
	// Err is set when the change was committed but the cycle failed.
	Err error
}

// mutateAndCycle applies mutate and runs a floor cycle right after it. The
// returned error is mutate's; a failed cycle is reported in the outcome and
// leaves the change committed.
func (d *Deps) mutateAndCycle(ctx context.Context, mutate func(ctx context.Context) error) (cycleOutcome, error) {
	applied := false
	result, err := d.Coordinator.Trigger(ctx, d.now(), func(ctx context.Context) error {
		if err := mutate(ctx); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err == nil {
		return cycleOutcome{Result: result}, nil
	}
	if applied {
		utils.ErrorLogger.Printf("Floor cycle after update failed: %v", err)
		return cycleOutcome{Err: err}, nil
	}
	return cycleOutcome{}, err
}

func (o cycleOutcome) data() interface{} {
	if o.Err != nil {
		return map[string]interface{}{"error": o.Err.Error()}
	}
	if o.Result == nil {
		return nil
	}
	return map[string]interface{}{
		"cycle_id": o.Result.CycleID,
		"summary":  o.Result.Summary,
	}
}

// matchFor returns the match of entryID made by the cycle, if any.
func (o cycleOutcome) matchFor(entryID uint) *floor.Match {
	if o.Result == nil {
		return nil
	}
	for i := range o.Result.Matches {
		if o.Result.Matches[i].QueueEntryID == entryID {
			return &o.Result.Matches[i]
		}
	}
	return nil
}
