package orchestrator

import (
	"context"
	"time"

	"github.com/oshokin/alarm-clock/internal/device/link"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/schedule"
)

// syncAnchor designates the minute of the day the clock is synchronized in:
// the hour and minute of this instant in the active zone.
//
//nolint:gochecknoglobals // Fixed point in time.
var syncAnchor = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// TimeSyncCoordinator resynchronizes the clock once a day.
type TimeSyncCoordinator struct {
	synchronizer ClockSynchronizer
	// synced is set while the anchor minute lasts once a sync was attempted.
	synced bool
}

// NewTimeSyncCoordinator creates the coordinator.
func NewTimeSyncCoordinator(synchronizer ClockSynchronizer) *TimeSyncCoordinator {
	return &TimeSyncCoordinator{synchronizer: synchronizer}
}

// SyncIfDue synchronizes the clock when now falls in the anchor minute and
// no attempt was made in it yet. A failed attempt waits for the next day.
func (c *TimeSyncCoordinator) SyncIfDue(ctx context.Context, now time.Time) {
	due := schedule.SameMinute(syncAnchor, now)

	switch {
	case due && !c.synced:
		ctx = logger.WithName(ctx, "time-sync")

		if err := c.synchronizer.Sync(ctx, link.OneShot); err != nil {
			logger.ErrorKV(ctx, "Clock synchronization failed, retrying on the next window", "error", err)
		}

		c.synced = true
	case !due && c.synced:
		c.synced = false
	}
}

// Synced reports the latch.
func (c *TimeSyncCoordinator) Synced() bool {
	return c.synced
}
