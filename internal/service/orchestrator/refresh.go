package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/alarm-clock/internal/device/link"
	"github.com/oshokin/alarm-clock/internal/domain/clock"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/schedule"
)

// RefreshCoordinator fetches the configuration on the check schedule.
type RefreshCoordinator struct {
	connector Connector
	network   Network
	endpoint  string
	deviceID  string
	// defaults replaces the configuration whenever a fetch fails.
	defaults *clock.Configuration
	check    *schedule.Expression

	// nextCheck is the next instant a refresh is due at.
	nextCheck time.Time
	// checked is set while nextCheck's second lasts once a refresh was attempted.
	checked bool
}

// RefreshOptions configures a RefreshCoordinator.
type RefreshOptions struct {
	Connector Connector
	Network   Network
	// Endpoint is the address of the configuration service.
	Endpoint string
	DeviceID string
	Defaults *clock.Configuration
	// CheckExpression selects refresh instants.
	CheckExpression string
}

// NewRefreshCoordinator creates the coordinator with its first check after now.
// An unparsable check expression is returned as *schedule.InvalidExpressionError.
func NewRefreshCoordinator(opts *RefreshOptions, now time.Time) (*RefreshCoordinator, error) {
	check, err := schedule.Parse(opts.CheckExpression)
	if err != nil {
		return nil, err
	}

	c := &RefreshCoordinator{
		connector: opts.Connector,
		network:   opts.Network,
		endpoint:  opts.Endpoint,
		deviceID:  opts.DeviceID,
		defaults:  opts.Defaults,
		check:     check,
	}

	c.nextCheck = c.after(now)

	return c, nil
}

// RefreshIfDue fetches the configuration when now matches the previously
// computed check instant to the second. The next check is recomputed after
// now on every call, so a late tick never re-triggers the same check.
func (c *RefreshCoordinator) RefreshIfDue(ctx context.Context, session *Session, now time.Time) {
	previous := c.nextCheck
	c.nextCheck = c.after(now)

	due := !schedule.IsSentinel(previous) && schedule.SameSecond(previous, now)

	switch {
	case due && !c.checked:
		ctx = logger.WithName(ctx, "config-refresh")

		if err := c.connector.EnsureConnected(ctx, link.OneShot); err != nil {
			logger.DebugKV(ctx, "Link may be down, fetching anyway", "error", err)
		}

		session.ReplaceConfiguration(c.fetch(ctx))

		c.checked = true
	case !due && c.checked:
		c.checked = false
	}
}

// Load fetches the configuration, falling back to the defaults.
func (c *RefreshCoordinator) Load(ctx context.Context) *clock.Configuration {
	return c.fetch(logger.WithName(ctx, "config-refresh"))
}

// NextCheck returns the next refresh instant.
func (c *RefreshCoordinator) NextCheck() time.Time {
	return c.nextCheck
}

// Checked reports the latch.
func (c *RefreshCoordinator) Checked() bool {
	return c.checked
}

func (c *RefreshCoordinator) fetch(ctx context.Context) *clock.Configuration {
	configuration, err := c.network.FetchConfiguration(ctx, c.endpoint, c.deviceID)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to load remote configuration, using defaults", "error", err)

		return c.defaults.Clone()
	}

	logger.InfoKV(ctx, "Configuration received", "schedules", len(configuration.Schedules))

	return configuration
}

// after returns the first check instant after t or the Sentinel when the
// expression is exhausted.
func (c *RefreshCoordinator) after(t time.Time) time.Time {
	next, err := c.check.NextAfter(t, t.Location())
	if errors.Is(err, schedule.ErrNoOccurrence) {
		return schedule.Sentinel()
	}

	return next
}
