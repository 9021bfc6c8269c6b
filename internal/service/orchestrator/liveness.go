package orchestrator

import (
	"context"
	"time"

	"github.com/oshokin/alarm-clock/internal/device/link"
	"github.com/oshokin/alarm-clock/internal/domain/clock"
	"github.com/oshokin/alarm-clock/internal/logger"
)

const secondsPerMinute = 60

// LivenessCoordinator sends a liveness ping once a minute.
type LivenessCoordinator struct {
	connector Connector
	network   Network
	deviceID  string
	enabled   bool
	// registration is retried before a ping until the server accepted it.
	registration *clock.Registration
	// registrationEndpoint is the configuration service address.
	registrationEndpoint string
	registered           bool
	// second is the second of the minute pings go out at.
	second int
	// sent is set while that second lasts once a ping was attempted.
	sent bool
}

// LivenessOptions configures a LivenessCoordinator.
type LivenessOptions struct {
	Connector Connector
	Network   Network
	DeviceID  string
	// Enabled turns pings on.
	Enabled bool
	// BootSecond is the second of the minute the device booted at.
	BootSecond int
	// IntervalSeconds is the liveness interval of the boot configuration.
	IntervalSeconds uint32
	// Registration announces the device; it is sent again before pings
	// while Registered is false.
	Registration *clock.Registration
	// RegistrationEndpoint is where Registration is sent.
	RegistrationEndpoint string
	// Registered reports whether the boot registration succeeded.
	Registered bool
}

// NewLivenessCoordinator creates the coordinator. The ping second is
// (boot second + interval) mod 60 and is fixed for the process lifetime.
func NewLivenessCoordinator(opts *LivenessOptions) *LivenessCoordinator {
	return &LivenessCoordinator{
		connector: opts.Connector,
		network:   opts.Network,
		deviceID:  opts.DeviceID,
		enabled:   opts.Enabled,

		registration:         opts.Registration,
		registrationEndpoint: opts.RegistrationEndpoint,
		registered:           opts.Registered || opts.Registration == nil,

		second: int((uint64(opts.BootSecond) + uint64(opts.IntervalSeconds)) % secondsPerMinute),
	}
}

// StaleIntervalOffset returns the second of the minute pings go out at.
//
// Known limitation: it is computed once from the boot configuration. A
// refreshed configuration with another liveness interval does not move it.
func (c *LivenessCoordinator) StaleIntervalOffset() int {
	return c.second
}

// PingIfDue sends a ping when now is at the ping second and none was sent
// in it yet. Delivery failures are only logged.
func (c *LivenessCoordinator) PingIfDue(ctx context.Context, session *Session, now time.Time) {
	if !c.enabled {
		return
	}

	due := now.Second() == c.second

	switch {
	case due && !c.sent:
		ctx = logger.WithName(ctx, "liveness")

		if err := c.connector.EnsureConnected(ctx, link.OneShot); err != nil {
			logger.DebugKV(ctx, "Link may be down, pinging anyway", "error", err)
		}

		c.register(ctx)

		endpoint := session.Configuration.LivenessEndpoint
		if err := c.network.SendLiveness(ctx, c.deviceID, endpoint); err != nil {
			logger.ErrorKV(ctx, "Liveness ping failed", "endpoint", endpoint, "error", err)
		} else {
			logger.DebugKV(ctx, "Liveness ping sent", "endpoint", endpoint)
		}

		c.sent = true
	case !due && c.sent:
		c.sent = false
	}
}

// Sent reports the latch.
func (c *LivenessCoordinator) Sent() bool {
	return c.sent
}

// Registered reports whether the server accepted the device registration.
func (c *LivenessCoordinator) Registered() bool {
	return c.registered
}

// register repeats a registration that failed at boot.
func (c *LivenessCoordinator) register(ctx context.Context) {
	if c.registered {
		return
	}

	if err := c.network.RegisterDevice(ctx, c.registrationEndpoint, c.registration); err != nil {
		logger.ErrorKV(ctx, "Device registration failed, retrying on the next ping", "error", err)

		return
	}

	logger.Info(ctx, "Device registered")

	c.registered = true
}
