package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/alarm-clock/internal/device/actuator"
	"github.com/oshokin/alarm-clock/internal/device/link"
	"github.com/oshokin/alarm-clock/internal/domain/clock"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/schedule"
)

// Dependencies are the drivers and clients the orchestrator is built from.
type Dependencies struct {
	Connector    Connector
	Addresser    Addresser
	Synchronizer ClockSynchronizer
	Network      Network
	Actuator     actuator.Actuator
	// Now reads the wall clock; time.Now when nil.
	Now func() time.Time
}

// Settings are the static parameters of the orchestrator.
type Settings struct {
	// Endpoint is the configuration service address.
	Endpoint string
	// Device describes this unit; its DeviceID is filled in at boot.
	Device clock.Registration
	// Defaults replaces the configuration whenever it cannot be fetched.
	Defaults *clock.Configuration
	// CheckExpression selects configuration refresh instants.
	CheckExpression string
	// Tick is the loop period.
	Tick time.Duration
	// LivenessEnabled turns liveness pings on.
	LivenessEnabled bool
}

// Orchestrator decides every tick which periodic action is due.
type Orchestrator struct {
	actuator actuator.Actuator
	now      func() time.Time
	tick     time.Duration
	deviceID string

	session  *Session
	timeSync *TimeSyncCoordinator
	refresh  *RefreshCoordinator
	liveness *LivenessCoordinator
}

// Boot brings the device up and returns a ready orchestrator.
//
// It blocks until the link is up and the clock is synchronized, registers
// the device, then loads the configuration or falls back to the defaults.
// Boot fails only when ctx is done, the device has no identity or the
// check expression does not parse.
func Boot(ctx context.Context, deps *Dependencies, settings *Settings) (*Orchestrator, error) {
	ctx = logger.WithName(ctx, "boot")

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	if err := deps.Connector.EnsureConnected(ctx, link.Persistent); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	deviceID, err := deps.Addresser.DeviceAddress()
	if err != nil {
		return nil, fmt.Errorf("resolve device address: %w", err)
	}

	ctx = logger.WithKV(ctx, "device_id", deviceID)
	logger.Info(ctx, "Device identity resolved")

	if err = deps.Synchronizer.Sync(ctx, link.Persistent); err != nil {
		return nil, fmt.Errorf("synchronize clock: %w", err)
	}

	registration := settings.Device
	registration.DeviceID = deviceID

	registered := true

	if err = deps.Network.RegisterDevice(ctx, settings.Endpoint, &registration); err != nil {
		logger.ErrorKV(ctx, "Device registration failed, retrying with liveness pings", "error", err)

		registered = false
	} else {
		logger.Info(ctx, "Device registered")
	}

	bootTime := now()

	refresh, err := NewRefreshCoordinator(&RefreshOptions{
		Connector:       deps.Connector,
		Network:         deps.Network,
		Endpoint:        settings.Endpoint,
		DeviceID:        deviceID,
		Defaults:        settings.Defaults,
		CheckExpression: settings.CheckExpression,
	}, bootTime)
	if err != nil {
		return nil, err
	}

	configuration := refresh.Load(ctx)

	liveness := NewLivenessCoordinator(&LivenessOptions{
		Connector:       deps.Connector,
		Network:         deps.Network,
		DeviceID:        deviceID,
		Enabled:         settings.LivenessEnabled,
		BootSecond:      bootTime.Second(),
		IntervalSeconds: configuration.LivenessIntervalSeconds,

		Registration:         &registration,
		RegistrationEndpoint: settings.Endpoint,
		Registered:           registered,
	})

	o := &Orchestrator{
		actuator: deps.Actuator,
		now:      now,
		tick:     settings.Tick,
		deviceID: deviceID,
		session:  &Session{Configuration: configuration},
		timeSync: NewTimeSyncCoordinator(deps.Synchronizer),
		refresh:  refresh,
		liveness: liveness,
	}

	if err = o.recompute(ctx, bootTime); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Boot complete",
		"next_alarm", o.session.NextAlarm,
		"liveness_second", liveness.StaleIntervalOffset(),
	)

	return o, nil
}

// Tick runs one iteration of the loop at now.
//
// While the next alarm's arrival window is open it pulses the actuator and
// nothing else. Otherwise it recomputes a stale alarm and consults the time
// sync, refresh and liveness coordinators in that order. The only error is
// an unparsable schedule expression.
func (o *Orchestrator) Tick(ctx context.Context, now time.Time) error {
	now = now.In(o.session.Zone())

	if schedule.InArrivalWindow(o.session.NextAlarm, now, o.session.Configuration.AlarmWindowMinutes) {
		logger.InfoKV(ctx, "Alarm", "scheduled", o.session.NextAlarm)

		o.actuator.Pulse(ctx)
		o.session.AlarmIsFresh = false

		return nil
	}

	if !o.session.AlarmIsFresh {
		if err := o.recompute(ctx, now); err != nil {
			return err
		}
	}

	o.timeSync.SyncIfDue(ctx, now)
	o.refresh.RefreshIfDue(ctx, o.session, now)
	o.liveness.PingIfDue(ctx, o.session, now)

	return nil
}

// Run ticks until ctx is done, which is not an error, or until Tick fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx = logger.WithKV(logger.WithName(ctx, "orchestrator"), "device_id", o.deviceID)

	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	for {
		if err := o.Tick(ctx, o.now()); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Orchestrator stopped")

			return nil
		case <-ticker.C:
		}
	}
}

// Session returns the live session state.
func (o *Orchestrator) Session() *Session {
	return o.session
}

// DeviceID returns the identity resolved at boot.
func (o *Orchestrator) DeviceID() string {
	return o.deviceID
}

// recompute selects the next alarm from the active schedules.
func (o *Orchestrator) recompute(ctx context.Context, now time.Time) error {
	zone := o.session.Zone()

	next, err := schedule.Earliest(ctx, o.session.Configuration.Expressions(), now, zone)
	if err != nil {
		var invalid *schedule.InvalidExpressionError
		if errors.As(err, &invalid) {
			return err
		}

		return fmt.Errorf("select next alarm: %w", err)
	}

	if !next.Equal(o.session.NextAlarm) {
		logger.InfoKV(ctx, "Next alarm", "at", next, "sentinel", schedule.IsSentinel(next))
	}

	o.session.NextAlarm = next
	o.session.AlarmIsFresh = true

	return nil
}
