package orchestrator

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/device/link"
	"github.com/oshokin/alarm-clock/internal/domain/clock"
	"github.com/oshokin/alarm-clock/internal/schedule"
)

type testRig struct {
	connector    *fakeConnector
	synchronizer *fakeSynchronizer
	network      *fakeNetwork
	actuator     *fakeActuator
	deps         *Dependencies
	settings     *Settings
}

func newTestRig(now func() time.Time) *testRig {
	r := &testRig{
		connector:    newFakeConnector(),
		synchronizer: newFakeSynchronizer(),
		network:      &fakeNetwork{fetchErr: errTestNetwork},
		actuator:     &fakeActuator{},
	}

	r.deps = &Dependencies{
		Connector:    r.connector,
		Addresser:    &fakeAddresser{address: "aa:bb:cc:dd:ee:ff"},
		Synchronizer: r.synchronizer,
		Network:      r.network,
		Actuator:     r.actuator,
		Now:          now,
	}

	r.settings = &Settings{
		Endpoint: "127.0.0.1:50051",
		Device: clock.Registration{
			Type:        "alarm-clock",
			Name:        "bedroom",
			Description: "Bedside unit",
		},
		Defaults:        testDefaults(),
		CheckExpression: config.DefaultConfigCheck,
		Tick:            100 * time.Millisecond,
	}

	return r
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// mondayAt returns a time on Monday 2023-10-16 in UTC+01:00.
func mondayAt(hour, minute, sec int) time.Time {
	return time.Date(2023, time.October, 16, hour, minute, sec, 0, schedule.Zone(3600))
}

// TestBoot verifies the boot sequence and the initial alarm.
func TestBoot(t *testing.T) {
	t.Parallel()

	rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))

	o, err := Boot(context.Background(), rig.deps, rig.settings)
	require.NoError(t, err)

	require.Equal(t, 1, rig.connector.calls[link.Persistent])
	require.Equal(t, 1, rig.synchronizer.calls[link.Persistent])
	require.Equal(t, 1, rig.network.fetches)
	require.Equal(t, []clock.Registration{{
		DeviceID:    "aa:bb:cc:dd:ee:ff",
		Type:        "alarm-clock",
		Name:        "bedroom",
		Description: "Bedside unit",
	}}, rig.network.registrations)

	require.Equal(t, "aa:bb:cc:dd:ee:ff", o.DeviceID())
	require.Equal(t, testDefaults(), o.Session().Configuration)
	require.True(t, o.Session().AlarmIsFresh)
	require.True(t, mondayAt(8, 45, 0).Equal(o.Session().NextAlarm))
}

// TestBoot_UsesRemoteConfiguration checks that a fetched configuration wins over the defaults.
func TestBoot_UsesRemoteConfiguration(t *testing.T) {
	t.Parallel()

	rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))

	remote := testDefaults()
	remote.Schedules = []clock.Schedule{{Expression: "0 0 9 * * * 2023", Description: "later"}}
	rig.network.configurations = []*clock.Configuration{remote}
	rig.network.registerErr = errTestNetwork

	o, err := Boot(context.Background(), rig.deps, rig.settings)
	require.NoError(t, err)
	require.Same(t, remote, o.Session().Configuration)
	require.True(t, mondayAt(9, 0, 0).Equal(o.Session().NextAlarm))
}

// TestBoot_RegistrationRetriedByLiveness hands a failed boot registration over to the liveness pings.
func TestBoot_RegistrationRetriedByLiveness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))
	rig.network.registerErr = errTestNetwork
	rig.settings.LivenessEnabled = true

	o, err := Boot(ctx, rig.deps, rig.settings)
	require.NoError(t, err)
	require.False(t, o.liveness.Registered())

	rig.network.registerErr = nil

	// Boot second 0 plus the 30 second interval.
	require.NoError(t, o.Tick(ctx, mondayAt(8, 41, 30)))
	require.True(t, o.liveness.Registered())
	require.Len(t, rig.network.registrations, 2)
	require.Equal(t, "aa:bb:cc:dd:ee:ff", rig.network.registrations[1].DeviceID)
	require.Equal(t, 1, rig.network.pings)
}

// TestBoot_Failures covers the conditions boot cannot recover from.
func TestBoot_Failures(t *testing.T) {
	t.Parallel()

	t.Run("no device address", func(t *testing.T) {
		t.Parallel()

		rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))
		rig.deps.Addresser = &fakeAddresser{err: errTestNetwork}

		_, err := Boot(context.Background(), rig.deps, rig.settings)
		require.ErrorIs(t, err, errTestNetwork)
	})

	t.Run("invalid check expression", func(t *testing.T) {
		t.Parallel()

		rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))
		rig.settings.CheckExpression = "*/5"

		_, err := Boot(context.Background(), rig.deps, rig.settings)

		var invalid *schedule.InvalidExpressionError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("invalid schedule expression", func(t *testing.T) {
		t.Parallel()

		rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))
		rig.settings.Defaults.Schedules = append(rig.settings.Defaults.Schedules, clock.Schedule{Expression: "bogus"})

		_, err := Boot(context.Background(), rig.deps, rig.settings)

		var invalid *schedule.InvalidExpressionError
		require.ErrorAs(t, err, &invalid)
		require.Equal(t, "bogus", invalid.Expression)
	})
}

// TestTick_ArrivalWindow walks through a weekday alarm with a one-minute window.
func TestTick_ArrivalWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))

	o, err := Boot(ctx, rig.deps, rig.settings)
	require.NoError(t, err)

	require.NoError(t, o.Tick(ctx, mondayAt(8, 44, 59)))
	require.Zero(t, rig.actuator.pulses)

	require.NoError(t, o.Tick(ctx, mondayAt(8, 45, 30)))
	require.Equal(t, 1, rig.actuator.pulses)
	require.False(t, o.Session().AlarmIsFresh)

	require.NoError(t, o.Tick(ctx, mondayAt(8, 46, 59)))
	require.Equal(t, 2, rig.actuator.pulses)

	require.NoError(t, o.Tick(ctx, mondayAt(8, 47, 0)))
	require.Equal(t, 2, rig.actuator.pulses)
	require.True(t, o.Session().AlarmIsFresh)

	tuesday := time.Date(2023, time.October, 17, 8, 45, 0, 0, schedule.Zone(3600))
	require.True(t, tuesday.Equal(o.Session().NextAlarm))
	require.Equal(t, 1, rig.network.fetches)
}

// TestTick_UTCReadingsUseConfiguredZone checks that readings in another zone are compared in the configured one.
func TestTick_UTCReadingsUseConfiguredZone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))

	o, err := Boot(ctx, rig.deps, rig.settings)
	require.NoError(t, err)

	require.NoError(t, o.Tick(ctx, mondayAt(8, 45, 10).UTC()))
	require.Equal(t, 1, rig.actuator.pulses)
}

// TestTick_EmptySchedulesNeverFire ensures the sentinel never opens a window.
func TestTick_EmptySchedulesNeverFire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))
	rig.settings.Defaults.Schedules = nil

	o, err := Boot(ctx, rig.deps, rig.settings)
	require.NoError(t, err)
	require.True(t, schedule.IsSentinel(o.Session().NextAlarm))

	start := mondayAt(8, 40, 0)
	tickRange(start, start.Add(10*time.Minute), time.Second, func(now time.Time) {
		require.NoError(t, o.Tick(ctx, now))
	})

	require.Zero(t, rig.actuator.pulses)
}

// TestTick_RefreshInvalidatesAlarm checks that a refresh swaps the schedule used for the next alarm.
func TestTick_RefreshInvalidatesAlarm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))

	o, err := Boot(ctx, rig.deps, rig.settings)
	require.NoError(t, err)

	remote := testDefaults()
	remote.Schedules = []clock.Schedule{{Expression: "0 42 8 * * * 2023", Description: "earlier"}}
	rig.network.configurations = []*clock.Configuration{remote}

	// The first refresh after boot is due at 08:45:00; move it forward.
	o.refresh.nextCheck = mondayAt(8, 41, 0)

	require.NoError(t, o.Tick(ctx, mondayAt(8, 41, 0)))
	require.Same(t, remote, o.Session().Configuration)
	require.False(t, o.Session().AlarmIsFresh)

	require.NoError(t, o.Tick(ctx, mondayAt(8, 41, 1)))
	require.True(t, mondayAt(8, 42, 0).Equal(o.Session().NextAlarm))

	require.NoError(t, o.Tick(ctx, mondayAt(8, 42, 5)))
	require.Equal(t, 1, rig.actuator.pulses)
}

// TestTick_InvalidExpressionIsFatal ensures a bad refreshed schedule stops the loop.
func TestTick_InvalidExpressionIsFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rig := newTestRig(fixedClock(mondayAt(8, 40, 0)))

	o, err := Boot(ctx, rig.deps, rig.settings)
	require.NoError(t, err)

	broken := testDefaults()
	broken.Schedules[0].Expression = "0 45 8 * * Funday"
	o.Session().ReplaceConfiguration(broken)

	err = o.Tick(ctx, mondayAt(8, 41, 0))

	var invalid *schedule.InvalidExpressionError
	require.ErrorAs(t, err, &invalid)
}

// TestRun_TicksUntilCanceled drives the loop on the synthetic clock.
func TestRun_TicksUntilCanceled(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// The synthetic clock starts at midnight UTC, inside the time sync minute.
		rig := newTestRig(nil)
		rig.settings.LivenessEnabled = true
		rig.settings.Defaults.LivenessIntervalSeconds = 61

		o, err := Boot(ctx, rig.deps, rig.settings)
		require.NoError(t, err)

		errCh := make(chan error, 1)

		go func() {
			errCh <- o.Run(ctx)
		}()

		time.Sleep(1500 * time.Millisecond)
		cancel()

		require.NoError(t, <-errCh)
		require.Equal(t, 1, rig.synchronizer.calls[link.OneShot])
		require.Equal(t, 1, rig.network.pings)
		require.Equal(t, []string{"127.0.0.1:50051"}, rig.network.pingEndpoints)
		require.Zero(t, rig.actuator.pulses)
	})
}
