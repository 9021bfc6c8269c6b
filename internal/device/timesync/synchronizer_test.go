package timesync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/device/link"
)

var errTestStart = errors.New("test start error")

// fakeSource completes after a number of status checks.
type fakeSource struct {
	startErrs   []error
	completeAt  int
	starts      int
	statusCalls int
}

func (f *fakeSource) StartSync(context.Context) (Handle, error) {
	f.starts++

	if len(f.startErrs) > 0 {
		err := f.startErrs[0]
		f.startErrs = f.startErrs[1:]

		return Handle{}, err
	}

	return Handle{Started: time.Now()}, nil
}

func (f *fakeSource) Status(context.Context, Handle) (Status, error) {
	f.statusCalls++

	if f.completeAt >= 0 && f.statusCalls > f.completeAt {
		return Completed, nil
	}

	return Pending, nil
}

func newTestSynchronizer(source Source) *Synchronizer {
	guard := link.NewGuard(link.NewNoneDriver(""), link.Credentials{}, link.Policy{
		Delay:           100 * time.Millisecond,
		OneShotAttempts: 3,
		MaxAttempts:     10,
	})

	return NewSynchronizer(source, guard, Policy{
		Delay:           100 * time.Millisecond,
		OneShotAttempts: 3,
		MaxAttempts:     10,
	})
}

// TestSync_Completes verifies that Sync waits for the completed status.
func TestSync_Completes(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		source := &fakeSource{completeAt: 2}
		start := time.Now()

		require.NoError(t, newTestSynchronizer(source).Sync(context.Background(), link.OneShot))
		require.Equal(t, 200*time.Millisecond, time.Since(start))
		require.Equal(t, 1, source.starts)
	})
}

// TestSync_OneShotTimeout checks that a one-shot sync gives up after its attempt cap.
func TestSync_OneShotTimeout(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		source := &fakeSource{completeAt: -1}
		start := time.Now()

		err := newTestSynchronizer(source).Sync(context.Background(), link.OneShot)
		require.ErrorIs(t, err, ErrTimeout)
		require.Equal(t, 400*time.Millisecond, time.Since(start))
	})
}

// TestSync_PersistentRetries verifies that persistent mode survives start failures and the hard ceiling.
func TestSync_PersistentRetries(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		source := &fakeSource{
			startErrs:  []error{errTestStart, errTestStart},
			completeAt: 15,
		}

		require.NoError(t, newTestSynchronizer(source).Sync(context.Background(), link.Persistent))
		// Two start failures, one ceiling overrun, then success.
		require.Equal(t, 4, source.starts)
	})
}

// TestSync_PersistentCanceled checks that cancellation ends a persistent wait.
func TestSync_PersistentCanceled(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		err := newTestSynchronizer(&fakeSource{completeAt: -1}).Sync(ctx, link.Persistent)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

// TestTimedatectlSource verifies the commands and status parsing.
func TestTimedatectlSource(t *testing.T) {
	t.Parallel()

	var calls []string

	output := "no\n"
	source := NewTimedatectlSource(func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, name+" "+strings.Join(args, " "))

		return []byte(output), nil
	})

	ctx := context.Background()

	handle, err := source.StartSync(ctx)
	require.NoError(t, err)
	require.Equal(t, "timedatectl set-ntp true", calls[0])

	status, err := source.Status(ctx, handle)
	require.NoError(t, err)
	require.Equal(t, Pending, status)

	output = "yes\n"
	status, err = source.Status(ctx, handle)
	require.NoError(t, err)
	require.Equal(t, Completed, status)
	require.Equal(t, "timedatectl show --property=NTPSynchronized --value", calls[2])

	status, err = NoneSource{}.Status(ctx, Handle{})
	require.NoError(t, err)
	require.Equal(t, Completed, status)
}
