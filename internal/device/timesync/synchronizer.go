package timesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/alarm-clock/internal/device/delay"
	"github.com/oshokin/alarm-clock/internal/device/link"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// Policy bounds the wait for the synchronized status.
type Policy struct {
	// Delay is inserted between two status checks.
	Delay time.Duration
	// OneShotAttempts caps the status checks of a one-shot synchronization.
	OneShotAttempts int
	// MaxAttempts is the hard ceiling of status checks of any synchronization.
	MaxAttempts int
}

var (
	// ErrTimeout is returned when a one-shot synchronization runs out of attempts.
	ErrTimeout = errors.New("clock sync: still pending")
	// ErrTooManyAttempts is returned when a synchronization exceeds the hard ceiling.
	ErrTooManyAttempts = errors.New("clock sync: too many attempts")
)

// Synchronizer brings the link up and waits for the clock to be synchronized.
type Synchronizer struct {
	source Source
	guard  *link.Guard
	policy Policy
}

// NewSynchronizer creates a synchronizer.
func NewSynchronizer(source Source, guard *link.Guard, policy Policy) *Synchronizer {
	return &Synchronizer{
		source: source,
		guard:  guard,
		policy: policy,
	}
}

// Sync synchronizes the clock. In link.Persistent mode it keeps retrying,
// reconnecting between attempts, until it succeeds or ctx is done.
// In link.OneShot mode it makes a single bounded attempt.
func (s *Synchronizer) Sync(ctx context.Context, mode link.Mode) error {
	if err := s.guard.EnsureConnected(ctx, mode); err != nil && mode == link.Persistent {
		return err
	}

	for {
		err := s.synchronize(ctx, mode)
		if err == nil {
			logger.Info(ctx, "Clock synchronized")

			return nil
		}

		if mode == link.OneShot || ctx.Err() != nil {
			return err
		}

		logger.ErrorKV(ctx, "Clock synchronization failed, retrying", "error", err)

		if err = delay.Sleep(ctx, s.policy.Delay); err != nil {
			return err
		}

		if err = s.guard.EnsureConnected(ctx, link.Persistent); err != nil {
			return err
		}
	}
}

// synchronize starts a synchronization and waits for its completed status.
func (s *Synchronizer) synchronize(ctx context.Context, mode link.Mode) error {
	handle, err := s.source.StartSync(ctx)
	if err != nil {
		return fmt.Errorf("start clock sync: %w", err)
	}

	for attempts := 0; ; {
		status, err := s.source.Status(ctx, handle)
		if err != nil {
			logger.WarnKV(ctx, "Clock sync status unavailable", "error", err)
		}

		if status == Completed {
			return nil
		}

		logger.DebugKV(ctx, "Waiting for clock synchronization", "attempt", attempts)

		if err = delay.Sleep(ctx, s.policy.Delay); err != nil {
			return err
		}

		attempts++

		if mode == link.OneShot && attempts > s.policy.OneShotAttempts {
			return fmt.Errorf("%w after %d attempts", ErrTimeout, attempts)
		}

		if attempts > s.policy.MaxAttempts {
			return fmt.Errorf("%w: %d", ErrTooManyAttempts, attempts)
		}
	}
}
