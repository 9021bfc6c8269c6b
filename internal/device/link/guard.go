package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/alarm-clock/internal/device/delay"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// Mode selects how long EnsureConnected may block.
type Mode int

const (
	// Persistent blocks until the link is up. Used at boot.
	Persistent Mode = iota
	// OneShot makes one bounded attempt and returns whatever the outcome.
	OneShot
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == OneShot {
		return "one-shot"
	}

	return "persistent"
}

// Policy bounds the waits performed by Guard.
type Policy struct {
	// Delay is inserted between two status checks and between two connect attempts.
	Delay time.Duration
	// OneShotAttempts caps the status checks of a one-shot connect.
	OneShotAttempts int
	// MaxAttempts is the hard ceiling of status checks of any connect.
	MaxAttempts int
}

// ErrTooManyAttempts is returned when a connect exceeds the hard ceiling.
var ErrTooManyAttempts = errors.New("link connect: too many attempts")

// Guard keeps the link up around network-dependent actions.
type Guard struct {
	driver      Driver
	credentials Credentials
	policy      Policy
}

// NewGuard creates a guard over driver.
func NewGuard(driver Driver, credentials Credentials, policy Policy) *Guard {
	return &Guard{
		driver:      driver,
		credentials: credentials,
		policy:      policy,
	}
}

// EnsureConnected brings the link up. In Persistent mode it returns only once
// the link is up or ctx is done. In OneShot mode it returns after a single
// bounded connect attempt; the caller must tolerate the link still being down.
func (g *Guard) EnsureConnected(ctx context.Context, mode Mode) error {
	for !g.driver.IsConnected(ctx) {
		logger.WarnKV(ctx, "Reconnecting to the network", "mode", mode.String())

		err := g.connect(ctx, mode)
		if err != nil {
			if errors.Is(err, ErrTooManyAttempts) {
				logger.ErrorKV(ctx, "Fatal link error, connect ceiling reached", "error", err)
			} else {
				logger.ErrorKV(ctx, "Failed to connect to the network", "error", err)
			}
		}

		if mode == OneShot {
			return err
		}

		if err = delay.Sleep(ctx, g.policy.Delay); err != nil {
			return err
		}
	}

	return nil
}

// connect starts a connection and waits for the link to report it.
func (g *Guard) connect(ctx context.Context, mode Mode) error {
	if err := g.driver.Connect(ctx, g.credentials); err != nil {
		return err
	}

	for attempts := 0; !g.driver.IsConnected(ctx); {
		logger.DebugKV(ctx, "Waiting for the link", "attempt", attempts)

		if err := delay.Sleep(ctx, g.policy.Delay); err != nil {
			return err
		}

		attempts++

		if mode == OneShot && attempts > g.policy.OneShotAttempts {
			return nil
		}

		if attempts > g.policy.MaxAttempts {
			return fmt.Errorf("%w: %d", ErrTooManyAttempts, attempts)
		}
	}

	return nil
}
