package orchestrator

import (
	"context"

	"github.com/oshokin/alarm-clock/internal/device/link"
	"github.com/oshokin/alarm-clock/internal/domain/clock"
)

// Connector brings the network link up before a remote call.
type Connector interface {
	EnsureConnected(ctx context.Context, mode link.Mode) error
}

// ClockSynchronizer synchronizes the system clock.
type ClockSynchronizer interface {
	Sync(ctx context.Context, mode link.Mode) error
}

// Network is the remote configuration service.
type Network interface {
	FetchConfiguration(ctx context.Context, endpoint, deviceID string) (*clock.Configuration, error)
	RegisterDevice(ctx context.Context, endpoint string, registration *clock.Registration) error
	SendLiveness(ctx context.Context, deviceID, endpoint string) error
}

// Addresser resolves the device identity.
type Addresser interface {
	DeviceAddress() (string, error)
}
