//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/device"
	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/domain/clock"
	"github.com/oshokin/alarm-clock/internal/version"
)

// Client talks to configuration servers. Connections are created lazily per
// target because the liveness endpoint comes from the fetched configuration.
type Client struct {
	// conns caches one connection per target address.
	conns map[string]*grpc.ClientConn
	// mu protects conns.
	mu sync.Mutex

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// maxResponseBytes bounds the size of a received message.
	maxResponseBytes int
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithMaxResponseBytes bounds the size of received responses.
func WithMaxResponseBytes(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxResponseBytes = size
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errDeviceIDRequired is returned when a call lacks the device identity.
	errDeviceIDRequired = errors.New("device id must be provided")
)

// NewClient creates a client without opening any connection.
func NewClient(opts ...Option) *Client {
	client := &Client{
		conns:            make(map[string]*grpc.ClientConn),
		callTimeout:      config.DefaultTimeout,
		maxResponseBytes: config.DefaultMaxResponseBytes,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases every connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var err error

	for target, conn := range c.conns {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", target, closeErr)
		}

		delete(c.conns, target)
	}

	return err
}

// FetchConfiguration retrieves the configuration of deviceID from endpoint.
func (c *Client) FetchConfiguration(ctx context.Context, endpoint, deviceID string) (*clock.Configuration, error) {
	if deviceID == "" {
		return nil, errDeviceIDRequired
	}

	deviceAPI, err := c.service(endpoint)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	record, err := deviceAPI.GetConfiguration(callCtx, wrapperspb.String(deviceID), c.callOptions()...)
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}

	configuration, err := api.DecodeConfiguration(record)
	if err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	return configuration, nil
}

// RegisterDevice announces the device to endpoint.
func (c *Client) RegisterDevice(ctx context.Context, endpoint string, registration *clock.Registration) error {
	if registration == nil || registration.DeviceID == "" {
		return errDeviceIDRequired
	}

	deviceAPI, err := c.service(endpoint)
	if err != nil {
		return err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err = deviceAPI.RegisterDevice(callCtx, api.EncodeRegistration(registration), c.callOptions()...); err != nil {
		return fmt.Errorf("register device: %w", err)
	}

	return nil
}

// SendLiveness tells endpoint that deviceID is alive.
func (c *Client) SendLiveness(ctx context.Context, deviceID, endpoint string) error {
	if deviceID == "" {
		return errDeviceIDRequired
	}

	deviceAPI, err := c.service(endpoint)
	if err != nil {
		return err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err = deviceAPI.SendLiveness(callCtx, wrapperspb.String(deviceID), c.callOptions()...); err != nil {
		return fmt.Errorf("send liveness: %w", err)
	}

	return nil
}

// service returns a service client for target, creating the connection once.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func (c *Client) service(target string) (*api.DeviceServiceClient, error) {
	if target == "" {
		return nil, errAddressRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.conns[target]
	if !ok {
		var err error

		// NewClient does not connect; the first call does.
		conn, err = grpc.NewClient(target,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithUserAgent(version.UserAgent()),
		)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", target, err)
		}

		c.conns[target] = conn
	}

	return api.NewDeviceServiceClient(conn), nil
}

// callOptions bounds the response size of every call.
func (c *Client) callOptions() []grpc.CallOption {
	return []grpc.CallOption{
		grpc.MaxCallRecvMsgSize(c.maxResponseBytes),
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
