package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/device"
	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	repository "github.com/oshokin/alarm-clock/internal/repository/devices"
	"github.com/oshokin/alarm-clock/internal/version"
)

// Options controls the alarm-clock-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StateFile specifies the path to persist the device registry JSON.
	StateFile string
	// LogLevel overrides the level from the settings file when not empty.
	LogLevel string
}

// ErrNoListenAddress indicates missing server configuration.
var ErrNoListenAddress = errors.New("no listen address configured")

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Every device is served the default configuration from the settings file.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-clock-server")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	levelName := settings.LogLevel
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}

	if level, ok := logger.ParseLogLevel(levelName); ok {
		logger.SetLevel(level)
	}

	logger.InfoKV(ctx, "Starting", "version", version.Full())

	// Use StateFile from config unless overridden by command line option.
	stateFile := settings.Server.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	listenAddress, err := resolveListenAddress(settings.Server.ListenAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	// Initialize the registry repository.
	repo := repository.NewFileRepository(stateFile)

	svc, err := newService(ctx, repo, &settings.DefaultConfiguration)
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterDeviceServiceServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Configuration server listening",
		"listen_address", listenAddress,
		"state_file", stateFile,
		"schedules", len(settings.DefaultConfiguration.Schedules),
	)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// resolveListenAddress returns override when set, the configured address otherwise.
func resolveListenAddress(configured, override string) (string, error) {
	if override != "" {
		configured = override
	}

	if configured == "" {
		return "", ErrNoListenAddress
	}

	if _, _, err := net.SplitHostPort(configured); err != nil {
		return "", fmt.Errorf("invalid listen address format %q: %w", configured, err)
	}

	return configured, nil
}
