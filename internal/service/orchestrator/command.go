package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
	"github.com/spf13/afero"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/device/actuator"
	"github.com/oshokin/alarm-clock/internal/device/command"
	"github.com/oshokin/alarm-clock/internal/device/link"
	"github.com/oshokin/alarm-clock/internal/device/timesync"
	"github.com/oshokin/alarm-clock/internal/domain/clock"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/common"
	"github.com/oshokin/alarm-clock/internal/version"
)

// Options controls the alarm-clock process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the level from the settings file when not empty.
	LogLevel string
}

// Run boots the device and runs the orchestrator until ctx is done.
// It returns *schedule.InvalidExpressionError when an active schedule
// expression cannot be parsed; the caller must terminate on it.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-clock")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Command line level overrides the configured one.
	levelName := cfg.LogLevel
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}

	if level, ok := logger.ParseLogLevel(levelName); ok {
		logger.SetLevel(level)
	} else {
		logger.WarnKV(ctx, "Unknown log level, keeping the current one", "log_level", levelName)
	}

	logger.InfoKV(ctx, "Starting", "version", version.Full())

	// Only one daemon may drive the outputs.
	if err = ensureSingleInstance(ps.Processes, filepath.Base(os.Args[0])); err != nil {
		return err
	}

	// Build the link guard over the configured driver.
	driver := newLinkDriver(&cfg.Link)

	guard := link.NewGuard(driver, link.Credentials{
		SSID:     cfg.Link.SSID,
		Password: cfg.Link.Password,
	}, link.Policy{
		Delay:           cfg.Retry.Delay,
		OneShotAttempts: cfg.Retry.ConnectOneShotAttempts,
		MaxAttempts:     cfg.Retry.ConnectMaxAttempts,
	})

	synchronizer := timesync.NewSynchronizer(newTimeSource(&cfg.TimeSource), guard, timesync.Policy{
		Delay:           cfg.Retry.Delay,
		OneShotAttempts: cfg.Retry.SyncOneShotAttempts,
		MaxAttempts:     cfg.Retry.SyncMaxAttempts,
	})

	// Reset the outputs before anything can fire them.
	alert, err := newActuator(&cfg.Actuator)
	if err != nil {
		return fmt.Errorf("initialise actuator: %w", err)
	}

	client := common.NewClient(
		common.WithCallTimeout(cfg.Server.Timeout),
		common.WithMaxResponseBytes(cfg.Server.MaxResponseBytes),
	)

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	defaults := cfg.DefaultConfiguration.Clone()

	o, err := Boot(ctx, &Dependencies{
		Connector:    guard,
		Addresser:    driver,
		Synchronizer: synchronizer,
		Network:      client,
		Actuator:     alert,
	}, &Settings{
		Endpoint: cfg.Server.ConfigurationAddress,
		Device: clock.Registration{
			Type:        cfg.Device.Type,
			Name:        cfg.Device.Name,
			Description: cfg.Device.Description,
		},
		Defaults:        defaults,
		CheckExpression: cfg.Scheduler.ConfigCheck,
		Tick:            cfg.Scheduler.Tick,
		LivenessEnabled: cfg.Scheduler.LivenessEnabled,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("boot: %w", err)
	}

	return o.Run(ctx)
}

func newLinkDriver(settings *config.Link) link.Driver {
	if settings.Driver == config.LinkDriverNmcli {
		return link.NewNmcliDriver(settings.Interface, command.Exec)
	}

	return link.NewNoneDriver(settings.Interface)
}

func newTimeSource(settings *config.TimeSource) timesync.Source {
	if settings.Driver == config.TimeSourceTimedatectl {
		return timesync.NewTimedatectlSource(command.Exec)
	}

	return timesync.NoneSource{}
}

func newActuator(settings *config.Actuator) (actuator.Actuator, error) {
	if settings.Driver != config.ActuatorGPIO {
		return actuator.NewLog(settings.Pulse), nil
	}

	gpio := actuator.NewGPIO(afero.NewOsFs(), settings.Root, settings.Pins, settings.Pulse)
	if err := gpio.Init(); err != nil {
		return nil, err
	}

	return gpio, nil
}
