package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-clock/internal/domain/clock"
	"github.com/oshokin/alarm-clock/internal/schedule"
)

// Config holds every setting of the device daemon and the configuration server.
type Config struct {
	// LogLevel is the minimum level of emitted log messages.
	LogLevel string `yaml:"log_level"`
	// Device describes this unit when it registers with the server.
	Device Device `yaml:"device"`
	// Server holds the addresses of the remote configuration service.
	Server Server `yaml:"server"`
	// Link selects and configures the wireless link driver.
	Link Link `yaml:"link"`
	// TimeSource selects the clock synchronization driver.
	TimeSource TimeSource `yaml:"time_source"`
	// Actuator selects and configures the alert outputs.
	Actuator Actuator `yaml:"actuator"`
	// Scheduler tunes the orchestrator tick loop.
	Scheduler Scheduler `yaml:"scheduler"`
	// Retry bounds the connectivity and time sync waits.
	Retry Retry `yaml:"retry"`
	// DefaultConfiguration is used whenever the remote configuration cannot be fetched.
	// The configuration server hands it out to every device.
	DefaultConfiguration clock.Configuration `yaml:"default_configuration"`
}

// Device identifies the kind of unit to the server.
type Device struct {
	Type        string `yaml:"type"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Server holds remote service settings.
type Server struct {
	// ConfigurationAddress is the gRPC address configuration is fetched from.
	ConfigurationAddress string `yaml:"configuration_addr"`
	// ListenAddress is where the configuration server listens.
	ListenAddress string `yaml:"listen_addr"`
	// StateFile is where the configuration server keeps its device registry.
	StateFile string `yaml:"state_file"`
	// Timeout bounds a single remote call.
	Timeout time.Duration `yaml:"timeout"`
	// MaxResponseBytes bounds the size of a decoded response.
	MaxResponseBytes int `yaml:"max_response_bytes"`
}

// Link configures the wireless link.
type Link struct {
	// Driver is one of LinkDriverNmcli or LinkDriverNone.
	Driver string `yaml:"driver"`
	// SSID is the network name.
	SSID string `yaml:"ssid"`
	// Password is the network passphrase.
	Password string `yaml:"password"`
	// Interface is the network interface whose hardware address identifies the device.
	// Empty means the first interface with a hardware address.
	Interface string `yaml:"interface"`
}

// TimeSource configures clock synchronization.
type TimeSource struct {
	// Driver is one of TimeSourceTimedatectl or TimeSourceNone.
	Driver string `yaml:"driver"`
}

// Actuator configures the alert outputs.
type Actuator struct {
	// Driver is one of ActuatorGPIO or ActuatorLog.
	Driver string `yaml:"driver"`
	// Pins are the two GPIO lines driven in sequence.
	Pins []int `yaml:"pins"`
	// Pulse is how long each output stays high.
	Pulse time.Duration `yaml:"pulse"`
	// Root is the sysfs GPIO directory.
	Root string `yaml:"root"`
}

// Scheduler tunes the orchestrator.
type Scheduler struct {
	// Tick is the period of the orchestrator loop.
	Tick time.Duration `yaml:"tick"`
	// ConfigCheck is the expression selecting configuration refresh instants.
	ConfigCheck string `yaml:"config_check"`
	// LivenessEnabled turns liveness pings on.
	LivenessEnabled bool `yaml:"liveness_enabled"`
}

// Retry bounds the blocking waits.
type Retry struct {
	// Delay is inserted between two attempts.
	Delay time.Duration `yaml:"delay"`
	// ConnectOneShotAttempts caps a one-shot wait for the link to come up.
	ConnectOneShotAttempts int `yaml:"connect_one_shot_attempts"`
	// ConnectMaxAttempts is the hard ceiling of a single connect wait.
	ConnectMaxAttempts int `yaml:"connect_max_attempts"`
	// SyncOneShotAttempts caps a one-shot wait for clock synchronization.
	SyncOneShotAttempts int `yaml:"sync_one_shot_attempts"`
	// SyncMaxAttempts is the hard ceiling of a single synchronization wait.
	SyncMaxAttempts int `yaml:"sync_max_attempts"`
}

const (
	// DefaultConfigFilename is the default settings filename.
	DefaultConfigFilename = "alarm-clock-settings.yaml"

	// DefaultStateFilename is the default device registry filename of the server.
	DefaultStateFilename = "alarm-clock-devices.json"

	// DefaultTimeout is the default duration of a remote call.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxResponseBytes bounds decoded responses.
	DefaultMaxResponseBytes = 4096

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600

	// DefaultConfigCheck fires a configuration refresh every five minutes.
	DefaultConfigCheck = "0 */5 * * * *"

	// Link drivers.
	LinkDriverNmcli = "nmcli"
	LinkDriverNone  = "none"

	// Time source drivers.
	TimeSourceTimedatectl = "timedatectl"
	TimeSourceNone        = "none"

	// Actuator drivers.
	ActuatorGPIO = "gpio"
	ActuatorLog  = "log"

	// actuatorPins is the number of alert outputs.
	actuatorPins = 2
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownDriver is returned for an unsupported driver name.
	errUnknownDriver = errors.New("unknown driver")
)

// Default returns the compiled-in settings.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Device: Device{
			Type:        "alarm-clock",
			Name:        "alarm-clock",
			Description: "Network connected alarm clock",
		},
		Server: Server{
			ConfigurationAddress: "127.0.0.1:50051",
			ListenAddress:        ":50051",
			StateFile:            DefaultStateFilename,
			Timeout:              DefaultTimeout,
			MaxResponseBytes:     DefaultMaxResponseBytes,
		},
		Link: Link{
			Driver: LinkDriverNone,
		},
		TimeSource: TimeSource{
			Driver: TimeSourceNone,
		},
		Actuator: Actuator{
			Driver: ActuatorLog,
			Pins:   []int{5, 15},
			Pulse:  100 * time.Millisecond,
			Root:   "/sys/class/gpio",
		},
		Scheduler: Scheduler{
			Tick:            100 * time.Millisecond,
			ConfigCheck:     DefaultConfigCheck,
			LivenessEnabled: true,
		},
		Retry: Retry{
			Delay:                  100 * time.Millisecond,
			ConnectOneShotAttempts: 5000,
			ConnectMaxAttempts:     300000,
			SyncOneShotAttempts:    3000,
			SyncMaxAttempts:        300000,
		},
		DefaultConfiguration: clock.Configuration{
			LivenessEndpoint:        "127.0.0.1:50051",
			LivenessIntervalSeconds: 30,
			Schedules: []clock.Schedule{
				{Expression: "0 45 8 * * Mon-Fri 2023-2100", Description: "alarm"},
				{Expression: "0 30 9 * * Mon-Fri 2023-2100", Description: "alarm"},
			},
			TimeZoneOffsetSeconds: 3600,
			AlarmWindowMinutes:    1,
		},
	}
}

// Load reads settings from path on top of the compiled-in defaults.
// A missing file at the default location yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && path == DefaultConfigFilename:
		return cfg, nil
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file holds link credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings, filling in defaults for zero durations and limits.
// Every problem found is reported.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	var err error

	err = multierr.Append(err, validateAddress("server.configuration_addr", cfg.Server.ConfigurationAddress))

	switch cfg.Link.Driver {
	case LinkDriverNone:
	case LinkDriverNmcli:
		if cfg.Link.SSID == "" {
			err = multierr.Append(err, errors.New("link.ssid must be provided for the nmcli driver"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("link.driver %q: %w", cfg.Link.Driver, errUnknownDriver))
	}

	switch cfg.TimeSource.Driver {
	case TimeSourceNone, TimeSourceTimedatectl:
	default:
		err = multierr.Append(err, fmt.Errorf("time_source.driver %q: %w", cfg.TimeSource.Driver, errUnknownDriver))
	}

	switch cfg.Actuator.Driver {
	case ActuatorLog:
	case ActuatorGPIO:
		if len(cfg.Actuator.Pins) != actuatorPins {
			err = multierr.Append(err, fmt.Errorf("actuator.pins must list %d pins", actuatorPins))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("actuator.driver %q: %w", cfg.Actuator.Driver, errUnknownDriver))
	}

	if validateErr := schedule.Validate(cfg.Scheduler.ConfigCheck); validateErr != nil {
		err = multierr.Append(err, fmt.Errorf("scheduler.config_check: %w", validateErr))
	}

	err = multierr.Append(err, ValidateConfiguration(&cfg.DefaultConfiguration))

	return err
}

// ValidateConfiguration checks a device configuration: every schedule must parse.
func ValidateConfiguration(configuration *clock.Configuration) error {
	var err error

	if configuration.LivenessEndpoint != "" {
		err = multierr.Append(err, validateAddress("liveness_endpoint", configuration.LivenessEndpoint))
	}

	for i, s := range configuration.Schedules {
		if validateErr := schedule.Validate(s.Expression); validateErr != nil {
			err = multierr.Append(err, fmt.Errorf("schedules[%d]: %w", i, validateErr))
		}
	}

	return err
}

func applyDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = defaults.Server.Timeout
	}

	if cfg.Server.MaxResponseBytes <= 0 {
		cfg.Server.MaxResponseBytes = defaults.Server.MaxResponseBytes
	}

	if cfg.Server.StateFile == "" {
		cfg.Server.StateFile = defaults.Server.StateFile
	}

	if cfg.Actuator.Pulse <= 0 {
		cfg.Actuator.Pulse = defaults.Actuator.Pulse
	}

	if cfg.Actuator.Root == "" {
		cfg.Actuator.Root = defaults.Actuator.Root
	}

	if cfg.Scheduler.Tick <= 0 {
		cfg.Scheduler.Tick = defaults.Scheduler.Tick
	}

	if cfg.Scheduler.ConfigCheck == "" {
		cfg.Scheduler.ConfigCheck = defaults.Scheduler.ConfigCheck
	}

	if cfg.Retry.Delay <= 0 {
		cfg.Retry.Delay = defaults.Retry.Delay
	}

	if cfg.Retry.ConnectOneShotAttempts <= 0 {
		cfg.Retry.ConnectOneShotAttempts = defaults.Retry.ConnectOneShotAttempts
	}

	if cfg.Retry.ConnectMaxAttempts <= 0 {
		cfg.Retry.ConnectMaxAttempts = defaults.Retry.ConnectMaxAttempts
	}

	if cfg.Retry.SyncOneShotAttempts <= 0 {
		cfg.Retry.SyncOneShotAttempts = defaults.Retry.SyncOneShotAttempts
	}

	if cfg.Retry.SyncMaxAttempts <= 0 {
		cfg.Retry.SyncMaxAttempts = defaults.Retry.SyncMaxAttempts
	}
}

func validateAddress(key, address string) error {
	if address == "" {
		return fmt.Errorf("%s must be provided", key)
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}

	return nil
}
