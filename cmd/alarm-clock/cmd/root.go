package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/schedule"
	"github.com/oshokin/alarm-clock/internal/service/orchestrator"
	"github.com/oshokin/alarm-clock/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running the alarm clock daemon.
	rootCmd = &cobra.Command{
		Use:   "alarm-clock",
		Short: "Run the alarm clock daemon.",
		Long: `Boots the device and runs the alarm clock loop until interrupted.

At boot the daemon waits for the network link and a synchronized clock,
registers the device with the configuration server and fetches its schedules.
When the server is unreachable the default configuration from the settings
file is used. Schedules are refreshed, the clock resynchronized and liveness
reported on their own periods while the loop runs.

An invalid schedule expression stops the daemon.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			err := orchestrator.Run(ctx, &orchestrator.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
			})

			var invalid *schedule.InvalidExpressionError
			if errors.As(err, &invalid) {
				logger.FatalKV(ctx, "Invalid schedule expression, stopping",
					"expression", invalid.Expression,
					"error", invalid.Err,
				)
			}

			return err
		},
	}
)

// Execute runs the alarm-clock CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level overriding the configuration (debug, info, warn, error)")
}
