package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/app-updater/internal/config"
	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/logger"
	"github.com/oshokin/app-updater/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// logCloser releases the log file opened by loadConfig.
	logCloser io.Closer

	// rootCmd represents the base command for checking and preparing updates.
	rootCmd = &cobra.Command{
		Use:          "app-updater",
		Short:        "Check an update feed, download new releases and prepare the install script",
		SilenceUsage: true,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logCloser != nil {
				_ = logCloser.Close()
			}
		},
	}
)

// Execute runs the app-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext cancels on SIGTERM and SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// loadConfig reads settings, applies flag overrides and configures logging.
func loadConfig(overrides func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		overrides(cfg)

		if err = config.Validate(cfg); err != nil {
			return nil, err
		}
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if logCloser, err = logger.Setup(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, err
	}

	return cfg, nil
}

// runningVersion parses the --running-version flag, defaulting to this build.
func runningVersion(value string) (release.Version, error) {
	if value == "" {
		value = version.Short()
	}

	return release.ParseVersion(value)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}
