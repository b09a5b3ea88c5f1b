package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/app-updater/internal/config"
	"github.com/oshokin/app-updater/internal/console"
	"github.com/oshokin/app-updater/internal/service/updater"
)

var (
	// channel overrides the configured update channel.
	channel string
	// feedURL overrides the channel feeds.
	feedURL string
	// running is the version of the owner application.
	running string

	// checkCmd only checks the feed.
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check whether a newer version is published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outcome, err := runUpdater(cmd, false)
			if err != nil {
				return err
			}

			if outcome.Found {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), outcome.Version)
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "up to date")
			}

			return nil
		},
	}
)

// runUpdater loads settings and runs the orchestrator with a console listener.
func runUpdater(cmd *cobra.Command, download bool) (*updater.Outcome, error) {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig(func(cfg *config.Config) {
		if channel != "" {
			cfg.Channel = channel
		}

		if feedURL != "" {
			cfg.FeedURL = feedURL
		}
	})
	if err != nil {
		return nil, err
	}

	version, err := runningVersion(running)
	if err != nil {
		return nil, err
	}

	listener := console.New(cmd.OutOrStdout())
	if download {
		ctx = listener.Context(ctx)
	}

	return updater.RunCommand(ctx, &updater.CommandOptions{
		Config:         cfg,
		RunningVersion: version,
		Download:       download,
		Listener:       listener,
	})
}

func addUpdaterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&channel, "channel", "", "update channel: release, beta or all")
	cmd.Flags().StringVar(&feedURL, "feed-url", "", "feed URI overriding the channel feeds")
	cmd.Flags().StringVar(&running, "running-version", "", "version of the installed application (default: this build)")
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addUpdaterFlags(checkCmd)
	rootCmd.AddCommand(checkCmd)
}
