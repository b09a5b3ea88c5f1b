package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/app-updater/internal/logger"
	"github.com/oshokin/app-updater/internal/service/packager"
	"github.com/oshokin/app-updater/internal/version"
)

var (
	// options collects the packager flags.
	options packager.Options
	// logLevel sets the log level.
	logLevel string

	// rootCmd represents the base command for publishing a release into a feed.
	rootCmd = &cobra.Command{
		Use:          "feed-packager <feed.xml> <version> <file-url>...",
		Short:        "Add or replace a release entry in an update feed",
		Args:         cobra.MinimumNArgs(3),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if _, err := logger.Setup(logLevel, ""); err != nil {
				return err
			}

			opts := options
			opts.FeedPath = args[0]
			opts.Version = args[1]
			opts.FileURLs = args[2:]

			return packager.Run(ctx, &opts)
		},
	}
)

// Execute runs the feed-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.Flags()
	flags.StringVar(&options.Mode, "mode", "release", "build channel: release, beta or all")
	flags.StringVar(&options.Comments, "comments", "", "release notes")
	flags.StringArrayVar(&options.Commands, "command", nil, "post-install command, repeat for several")
	flags.StringVar(&options.FileVersion, "file-version", "", "version of the files (default: the release version)")
	flags.StringVar(&options.SizeFrom, "size-from", "", "directory with local copies of the files to measure their size")
	flags.BoolVar(&options.Restart, "restart", false, "mark the files as requiring an application restart")
	flags.IntVar(&options.ChangeSet, "change-set", 0, "source revision of the release")
	flags.StringVar(&options.Namespace, "namespace", "", "XML namespace of a newly created feed")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}
