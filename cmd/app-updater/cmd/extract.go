package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/app-updater/internal/logger"
	"github.com/oshokin/app-updater/internal/service/extractor"
)

var (
	// waitFor is the process to wait for before extracting.
	waitFor string
	// extractOptions collects the remaining extract flags.
	extractOptions extractor.Options

	// extractCmd unpacks one artifact; the install script calls it.
	extractCmd = &cobra.Command{
		Use:   "extract <archive> <target-dir>",
		Short: "Unpack a downloaded artifact into the target directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if _, err := logger.Setup(logLevel, ""); err != nil {
				return err
			}

			options := extractOptions
			options.Archive = args[0]
			options.TargetDir = args[1]
			options.WaitFor = waitFor

			return extractor.Run(ctx, &options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	extractCmd.Flags().StringVar(&waitFor, "wait-for", "", "process name to wait for before extracting")
	extractCmd.Flags().DurationVar(&extractOptions.WaitTimeout, "wait-timeout", extractor.DefaultWaitTimeout,
		"how long to wait for the process to exit")
	extractCmd.Flags().BoolVar(&extractOptions.ForceKill, "force-kill", true,
		"terminate the process when it is still running after the timeout")
	rootCmd.AddCommand(extractCmd)
}
