package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/app-updater/internal/service/updater"
)

var (
	// apply launches the install script once it is written.
	apply bool

	// runCmd checks, downloads and writes the install script.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Download the newest version and write the install script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outcome, err := runUpdater(cmd, true)
			if err != nil {
				return err
			}

			if outcome.ScriptPath == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "up to date")
				return nil
			}

			if !apply {
				return nil
			}

			return updater.Launch(outcome.ScriptPath)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addUpdaterFlags(runCmd)
	runCmd.Flags().BoolVar(&apply, "apply", false, "launch the install script and exit")
	rootCmd.AddCommand(runCmd)
}
