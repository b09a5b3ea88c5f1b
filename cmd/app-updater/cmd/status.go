package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/repository/state"
)

// statusCmd prints the last recorded check.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the result of the last update check",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}

		check, err := state.NewFileRepository(cfg.StateFile).Load(ctx)
		if errors.Is(err, state.ErrNotFound) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no check recorded yet")
			return nil
		}

		if err != nil {
			return err
		}

		printCheck(cmd.OutOrStdout(), check)

		return nil
	},
}

func printCheck(w io.Writer, check *release.Check) {
	_, _ = fmt.Fprintf(w, "checked at:      %s\n", check.CheckedAt.Local().Format(time.RFC1123))
	_, _ = fmt.Fprintf(w, "channel:         %s\n", check.Channel)
	_, _ = fmt.Fprintf(w, "feed:            %s\n", check.FeedURL)
	_, _ = fmt.Fprintf(w, "running version: %s\n", check.RunningVersion)
	_, _ = fmt.Fprintf(w, "outcome:         %s\n", check.Outcome)

	if !check.FoundVersion.IsZero() {
		_, _ = fmt.Fprintf(w, "latest version:  %s\n", check.FoundVersion)
	}

	if check.Error != "" {
		_, _ = fmt.Fprintf(w, "error:           %s\n", check.Error)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(statusCmd)
}
