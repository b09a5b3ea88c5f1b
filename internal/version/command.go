package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand attaches a `version` subcommand to root.
// With --short only the version number is printed, which is what
// the updater's own feed comparisons use.
func AttachCobraVersionCommand(root *cobra.Command) {
	var short bool

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long:  "Print the build version, commit hash and build timestamp injected at build time.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if short {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), Short())
				return
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	}

	versionCmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	root.AddCommand(versionCmd)
}
