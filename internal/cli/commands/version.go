package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display mvrefresh version information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mvrefresh v%s\n", version)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Refreshes PostgreSQL materialized views in dependency order")
		},
	}
}
