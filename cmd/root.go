package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "plugtest",
		Short: "Plugtest - monorepo plugin test harness",
		Long: `Plugtest discovers plugin directories in a monorepo, provisions an
isolated Python environment for each one according to its packaging
convention, runs its test suite, and aggregates the results into the
process exit code.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Add subcommands
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newListCommand())

	return rootCmd
}
