package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/plugtest/plugtest/internal/infrastructure/config"
	"github.com/plugtest/plugtest/internal/infrastructure/discovery"
	"github.com/plugtest/plugtest/internal/infrastructure/repo"
)

// newListCommand creates the list subcommand
func newListCommand() *cobra.Command {
	var root string
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered plugins",
		Long: `List prints every plugin discovered under the repository root together
with its packaging convention and manifest files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(root, configPath)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&root, "root", "", "Repository root (default: nearest ancestor with .git)")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: <root>/plugtest.yaml)")

	return cmd
}

func runList(root, configPath string) error {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		root, err = repo.FindRoot(cwd)
		if err != nil {
			return err
		}
	}

	if configPath == "" {
		configPath = filepath.Join(root, config.DefaultConfigFile)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	plugins, err := discovery.NewScanner(root, cfg.ExcludedDirs).Discover()
	if err != nil {
		return err
	}

	nameStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	for _, plugin := range plugins {
		fmt.Printf("%s  %s\n", nameStyle.Render(plugin.Name), dimStyle.Render(fmt.Sprintf("(%s)", plugin.Convention)))

		roles := make([]string, 0, len(plugin.Manifests))
		for role := range plugin.Manifests {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			fmt.Printf("    %s: %s\n", role, plugin.Manifests[role])
		}
	}

	fmt.Printf("%d plugin(s) discovered\n", len(plugins))
	return nil
}
