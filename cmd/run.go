package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plugtest/plugtest/internal/application"
	"github.com/plugtest/plugtest/internal/core/domain"
	"github.com/plugtest/plugtest/internal/infrastructure/config"
	"github.com/plugtest/plugtest/internal/infrastructure/discovery"
	"github.com/plugtest/plugtest/internal/infrastructure/process"
	"github.com/plugtest/plugtest/internal/infrastructure/provision"
	"github.com/plugtest/plugtest/internal/infrastructure/repo"
	"github.com/plugtest/plugtest/internal/infrastructure/runner"
)

// runFlags holds command-line flags for the run command.
type runFlags struct {
	root        string
	configPath  string
	reportDir   string
	timeout     int
	parallelism int
	keepEnv     bool
}

// newRunCommand creates the run subcommand
func newRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [plugin...]",
		Short: "Provision and test plugins",
		Long: `Run discovers plugins under the repository root, provisions an isolated
environment for each, and runs its test suite. With no arguments every
discovered plugin runs; with names given, only those run.

Example:
  plugtest run
  plugtest run billing ldap-auth
  plugtest run --timeout 600 --parallelism 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(cmd, flags, args)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&flags.root, "root", "", "Repository root (default: nearest ancestor with .git)")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Config file path (default: <root>/plugtest.yaml)")
	cmd.Flags().StringVar(&flags.reportDir, "report-dir", "", "Directory for per-plugin XML reports")
	cmd.Flags().IntVar(&flags.timeout, "timeout", config.DefaultTimeoutSeconds, "Per-test timeout in seconds")
	cmd.Flags().IntVar(&flags.parallelism, "parallelism", config.DefaultParallelism, "Test runner worker count")
	cmd.Flags().BoolVar(&flags.keepEnv, "keep-env", false, "Retain per-plugin environments for debugging")

	return cmd
}

func runHarness(cmd *cobra.Command, flags *runFlags, names []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle shutdown gracefully
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	logger := log.New(os.Stderr, "[plugtest] ", log.LstdFlags)

	cfg, root, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	plugins, err := discoverPlugins(root, cfg.ExcludedDirs, names)
	if err != nil {
		return err
	}
	if len(plugins) == 0 {
		logger.Println("no plugins selected, nothing to do")
		return nil
	}

	executor := process.NewExecutor()
	provisioner := provision.NewVenvProvisioner(executor, cfg.Python, logger)
	testRunner := runner.NewPytestRunner(executor, cfg.TimeoutSeconds, cfg.Parallelism, cfg.ReportDir, logger)
	harness := application.NewHarness(provisioner, testRunner, logger, flags.keepEnv)

	results, err := harness.RunAll(ctx, plugins)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	fmt.Print(application.RenderSummary(results))

	if failures := application.Failures(results); len(failures) > 0 {
		return fmt.Errorf("%d plugin(s) failed", len(failures))
	}
	return nil
}

// loadConfig resolves the repository root, loads the layered configuration,
// and applies explicit flag overrides on top.
func loadConfig(cmd *cobra.Command, flags *runFlags) (config.Config, string, error) {
	root := flags.root
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return config.Config{}, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		root, err = repo.FindRoot(cwd)
		if err != nil {
			return config.Config{}, "", err
		}
	}

	configPath := flags.configPath
	if configPath == "" {
		configPath = filepath.Join(root, config.DefaultConfigFile)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, "", err
	}

	if cmd.Flags().Changed("timeout") {
		cfg.TimeoutSeconds = flags.timeout
	}
	if cmd.Flags().Changed("parallelism") {
		cfg.Parallelism = flags.parallelism
	}
	if cmd.Flags().Changed("report-dir") {
		cfg.ReportDir = flags.reportDir
	}

	return cfg, root, nil
}

func discoverPlugins(root string, extraExcluded, names []string) ([]domain.Plugin, error) {
	plugins, err := discovery.NewScanner(root, extraExcluded).Discover()
	if err != nil {
		return nil, err
	}
	return discovery.Filter(plugins, names), nil
}
