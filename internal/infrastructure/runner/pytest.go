package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/plugtest/plugtest/internal/core/domain"
	"github.com/plugtest/plugtest/internal/core/ports"
)

// testsDir is the conventional test directory name inside a plugin.
const testsDir = "tests"

// rerunCount is how many times pytest retries a failing test before
// reporting it as failed.
const rerunCount = 2

// PytestRunner invokes pytest inside a provisioned environment.
type PytestRunner struct {
	runner         ports.CommandRunner
	timeoutSeconds int
	parallelism    int
	reportDir      string
	logger         *log.Logger
}

// NewPytestRunner creates a runner with the harness's fixed invocation
// settings. An empty reportDir writes reports to the working directory.
func NewPytestRunner(runner ports.CommandRunner, timeoutSeconds, parallelism int, reportDir string, logger *log.Logger) *PytestRunner {
	return &PytestRunner{
		runner:         runner,
		timeoutSeconds: timeoutSeconds,
		parallelism:    parallelism,
		reportDir:      reportDir,
		logger:         logger,
	}
}

// HasTests reports whether the plugin's top level contains a tests directory
// or any file matching the test_*.py naming convention. Nested test files do
// not count; the plugin owns its top-level layout.
func (r *PytestRunner) HasTests(plugin domain.Plugin) (bool, error) {
	entries, err := os.ReadDir(plugin.Path)
	if err != nil {
		return false, fmt.Errorf("failed to scan %s for tests: %w", plugin.Path, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			if entry.Name() == testsDir {
				return true, nil
			}
			continue
		}
		if isTestFile(entry.Name()) {
			return true, nil
		}
	}

	return false, nil
}

// Run executes pytest for the plugin inside envDir and reports whether the
// suite passed. Poetry plugins go through `poetry run pytest` so the
// dependencies poetry installed into its managed environment resolve; pip
// plugins call the virtualenv's pytest directly.
func (r *PytestRunner) Run(ctx context.Context, plugin domain.Plugin, envDir string) (bool, error) {
	binDir := filepath.Join(envDir, "bin")
	report := filepath.Join(r.reportDir, "report-"+plugin.Name+".xml")

	name := filepath.Join(binDir, "pytest")
	var args []string
	if plugin.Convention == domain.ConventionPoetry {
		name = filepath.Join(binDir, "poetry")
		args = []string{"run", "pytest"}
	}

	args = append(args,
		"-v",
		fmt.Sprintf("--timeout=%d", r.timeoutSeconds),
		"--timeout-method=thread",
		"--junitxml="+report,
		"--reruns", strconv.Itoa(rerunCount),
		"--color=no",
		"-o", "junit_family=xunit2",
		"-n", strconv.Itoa(r.parallelism),
	)

	env := map[string]string{
		"PATH":        binDir + string(os.PathListSeparator) + os.Getenv("PATH"),
		"VIRTUAL_ENV": envDir,
		"LC_ALL":      "C.UTF-8",
		"LANG":        "C.UTF-8",
	}

	r.logger.Printf("running tests for %s", plugin.Name)

	code, err := r.runner.Run(ctx, ports.Command{
		Name: name,
		Args: args,
		Dir:  plugin.Path,
		Env:  env,
	})
	if err != nil {
		return false, fmt.Errorf("failed to invoke pytest for %s: %w", plugin.Name, err)
	}

	return code == 0, nil
}

func isTestFile(name string) bool {
	return strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py")
}
