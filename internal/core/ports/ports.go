package ports

import (
	"context"

	"github.com/plugtest/plugtest/internal/core/domain"
)

// Command describes a single external process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env entries are merged over the parent environment and win on conflict.
	Env map[string]string
}

// CommandRunner executes external commands synchronously.
type CommandRunner interface {
	// Run blocks until the command exits and returns its exit code.
	// The error is non-nil only when the process could not be started
	// or was interrupted; a non-zero exit code is not an error.
	Run(ctx context.Context, cmd Command) (int, error)
}

// Provisioner prepares an isolated environment for one plugin.
type Provisioner interface {
	// Provision creates the environment under envDir and installs the
	// plugin's dependencies. It returns proceed=false when the plugin
	// must be skipped (interpreter incompatibility); any returned error
	// is fatal to the whole run.
	Provision(ctx context.Context, plugin domain.Plugin, envDir string) (proceed bool, err error)
}

// TestRunner locates and executes a plugin's test suite.
type TestRunner interface {
	// HasTests reports whether the plugin contains any test files.
	HasTests(plugin domain.Plugin) (bool, error)
	// Run invokes the test suite inside the provisioned environment and
	// reports whether it passed. The error covers invocation problems
	// only; callers record it as a failure rather than propagating.
	Run(ctx context.Context, plugin domain.Plugin, envDir string) (bool, error)
}
