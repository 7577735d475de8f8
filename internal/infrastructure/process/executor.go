package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/plugtest/plugtest/internal/core/ports"
)

// Executor implements the CommandRunner port on top of os/exec.
type Executor struct {
	env    []string
	stdout io.Writer
	stderr io.Writer
}

// NewExecutor creates an executor that inherits the current environment and
// streams child output to the harness's own stdout/stderr.
func NewExecutor() *Executor {
	return &Executor{
		env:    os.Environ(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// NewExecutorWithOutput creates an executor with custom output sinks and an
// explicit base environment. A nil env falls back to the current environment.
func NewExecutorWithOutput(stdout, stderr io.Writer, env []string) *Executor {
	if env == nil {
		env = os.Environ()
	}
	return &Executor{env: env, stdout: stdout, stderr: stderr}
}

// Run executes the command and blocks until it exits.
func (e *Executor) Run(ctx context.Context, cmd ports.Command) (int, error) {
	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)

	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}

	execCmd.Env = buildEnvironment(e.env, cmd.Env)
	execCmd.Stdout = e.stdout
	execCmd.Stderr = e.stderr

	err := execCmd.Run()
	if err == nil {
		return 0, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}

	return -1, fmt.Errorf("failed to run %s: %w", cmd.Name, err)
}

// buildEnvironment combines the base environment with command-specific
// overrides. Later entries win, so overrides are appended after the base.
func buildEnvironment(base []string, overrides map[string]string) []string {
	env := append([]string(nil), base...)

	for key, value := range overrides {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	return env
}
