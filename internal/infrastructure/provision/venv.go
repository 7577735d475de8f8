package provision

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/plugtest/plugtest/internal/core/domain"
	"github.com/plugtest/plugtest/internal/core/ports"
)

// testTooling is installed into every pip environment before the plugin's
// own dependencies so the runner's fixed flags always resolve.
var testTooling = []string{
	"pytest",
	"pytest-xdist",
	"pytest-timeout",
	"pytest-rerunfailures",
}

// pinnedHelpers are testing helpers pinned to exact versions, installed last
// so a plugin's own requirements cannot float them.
var pinnedHelpers = []string{
	"mock==4.0.3",
	"requests-mock==1.9.3",
	"freezegun==1.2.2",
}

// VenvProvisioner creates per-plugin virtualenvs and installs dependencies
// according to the plugin's packaging convention.
type VenvProvisioner struct {
	runner ports.CommandRunner
	python string
	logger *log.Logger
}

// NewVenvProvisioner creates a provisioner that uses python to build
// environments and runner to shell out.
func NewVenvProvisioner(runner ports.CommandRunner, python string, logger *log.Logger) *VenvProvisioner {
	return &VenvProvisioner{
		runner: runner,
		python: python,
		logger: logger,
	}
}

// Provision creates a virtualenv in envDir and installs the plugin's
// dependencies. It returns proceed=false only on the poetry
// interpreter-incompatibility path; every other install failure is fatal.
func (p *VenvProvisioner) Provision(ctx context.Context, plugin domain.Plugin, envDir string) (bool, error) {
	p.logger.Printf("provisioning %s (%s) in %s", plugin.Name, plugin.Convention, envDir)

	if err := p.run(ctx, "", p.python, "-m", "venv", envDir); err != nil {
		return false, fmt.Errorf("failed to create virtualenv for %s: %w", plugin.Name, err)
	}

	switch plugin.Convention {
	case domain.ConventionPip:
		if err := p.provisionPip(ctx, plugin, envDir); err != nil {
			return false, err
		}
		return true, nil
	case domain.ConventionPoetry:
		return p.provisionPoetry(ctx, plugin, envDir)
	default:
		return false, fmt.Errorf("unknown packaging convention %v for %s", plugin.Convention, plugin.Name)
	}
}

// provisionPip installs the fixed tooling, the plugin's declared runtime
// requirements, its development requirements when present, and finally the
// pinned helper set.
func (p *VenvProvisioner) provisionPip(ctx context.Context, plugin domain.Plugin, envDir string) error {
	pip := filepath.Join(envDir, "bin", "pip")

	if err := p.run(ctx, "", pip, append([]string{"install"}, testTooling...)...); err != nil {
		return fmt.Errorf("failed to install test tooling for %s: %w", plugin.Name, err)
	}

	requirements := plugin.Manifests[domain.ManifestRequirements]
	if err := p.run(ctx, "", pip, "install", "-U", "-r", requirements); err != nil {
		return fmt.Errorf("failed to install requirements for %s: %w", plugin.Name, err)
	}

	if devReqs := plugin.Manifests[domain.ManifestDevRequirements]; devReqs != "" {
		if err := p.run(ctx, "", pip, "install", "-U", "-r", devReqs); err != nil {
			return fmt.Errorf("failed to install dev requirements for %s: %w", plugin.Name, err)
		}
	}

	if err := p.run(ctx, "", pip, append([]string{"install", "-U"}, pinnedHelpers...)...); err != nil {
		return fmt.Errorf("failed to install pinned helpers for %s: %w", plugin.Name, err)
	}

	return nil
}

// provisionPoetry installs poetry into the virtualenv and binds it to the
// virtualenv's interpreter. A non-zero exit from the binding step means the
// plugin does not support this interpreter version and is skipped.
func (p *VenvProvisioner) provisionPoetry(ctx context.Context, plugin domain.Plugin, envDir string) (bool, error) {
	pip := filepath.Join(envDir, "bin", "pip")
	poetry := filepath.Join(envDir, "bin", "poetry")
	venvPython := filepath.Join(envDir, "bin", "python")

	if err := p.run(ctx, "", pip, "install", "poetry"); err != nil {
		return false, fmt.Errorf("failed to install poetry for %s: %w", plugin.Name, err)
	}

	code, err := p.runner.Run(ctx, ports.Command{
		Name: poetry,
		Args: []string{"env", "use", venvPython},
		Dir:  plugin.Path,
	})
	if err != nil {
		return false, fmt.Errorf("failed to bind poetry environment for %s: %w", plugin.Name, err)
	}
	if code != 0 {
		p.logger.Printf("skipping %s: poetry does not support interpreter %s", plugin.Name, p.python)
		return false, nil
	}

	if err := p.run(ctx, plugin.Path, poetry, "install"); err != nil {
		return false, fmt.Errorf("failed to install poetry dependencies for %s: %w", plugin.Name, err)
	}

	return true, nil
}

// run executes a command and converts a non-zero exit into an error.
func (p *VenvProvisioner) run(ctx context.Context, dir, name string, args ...string) error {
	code, err := p.runner.Run(ctx, ports.Command{Name: name, Args: args, Dir: dir})
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%s exited with code %d", name, code)
	}
	return nil
}
