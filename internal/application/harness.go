package application

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/plugtest/plugtest/internal/core/domain"
	"github.com/plugtest/plugtest/internal/core/ports"
)

// Harness drives the per-plugin lifecycle: discovered plugins go through
// provisioning, execution, and reporting strictly one at a time, with no
// shared state between plugins.
type Harness struct {
	provisioner ports.Provisioner
	runner      ports.TestRunner
	logger      *log.Logger

	// keepEnv retains per-plugin environments instead of removing them,
	// for debugging provisioning problems.
	keepEnv bool
}

// NewHarness wires a harness from its collaborators.
func NewHarness(provisioner ports.Provisioner, runner ports.TestRunner, logger *log.Logger, keepEnv bool) *Harness {
	return &Harness{
		provisioner: provisioner,
		runner:      runner,
		logger:      logger,
		keepEnv:     keepEnv,
	}
}

// RunAll processes every plugin sequentially. A fatal provisioning error
// aborts the run immediately; test failures are recorded and the remaining
// plugins still run.
func (h *Harness) RunAll(ctx context.Context, plugins []domain.Plugin) ([]domain.RunResult, error) {
	results := make([]domain.RunResult, 0, len(plugins))

	for _, plugin := range plugins {
		result, err := h.runOne(ctx, plugin)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

func (h *Harness) runOne(ctx context.Context, plugin domain.Plugin) (domain.RunResult, error) {
	start := time.Now()

	hasTests, err := h.runner.HasTests(plugin)
	if err != nil {
		return domain.RunResult{}, err
	}
	if !hasTests {
		h.logger.Printf("%s: no test files, nothing to run", plugin.Name)
		return h.result(plugin, domain.OutcomeSkipped, "no test files", start), nil
	}

	envDir, err := os.MkdirTemp("", "plugtest-"+plugin.Name+"-")
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("failed to create environment directory for %s: %w", plugin.Name, err)
	}
	if !h.keepEnv {
		defer os.RemoveAll(envDir)
	} else {
		h.logger.Printf("%s: keeping environment %s", plugin.Name, envDir)
	}

	proceed, err := h.provisioner.Provision(ctx, plugin, envDir)
	if err != nil {
		return domain.RunResult{}, err
	}
	if !proceed {
		return h.result(plugin, domain.OutcomeSkipped, "interpreter not supported", start), nil
	}

	passed, err := h.runner.Run(ctx, plugin, envDir)
	if err != nil {
		// An invocation error never crashes the run; it is this plugin's
		// failure.
		h.logger.Printf("%s: test invocation failed: %v", plugin.Name, err)
		passed = false
	}

	if passed {
		return h.result(plugin, domain.OutcomePassed, "", start), nil
	}
	return h.result(plugin, domain.OutcomeFailed, "", start), nil
}

func (h *Harness) result(plugin domain.Plugin, outcome domain.Outcome, reason string, start time.Time) domain.RunResult {
	return domain.RunResult{
		Plugin:  plugin,
		Outcome: outcome,
		Reason:  reason,
		Elapsed: time.Since(start),
	}
}

// Failures returns the failing results in run order.
func Failures(results []domain.RunResult) []domain.RunResult {
	var failed []domain.RunResult
	for _, result := range results {
		if result.Failed() {
			failed = append(failed, result)
		}
	}
	return failed
}
