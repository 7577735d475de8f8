package domain

import (
	"fmt"
	"time"
)

// Convention identifies how a plugin declares its dependencies. The two
// supported packaging conventions form a closed set; discovery never
// produces a plugin outside of it.
type Convention int

const (
	// ConventionPip marks plugins that declare dependencies in a requirements.txt.
	ConventionPip Convention = iota
	// ConventionPoetry marks plugins that ship a pyproject.toml managed by poetry.
	ConventionPoetry
)

func (c Convention) String() string {
	switch c {
	case ConventionPip:
		return "pip"
	case ConventionPoetry:
		return "poetry"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Manifest roles recorded in Plugin.Manifests, keyed by what the file is for
// rather than its literal filename.
const (
	ManifestRequirements    = "requirements"
	ManifestDevRequirements = "dev-requirements"
	ManifestPyproject       = "pyproject"
)

// Plugin is one independently testable unit discovered in the repository.
// A directory that carries manifests for both conventions yields two
// distinct Plugin records, one per convention.
type Plugin struct {
	Name       string
	Path       string
	Convention Convention
	Manifests  map[string]string
}

// Outcome is the terminal state of one plugin's test run.
type Outcome int

const (
	OutcomePassed Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// RunResult pairs a plugin with the outcome of its run. Skips count as
// success for aggregation purposes.
type RunResult struct {
	Plugin  Plugin
	Outcome Outcome
	Reason  string // set for skips, empty otherwise
	Elapsed time.Duration
}

// Failed reports whether this result should fail the overall run.
func (r RunResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}
