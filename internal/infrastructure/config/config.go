package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults for the harness. Kept as named constants so behavior-defining
// values live in one place.
const (
	DefaultPython         = "python3"
	DefaultTimeoutSeconds = 600
	DefaultParallelism    = 5
	DefaultConfigFile     = "plugtest.yaml"
)

// Config holds harness settings after merging defaults, the optional YAML
// config file, and environment overrides. Flags are applied by the CLI layer
// on top of the loaded value.
type Config struct {
	// Python is the interpreter used to create per-plugin environments.
	Python string `yaml:"python" validate:"required"`
	// TimeoutSeconds is the per-test timeout enforced by the test runner.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gt=0"`
	// Parallelism is the worker count handed to the test runner.
	Parallelism int `yaml:"parallelism" validate:"gt=0"`
	// ReportDir is where per-plugin XML reports are written; empty means
	// the current working directory.
	ReportDir string `yaml:"report_dir"`
	// ExcludedDirs are additional top-level directory names to skip during
	// discovery, merged with the fixed denylist.
	ExcludedDirs []string `yaml:"excluded_dirs"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Python:         DefaultPython,
		TimeoutSeconds: DefaultTimeoutSeconds,
		Parallelism:    DefaultParallelism,
	}
}

// Load builds the effective configuration. A missing file at path is not an
// error; a present but unreadable or invalid file is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, errors.Wrapf(err, "failed to parse config file %s", path)
			}
		case os.IsNotExist(err):
			// Fall through to env and defaults.
		default:
			return Config{}, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	if err := applyEnvironment(&cfg); err != nil {
		return Config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

// applyEnvironment merges PLUGTEST_-prefixed environment variables over the
// current values.
func applyEnvironment(cfg *Config) error {
	if python := os.Getenv("PLUGTEST_PYTHON"); python != "" {
		cfg.Python = python
	}
	if reportDir := os.Getenv("PLUGTEST_REPORT_DIR"); reportDir != "" {
		cfg.ReportDir = reportDir
	}
	if timeout := os.Getenv("PLUGTEST_TIMEOUT_SECONDS"); timeout != "" {
		parsed, err := strconv.Atoi(timeout)
		if err != nil {
			return errors.Wrap(err, "invalid PLUGTEST_TIMEOUT_SECONDS")
		}
		cfg.TimeoutSeconds = parsed
	}
	if parallelism := os.Getenv("PLUGTEST_PARALLELISM"); parallelism != "" {
		parsed, err := strconv.Atoi(parallelism)
		if err != nil {
			return errors.Wrap(err, "invalid PLUGTEST_PARALLELISM")
		}
		cfg.Parallelism = parsed
	}
	return nil
}
