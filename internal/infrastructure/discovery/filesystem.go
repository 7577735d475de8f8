package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/plugtest/plugtest/internal/core/domain"
)

// ExcludedDirs is the fixed denylist of top-level directory names that are
// never treated as plugins, regardless of manifest presence.
var ExcludedDirs = []string{
	"build",
	"dist",
	"docs",
	"node_modules",
	"scripts",
	"tools",
	"vendor",
}

// Manifest filenames for the two supported packaging conventions.
const (
	requirementsManifest = "requirements.txt"
	pyprojectManifest    = "pyproject.toml"
	devRequirements      = "requirements-dev.txt"
)

// Scanner discovers plugin directories under a repository root.
type Scanner struct {
	root     string
	excluded map[string]struct{}
}

// NewScanner creates a scanner for the given root. extraExcluded names are
// merged with the fixed denylist.
func NewScanner(root string, extraExcluded []string) *Scanner {
	excluded := make(map[string]struct{}, len(ExcludedDirs)+len(extraExcluded))
	for _, name := range ExcludedDirs {
		excluded[name] = struct{}{}
	}
	for _, name := range extraExcluded {
		excluded[name] = struct{}{}
	}

	return &Scanner{root: root, excluded: excluded}
}

// Discover scans the top level of the root and returns one Plugin record per
// recognized manifest convention, sorted by name within each convention
// group. A directory carrying both manifests yields two records.
func (s *Scanner) Discover() ([]domain.Plugin, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read repository root %s: %w", s.root, err)
	}

	var pip, poetry []domain.Plugin

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, denied := s.excluded[name]; denied {
			continue
		}

		dir := filepath.Join(s.root, name)

		if requirementsPath, ok := fileExists(dir, requirementsManifest); ok {
			manifests := map[string]string{domain.ManifestRequirements: requirementsPath}
			if devPath, ok := fileExists(dir, devRequirements); ok {
				manifests[domain.ManifestDevRequirements] = devPath
			}
			pip = append(pip, domain.Plugin{
				Name:       name,
				Path:       dir,
				Convention: domain.ConventionPip,
				Manifests:  manifests,
			})
		}

		if pyprojectPath, ok := fileExists(dir, pyprojectManifest); ok {
			poetry = append(poetry, domain.Plugin{
				Name:       name,
				Path:       dir,
				Convention: domain.ConventionPoetry,
				Manifests:  map[string]string{domain.ManifestPyproject: pyprojectPath},
			})
		}
	}

	sortByName(pip)
	sortByName(poetry)

	return append(pip, poetry...), nil
}

// Filter returns the intersection of plugins with the requested names,
// preserving discovery order. An empty request selects everything.
func Filter(plugins []domain.Plugin, names []string) []domain.Plugin {
	if len(names) == 0 {
		return plugins
	}

	requested := make(map[string]struct{}, len(names))
	for _, name := range names {
		requested[name] = struct{}{}
	}

	var selected []domain.Plugin
	for _, plugin := range plugins {
		if _, ok := requested[plugin.Name]; ok {
			selected = append(selected, plugin)
		}
	}

	return selected
}

func sortByName(plugins []domain.Plugin) {
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name < plugins[j].Name
	})
}

func fileExists(dir, name string) (string, bool) {
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}
