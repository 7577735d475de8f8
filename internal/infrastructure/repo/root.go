package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindRoot walks up from start to the nearest directory containing a .git
// entry and returns it. It fails when no repository root exists on the path
// to the filesystem root.
func FindRoot(start string) (string, error) {
	if strings.TrimSpace(start) == "" {
		return "", fmt.Errorf("start path is empty")
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", start, err)
	}

	dir := abs
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("repository root not found from %s", abs)
		}
		dir = parent
	}
}
