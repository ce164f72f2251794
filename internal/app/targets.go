package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"copyverify/internal/domain"
)

// targetPath maps one inventoried source file onto the destination.
//
// A single-file inventory goes to destination itself when destination is an
// existing file, and to destination/<name> when destination is a directory
// or does not exist yet. Files of a tree keep their path relative to the root.
func targetPath(fsys FileSystem, inv domain.ScanStatistics, destination, file string) (string, error) {
	if inv.IsFile {
		info, err := fsys.Stat(destination)
		if err == nil && !info.IsDir() {
			return destination, nil
		}
		return filepath.Join(destination, filepath.Base(file)), nil
	}

	rel, err := filepath.Rel(inv.Root, file)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", file, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("resolve %s: outside of %s", file, inv.Root)
	}
	return filepath.Join(destination, rel), nil
}
