package vault

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Walk enumerates the markdown notes under root, skipping paths that match
// any of the ignore patterns (doublestar globs relative to root). Results
// are sorted so runs process documents in a stable order.
func Walk(root string, ignore []string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if ignoredDir(rel, ignore) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		if ignored(rel, ignore) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Ignored reports whether a file under root matches any ignore pattern.
// Watch mode uses this to apply the same exclusions as a batch walk.
func Ignored(root, path string, patterns []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return ignored(filepath.ToSlash(rel), patterns)
}

// IgnoredDir reports whether a directory under root should be pruned.
func IgnoredDir(root, path string, patterns []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return ignoredDir(filepath.ToSlash(rel), patterns)
}

func ignored(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// ignoredDir prunes a directory when a pattern covers everything inside it,
// e.g. ".obsidian/**" prunes ".obsidian".
func ignoredDir(rel string, patterns []string) bool {
	for _, p := range patterns {
		if strings.TrimSuffix(p, "/**") == rel {
			return true
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
