package index

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mordilloSan/go-logger/logger"
)

// ignoredDirs are directory names always skipped during scanning.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"vendor":       true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// Walker collects candidate file paths under a root directory.
type Walker struct {
	ignorePatterns []string
	recursive      bool
}

func NewWalker(ignorePatterns []string, recursive bool) *Walker {
	return &Walker{
		ignorePatterns: ignorePatterns,
		recursive:      recursive,
	}
}

// Walk returns every regular file under root that survives the ignore rules,
// in lexical walk order. A missing or unreadable root fails the scan;
// unreadable subdirectories are logged and skipped.
func (w *Walker) Walk(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %q: %w", root, err)
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == abs {
				return err
			}
			logger.Warnf("Skipping unreadable path %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path == abs {
				return nil
			}
			if !w.recursive {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") || ignoredDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if w.ignored(abs, path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not scan %q: %w", root, err)
	}

	return files, nil
}

func (w *Walker) ignored(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range w.ignorePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, filepath.Base(path)); err == nil && ok {
			return true
		}
	}
	return false
}
