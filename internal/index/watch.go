package index

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mordilloSan/go-logger/logger"
)

const watchDebounce = 500 * time.Millisecond

// IndexFile extracts and stores a single file, then snapshots the index.
// Used by watch mode; a full run is not required for incremental updates.
func (idx *Indexer) IndexFile(ctx context.Context, path string) error {
	extraction, err := idx.extractor.Extract(ctx, path)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	idx.entries[extraction.Index.FileID] = *extraction.Index
	idx.mu.Unlock()

	if idx.faces != nil && len(extraction.Faces) > 0 {
		idx.faces.Add(extraction.Index.FileID, extraction.Faces)
		if err := idx.faces.Flush(); err != nil {
			logger.Errorf("Could not persist face clusters: %v", err)
		}
	}
	return idx.snapshot()
}

// RemoveFile drops the index entry for path and snapshots the index. Removing
// an unknown path is a no-op.
func (idx *Indexer) RemoveFile(path string) error {
	id := FileID(path)

	idx.mu.Lock()
	_, ok := idx.entries[id]
	delete(idx.entries, id)
	idx.mu.Unlock()

	if !ok {
		return nil
	}
	return idx.snapshot()
}

// Watcher keeps the index in sync with filesystem changes under a directory
// tree. Events are debounced so editors that write in bursts trigger one
// re-index per file.
type Watcher struct {
	indexer *Indexer
	walker  *Walker
}

func NewWatcher(indexer *Indexer, ignorePatterns []string) *Watcher {
	return &Watcher{
		indexer: indexer,
		walker:  NewWalker(ignorePatterns, true),
	}
}

// Watch blocks until ctx is canceled, applying filesystem changes under dir
// to the index as they settle.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create filesystem watcher: %w", err)
	}
	defer fsw.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("could not resolve %q: %w", dir, err)
	}
	if err := addRecursive(fsw, root); err != nil {
		return err
	}
	logger.Infof("Watching %s for changes", root)

	pending := map[string]fsnotify.Op{}
	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.skip(root, event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Create) && isDir(event.Name) {
				// New directories must be watched before files land in them.
				if err := addRecursive(fsw, event.Name); err != nil {
					logger.Warnf("Could not watch %s: %v", event.Name, err)
				}
				continue
			}
			pending[event.Name] = event.Op
			timer.Reset(watchDebounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("Filesystem watcher error: %v", err)

		case <-timer.C:
			w.apply(ctx, pending)
			pending = map[string]fsnotify.Op{}
		}
	}
}

func (w *Watcher) apply(ctx context.Context, pending map[string]fsnotify.Op) {
	for path, op := range pending {
		switch {
		case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
			if err := w.indexer.RemoveFile(path); err != nil {
				logger.Warnf("Could not remove %s from index: %v", path, err)
			} else {
				logger.Debugf("Removed %s from index", path)
			}
		case op.Has(fsnotify.Create) || op.Has(fsnotify.Write):
			if err := w.indexer.IndexFile(ctx, path); err != nil {
				logger.Warnf("Could not re-index %s: %v", path, err)
			} else {
				logger.Debugf("Re-indexed %s", path)
			}
		}
	}
}

func (w *Watcher) skip(root, path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || ignoredDirs[name] {
		return true
	}
	return w.walker.ignored(root, path)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// addRecursive registers dir and all its subdirectories with the watcher.
// Non-directories are ignored so callers can pass event paths directly.
func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && (strings.HasPrefix(name, ".") || ignoredDirs[name]) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			logger.Warnf("Could not watch %s: %v", path, err)
		}
		return nil
	})
}
