// Package store persists index snapshots. The default backend is a single
// JSON file written atomically; a PostgreSQL backend lives in the postgres
// subpackage.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/photo-index/internal/index"
	"github.com/mordilloSan/go-logger/logger"
)

// FileStore keeps the index snapshot as a JSON array of [fileId, record]
// pairs. Writes go through a temp file and rename so readers never see a
// partial snapshot.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the last snapshot. A missing file means an empty index; a
// corrupt file is logged and treated as empty rather than blocking startup.
func (s *FileStore) Load() ([]index.Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []index.Entry{}, nil
		}
		return nil, fmt.Errorf("could not read index snapshot %q: %w", s.path, err)
	}

	var entries []index.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warnf("Index snapshot %s is corrupt, starting empty: %v", s.path, err)
		return []index.Entry{}, nil
	}
	return entries, nil
}

// Snapshot replaces the stored snapshot with entries.
func (s *FileStore) Snapshot(entries []index.Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("could not create snapshot directory: %w", err)
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("could not encode index snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("could not write index snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not replace index snapshot: %w", err)
	}
	return nil
}
