package faces

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mordilloSan/go-logger/logger"
)

// FileStore persists clusters as a JSON file, written atomically.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted clusters. Missing and corrupt files both yield an
// empty set; corruption is logged.
func (s *FileStore) Load() ([]*Cluster, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read face clusters %q: %w", s.path, err)
	}

	var clusters []*Cluster
	if err := json.Unmarshal(data, &clusters); err != nil {
		logger.Warnf("Face cluster file %s is corrupt, starting empty: %v", s.path, err)
		return nil, nil
	}
	return clusters, nil
}

// Save replaces the persisted cluster set.
func (s *FileStore) Save(clusters []*Cluster) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("could not create cluster directory: %w", err)
	}

	data, err := json.Marshal(clusters)
	if err != nil {
		return fmt.Errorf("could not encode face clusters: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("could not write face clusters: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not replace face clusters: %w", err)
	}
	return nil
}
