package search

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mordilloSan/go-logger/logger"
)

// QueryFeedback records which results a user confirmed or rejected for one
// normalized query. Confirmed results are pinned to the top of later searches
// for the same query; rejected results are excluded from them.
type QueryFeedback struct {
	Confirmed []string `json:"confirmed"`
	Rejected  []string `json:"rejected"`
}

// FeedbackStore keeps per-query feedback in memory and mirrors it to a JSON
// file so it survives restarts.
type FeedbackStore struct {
	path string

	mu      sync.RWMutex
	queries map[string]*QueryFeedback
}

// NewFeedbackStore loads any persisted feedback from path. Missing and
// corrupt files start empty.
func NewFeedbackStore(path string) *FeedbackStore {
	s := &FeedbackStore{
		path:    path,
		queries: map[string]*QueryFeedback{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("Could not read feedback file %s: %v", path, err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.queries); err != nil {
		logger.Warnf("Feedback file %s is corrupt, starting empty: %v", path, err)
		s.queries = map[string]*QueryFeedback{}
	}
	return s
}

// Confirm marks fileID as a good result for query. A previous rejection of
// the same file is withdrawn.
func (s *FeedbackStore) Confirm(query, fileID string) error {
	return s.record(query, fileID, true)
}

// Reject marks fileID as a bad result for query. A previous confirmation of
// the same file is withdrawn.
func (s *FeedbackStore) Reject(query, fileID string) error {
	return s.record(query, fileID, false)
}

func (s *FeedbackStore) record(query, fileID string, confirmed bool) error {
	key := NormalizeQuery(query)
	if key == "" || fileID == "" {
		return fmt.Errorf("feedback needs both a query and a file id")
	}

	s.mu.Lock()
	fb, ok := s.queries[key]
	if !ok {
		fb = &QueryFeedback{}
		s.queries[key] = fb
	}
	if confirmed {
		fb.Rejected = remove(fb.Rejected, fileID)
		fb.Confirmed = appendUnique(fb.Confirmed, fileID)
	} else {
		fb.Confirmed = remove(fb.Confirmed, fileID)
		fb.Rejected = appendUnique(fb.Rejected, fileID)
	}
	s.mu.Unlock()

	return s.save()
}

// For returns the feedback recorded for query, or an empty value.
func (s *FeedbackStore) For(query string) QueryFeedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fb, ok := s.queries[NormalizeQuery(query)]
	if !ok {
		return QueryFeedback{}
	}
	return QueryFeedback{
		Confirmed: append([]string(nil), fb.Confirmed...),
		Rejected:  append([]string(nil), fb.Rejected...),
	}
}

func (s *FeedbackStore) save() error {
	s.mu.RLock()
	data, err := json.Marshal(s.queries)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("could not encode feedback: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("could not create feedback directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("could not write feedback: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not replace feedback file: %w", err)
	}
	return nil
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

func remove(list []string, item string) []string {
	out := list[:0]
	for _, existing := range list {
		if existing != item {
			out = append(out, existing)
		}
	}
	return out
}
