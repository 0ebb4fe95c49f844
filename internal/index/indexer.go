package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/photo-index/internal/models"
	"github.com/mordilloSan/go-logger/logger"
)

// animalLabels are object labels counted as animals in the entity summary.
var animalLabels = map[string]bool{
	"dog":    true,
	"cat":    true,
	"bird":   true,
	"animal": true,
}

// FaceSink consumes face descriptors discovered during indexing. Implemented
// by the identity clusterer; a nil sink disables face collection.
type FaceSink interface {
	Add(fileID string, detections []models.FaceDetection)
	Flush() error
}

// Indexer orchestrates indexing runs: it walks a directory, extracts features
// for each file, keeps the in-memory index and snapshots it through the store.
// At most one run is active at a time.
type Indexer struct {
	extractor *Extractor
	store     Store
	faces     FaceSink
	events    *broadcaster

	mu       sync.RWMutex
	running  bool
	progress Progress
	entries  map[string]FileIndex
}

// NewIndexer builds an indexer seeded from the store's last snapshot. A
// missing or unreadable snapshot starts the index empty.
func NewIndexer(extractor *Extractor, store Store, faces FaceSink) *Indexer {
	idx := &Indexer{
		extractor: extractor,
		store:     store,
		faces:     faces,
		events:    newBroadcaster(),
		entries:   map[string]FileIndex{},
		progress:  Progress{Status: StatusComplete},
	}

	loaded, err := store.Load()
	if err != nil {
		logger.Warnf("Could not load index snapshot, starting empty: %v", err)
		return idx
	}
	for _, entry := range loaded {
		idx.entries[entry.ID] = entry.Index
	}
	if len(loaded) > 0 {
		logger.Infof("Loaded %d index entries from snapshot", len(loaded))
	}
	return idx
}

// Start launches an indexing run over dir in the background. It fails fast if
// a run is already active.
func (idx *Indexer) Start(ctx context.Context, dir string, recursive bool, ignorePatterns []string) error {
	idx.mu.Lock()
	if idx.running {
		idx.mu.Unlock()
		return fmt.Errorf("indexing already in progress")
	}
	idx.running = true
	idx.progress = Progress{Status: StatusScanning}
	idx.mu.Unlock()
	idx.events.publish(Progress{Status: StatusScanning})

	go idx.run(ctx, dir, recursive, ignorePatterns)
	return nil
}

// Run indexes dir synchronously, returning once the run reaches a terminal
// state.
func (idx *Indexer) Run(ctx context.Context, dir string, recursive bool, ignorePatterns []string) error {
	idx.mu.Lock()
	if idx.running {
		idx.mu.Unlock()
		return fmt.Errorf("indexing already in progress")
	}
	idx.running = true
	idx.progress = Progress{Status: StatusScanning}
	idx.mu.Unlock()
	idx.events.publish(Progress{Status: StatusScanning})

	idx.run(ctx, dir, recursive, ignorePatterns)

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.progress.Status == StatusError {
		return fmt.Errorf("indexing failed: %s", idx.progress.Error)
	}
	return nil
}

func (idx *Indexer) run(ctx context.Context, dir string, recursive bool, ignorePatterns []string) {
	defer func() {
		idx.mu.Lock()
		idx.running = false
		idx.mu.Unlock()
	}()

	walker := NewWalker(ignorePatterns, recursive)
	files, err := walker.Walk(dir)
	if err != nil {
		idx.fail(err)
		return
	}

	// The total is fixed once scanning ends, even when individual files
	// later fail or disappear.
	total := len(files)
	logger.Infof("Indexing %d files under %s", total, dir)

	for i, path := range files {
		if ctx.Err() != nil {
			idx.fail(fmt.Errorf("indexing canceled: %w", ctx.Err()))
			return
		}

		idx.setProgress(Progress{
			CurrentFile: path,
			Processed:   i,
			Total:       total,
			Percentage:  percentage(i, total),
			Status:      StatusIndexing,
		})

		extraction, err := idx.extractor.Extract(ctx, path)
		if err != nil {
			logger.Warnf("Skipping %s: %v", path, err)
			continue
		}

		idx.mu.Lock()
		idx.entries[extraction.Index.FileID] = *extraction.Index
		idx.mu.Unlock()

		if idx.faces != nil && len(extraction.Faces) > 0 {
			idx.faces.Add(extraction.Index.FileID, extraction.Faces)
		}
	}

	// Persistence failures do not fail the run: the in-memory index stays
	// usable and the next successful snapshot catches up.
	if err := idx.snapshot(); err != nil {
		logger.Errorf("Could not persist index snapshot: %v", err)
	}
	if idx.faces != nil {
		if err := idx.faces.Flush(); err != nil {
			logger.Errorf("Could not persist face clusters: %v", err)
		}
	}

	idx.setProgress(Progress{
		Processed:  total,
		Total:      total,
		Percentage: 100,
		Status:     StatusComplete,
	})
	logger.Infof("Indexing complete: %d files processed", total)
}

func (idx *Indexer) snapshot() error {
	entries := idx.Entries()
	if err := idx.store.Snapshot(entries); err != nil {
		return fmt.Errorf("could not snapshot index: %w", err)
	}
	return nil
}

func (idx *Indexer) fail(err error) {
	logger.Errorf("Indexing run failed: %v", err)
	idx.mu.Lock()
	p := idx.progress
	p.Status = StatusError
	p.Error = err.Error()
	idx.progress = p
	idx.mu.Unlock()
	idx.events.publish(p)
}

// setProgress records p and then notifies subscribers. Publication happens
// outside the lock so observers may call back into the indexer.
func (idx *Indexer) setProgress(p Progress) {
	idx.mu.Lock()
	idx.progress = p
	idx.mu.Unlock()
	idx.events.publish(p)
}

func percentage(processed, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(processed) / float64(total) * 100
}

// Progress returns the state of the current or most recent run.
func (idx *Indexer) Progress() Progress {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.progress
}

// Running reports whether a run is active.
func (idx *Indexer) Running() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.running
}

// Subscribe returns a channel of progress updates. Callers must Unsubscribe
// when done; slow readers miss intermediate updates.
func (idx *Indexer) Subscribe() chan Progress {
	return idx.events.subscribe()
}

func (idx *Indexer) Unsubscribe(ch chan Progress) {
	idx.events.unsubscribe(ch)
}

// AddObserver registers a callback invoked on every progress update.
func (idx *Indexer) AddObserver(fn Observer) {
	idx.events.addObserver(fn)
}

// Entries returns a snapshot of all index entries ordered by path.
func (idx *Indexer) Entries() []Entry {
	idx.mu.RLock()
	entries := make([]Entry, 0, len(idx.entries))
	for id, record := range idx.entries {
		entries = append(entries, Entry{ID: id, Index: record})
	}
	idx.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Index.Path < entries[j].Index.Path
	})
	return entries
}

// Get returns the index record for a file ID.
func (idx *Indexer) Get(fileID string) (FileIndex, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	record, ok := idx.entries[fileID]
	return record, ok
}

// Stats aggregates counts and sizes across the index.
func (idx *Indexer) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := Stats{FileTypes: map[string]int{}}
	for _, record := range idx.entries {
		stats.TotalFiles++
		stats.TotalSize += record.Size
		key := record.Type
		if key == "" {
			key = "unknown"
		}
		stats.FileTypes[key]++
	}
	return stats
}

// Entities summarizes face markers and animal detections across the index.
func (idx *Indexer) Entities() EntitySummary {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	summary := EntitySummary{
		Faces:   map[string]int{},
		Animals: map[string]int{},
	}
	for _, record := range idx.entries {
		for _, face := range record.Faces {
			summary.Faces[face.Label]++
		}
		for _, obj := range record.Objects {
			if animalLabels[obj.Label] {
				summary.Animals[obj.Label]++
			}
		}
	}
	return summary
}
