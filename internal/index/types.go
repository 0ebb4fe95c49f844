package index

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"
)

// FileIndex is the persisted record for one indexed file. A re-index of the
// same path fully replaces the previous record; fields are never merged.
type FileIndex struct {
	FileID        string       `json:"file_id"`
	Path          string       `json:"path"`
	Name          string       `json:"name"`
	Type          string       `json:"type"` // extension without the leading dot
	Size          int64        `json:"size"`
	TextContent   string       `json:"text_content,omitempty"`
	TextEmbedding []float32    `json:"text_embedding,omitempty"`
	Objects       []ObjectLabel `json:"objects"`
	Faces         []FaceMarker  `json:"faces"`
	Metadata      FileMetadata  `json:"metadata"`
	LastIndexed   time.Time     `json:"last_indexed"`
}

// ObjectLabel is one merged object-detection or classification result.
type ObjectLabel struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// FaceMarker is a lightweight face presence marker on a file. It records that
// a face-like object was seen; identity clustering works from full descriptors
// handled separately.
type FaceMarker struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// FileMetadata carries filesystem timestamps for an indexed file.
type FileMetadata struct {
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// FileID derives the stable identifier for a path. The same path always
// yields the same ID regardless of how often it is derived.
func FileID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:16]
}

// Entry pairs a file ID with its index record. It marshals as a two-element
// JSON array [fileId, fileIndex], the on-disk snapshot format.
type Entry struct {
	ID    string
	Index FileIndex
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Index})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("index entry must have 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &e.ID); err != nil {
		return fmt.Errorf("invalid entry id: %w", err)
	}
	if err := json.Unmarshal(parts[1], &e.Index); err != nil {
		return fmt.Errorf("invalid entry record: %w", err)
	}
	return nil
}

// Store persists index snapshots. The indexer writes the whole ordered entry
// list exactly once per successful run; per-entry writes are deliberately not
// part of the contract.
type Store interface {
	Load() ([]Entry, error)
	Snapshot(entries []Entry) error
}

// Status is the lifecycle state of an indexing run.
type Status string

const (
	StatusScanning Status = "scanning"
	StatusIndexing Status = "indexing"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Progress is the externally visible state of the single active indexing run.
type Progress struct {
	CurrentFile string  `json:"current_file"`
	Processed   int     `json:"processed"`
	Total       int     `json:"total"`
	Percentage  float64 `json:"percentage"`
	Status      Status  `json:"status"`
	Error       string  `json:"error,omitempty"`
}

// Stats are read-only aggregates derived from the in-memory index.
type Stats struct {
	TotalFiles int            `json:"total_files"`
	TotalSize  int64          `json:"total_size"`
	FileTypes  map[string]int `json:"file_types"`
}

// EntitySummary is the histogram of recognized entities across the index.
type EntitySummary struct {
	Faces   map[string]int `json:"faces"`
	Animals map[string]int `json:"animals"`
}
