package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kozaktomas/photo-index/internal/config"
	"github.com/kozaktomas/photo-index/internal/constants"
	"github.com/kozaktomas/photo-index/internal/models"
)

// textExtensions are file types whose content is read, truncated and embedded.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".rst": true, ".log": true,
	".py": true, ".js": true, ".ts": true, ".go": true, ".rb": true,
	".java": true, ".c": true, ".cpp": true, ".h": true, ".sh": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".xml": true, ".html": true, ".css": true, ".csv": true,
}

// imageExtensions are file types sent through the vision models.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tiff": true, ".heic": true,
}

// faceLabels are detection labels treated as face presence markers.
var faceLabels = map[string]bool{
	"person": true,
	"face":   true,
}

// Extraction is the full result of analyzing one file: the index record plus
// the raw face descriptors that feed identity clustering.
type Extraction struct {
	Index *FileIndex
	Faces []models.FaceDetection
}

// Extractor turns a file on disk into an index record using the model
// provider. Model failures degrade to partial records; only filesystem
// errors are reported.
type Extractor struct {
	provider *models.Provider
	perms    config.Permissions
}

func NewExtractor(provider *models.Provider, perms config.Permissions) *Extractor {
	return &Extractor{
		provider: provider,
		perms:    perms,
	}
}

// Extract builds an index record for path. The returned record always carries
// identity and metadata; content features depend on file type, permissions and
// model availability.
func (e *Extractor) Extract(ctx context.Context, path string) (*Extraction, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not stat %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%q is a directory", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	record := &FileIndex{
		FileID:      FileID(path),
		Path:        path,
		Name:        info.Name(),
		Type:        strings.TrimPrefix(ext, "."),
		Size:        info.Size(),
		Objects:     []ObjectLabel{},
		Faces:       []FaceMarker{},
		Metadata:    fileMetadata(info),
		LastIndexed: time.Now().UTC(),
	}

	extraction := &Extraction{Index: record}
	if !isIndexable(record.Name) {
		return extraction, nil
	}

	if textExtensions[ext] {
		if err := e.extractText(ctx, path, record); err != nil {
			return nil, err
		}
	} else {
		e.extractImage(ctx, path, extraction)
	}

	return extraction, nil
}

// isIndexable reports whether the extractor knows how to analyze files with
// the given name. Files of other types still get identity records.
func isIndexable(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return textExtensions[ext] || imageExtensions[ext]
}

func (e *Extractor) extractText(ctx context.Context, path string, record *FileIndex) error {
	if !e.perms.ReadFiles || !e.perms.IndexContent {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %q: %w", path, err)
	}

	content := strings.TrimSpace(string(data))
	if !utf8.ValidString(content) {
		return nil
	}
	runes := []rune(content)
	if len(runes) < constants.MinTextContentLength {
		return nil
	}
	// The cap counts characters, so multi-byte runes never get split.
	if len(runes) > constants.MaxTextContentLength {
		content = string(runes[:constants.MaxTextContentLength])
	}

	record.TextContent = content
	record.TextEmbedding = e.provider.EmbedText(ctx, content)
	return nil
}

func (e *Extractor) extractImage(ctx context.Context, path string, extraction *Extraction) {
	if !e.perms.ReadFiles {
		return
	}
	record := extraction.Index

	if e.perms.AnalyzeImages {
		detections := append(
			e.provider.DetectObjects(ctx, path),
			e.provider.ClassifyImage(ctx, path)...,
		)
		record.Objects = mergeDetections(detections)

		for _, obj := range record.Objects {
			if faceLabels[obj.Label] {
				record.Faces = append(record.Faces, FaceMarker{
					ID:         uuid.New().String(),
					Label:      constants.UnknownClusterLabel,
					Confidence: obj.Confidence,
				})
			}
		}
	}

	if e.perms.RecognizeFaces {
		extraction.Faces = e.provider.DetectFaces(ctx, path)
	}

	if e.perms.IndexContent {
		if text := describeImage(record); text != "" {
			record.TextEmbedding = e.provider.EmbedText(ctx, text)
		}
	}
}

// mergeDetections drops low-confidence detections and collapses duplicate
// labels, keeping the highest confidence for each.
func mergeDetections(detections []models.Detection) []ObjectLabel {
	best := map[string]float64{}
	for _, d := range detections {
		if d.Confidence < constants.MinObjectConfidence {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(d.Label))
		if label == "" {
			continue
		}
		if d.Confidence > best[label] {
			best[label] = d.Confidence
		}
	}

	merged := make([]ObjectLabel, 0, len(best))
	for label, confidence := range best {
		merged = append(merged, ObjectLabel{Label: label, Confidence: confidence})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return merged[i].Label < merged[j].Label
	})
	return merged
}

// describeImage builds the searchable text for an image from its name and
// recognized labels, so photos match text queries without OCR.
func describeImage(record *FileIndex) string {
	parts := []string{strings.TrimSuffix(record.Name, filepath.Ext(record.Name))}
	for _, obj := range record.Objects {
		parts = append(parts, obj.Label)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func fileMetadata(info os.FileInfo) FileMetadata {
	modified := info.ModTime().UTC()
	return FileMetadata{
		// Creation time is not portable; modification time is the best
		// stable lower bound available everywhere.
		Created:  modified,
		Modified: modified,
	}
}
