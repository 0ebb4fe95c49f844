package index

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kozaktomas/photo-index/internal/config"
	"github.com/kozaktomas/photo-index/internal/models"
	"github.com/mordilloSan/go-logger/logger"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Config{Levels: []logger.Level{logger.ErrorLevel}})
	os.Exit(m.Run())
}

func allPermissions() config.Permissions {
	return config.Permissions{
		ReadFiles:       true,
		ListDirectories: true,
		IndexContent:    true,
		AnalyzeImages:   true,
		RecognizeFaces:  true,
	}
}

// fakeModelServer serves the local model endpoints with canned answers.
func fakeModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/embed/text", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"dim":       4,
			"embedding": []float32{0.1, 0.2, 0.3, 0.4},
			"model":     "clip-vit-b-32-text",
		})
	})
	mux.HandleFunc("/detect/objects", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"objects": []map[string]any{
				{"label": "person", "confidence": 0.92, "bbox": []float64{10, 10, 100, 200}},
				{"label": "dog", "confidence": 0.55, "bbox": []float64{120, 40, 200, 180}},
				{"label": "chair", "confidence": 0.12, "bbox": []float64{0, 0, 30, 30}},
			},
			"model": "yolov8n",
		})
	})
	mux.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"objects": []map[string]any{
				{"label": "dog", "confidence": 0.80},
				{"label": "outdoor", "confidence": 0.64},
			},
			"model": "clip-vit-b-32",
		})
	})
	mux.HandleFunc("/detect/faces", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"faces_count": 1,
			"faces": []map[string]any{
				{
					"face_index": 0,
					"dim":        4,
					"embedding":  []float32{0.5, 0.5, 0.5, 0.5},
					"bbox":       []float64{12, 14, 80, 110},
					"det_score":  0.97,
				},
			},
			"model": "face-descriptor-512",
		})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testProvider(t *testing.T, serverURL string) *models.Provider {
	t.Helper()
	cfg := &config.Config{}
	cfg.Models.ServerURL = serverURL
	cfg.Models.Dir = t.TempDir()
	return models.NewProvider(cfg)
}

func writeTestJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("could not encode test image: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("could not write test image: %v", err)
	}
}

func TestExtract_TextFile(t *testing.T) {
	server := fakeModelServer(t)
	extractor := NewExtractor(testProvider(t, server.URL), allPermissions())

	path := filepath.Join(t.TempDir(), "notes.txt")
	content := "grocery list: apples, oat milk, coffee beans"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("could not write test file: %v", err)
	}

	extraction, err := extractor.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	record := extraction.Index
	if record.FileID != FileID(path) {
		t.Errorf("expected id %q, got %q", FileID(path), record.FileID)
	}
	if record.Type != "txt" {
		t.Errorf("expected type txt, got %q", record.Type)
	}
	if record.TextContent != content {
		t.Errorf("expected content preserved, got %q", record.TextContent)
	}
	if len(record.TextEmbedding) != 4 {
		t.Errorf("expected an embedding from the model server, got %v", record.TextEmbedding)
	}
	if record.LastIndexed.IsZero() {
		t.Errorf("expected last_indexed to be set")
	}
}

func TestExtract_TextFileTooShort(t *testing.T) {
	server := fakeModelServer(t)
	extractor := NewExtractor(testProvider(t, server.URL), allPermissions())

	path := filepath.Join(t.TempDir(), "tiny.txt")
	if err := os.WriteFile(path, []byte("  hi  "), 0o644); err != nil {
		t.Fatalf("could not write test file: %v", err)
	}

	extraction, err := extractor.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if extraction.Index.TextContent != "" {
		t.Errorf("expected no content for a file below the minimum length")
	}
	if extraction.Index.TextEmbedding != nil {
		t.Errorf("expected no embedding for a file below the minimum length")
	}
}

func TestExtract_TextFileTruncated(t *testing.T) {
	server := fakeModelServer(t)
	extractor := NewExtractor(testProvider(t, server.URL), allPermissions())

	path := filepath.Join(t.TempDir(), "big.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("a", 15000)), 0o644); err != nil {
		t.Fatalf("could not write test file: %v", err)
	}

	extraction, err := extractor.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(extraction.Index.TextContent) != 10000 {
		t.Errorf("expected content truncated to 10000 characters, got %d", len(extraction.Index.TextContent))
	}
}

func TestExtract_TextFileTruncatedOnRuneBoundary(t *testing.T) {
	server := fakeModelServer(t)
	extractor := NewExtractor(testProvider(t, server.URL), allPermissions())

	// Two-byte runes: a byte-based cap would cut one in half.
	path := filepath.Join(t.TempDir(), "cesky.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("č", 12000)), 0o644); err != nil {
		t.Fatalf("could not write test file: %v", err)
	}

	extraction, err := extractor.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	content := extraction.Index.TextContent
	if !utf8.ValidString(content) {
		t.Fatalf("truncation split a rune")
	}
	if got := utf8.RuneCountInString(content); got != 10000 {
		t.Errorf("expected 10000 characters after truncation, got %d", got)
	}
}

func TestExtract_UnreadableFileFails(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	server := fakeModelServer(t)
	extractor := NewExtractor(testProvider(t, server.URL), allPermissions())

	path := filepath.Join(t.TempDir(), "locked.txt")
	if err := os.WriteFile(path, []byte("content long enough to index"), 0o644); err != nil {
		t.Fatalf("could not write test file: %v", err)
	}
	if err := os.Chmod(path, 0o000); err != nil {
		t.Fatalf("could not chmod test file: %v", err)
	}

	if _, err := extractor.Extract(context.Background(), path); err == nil {
		t.Errorf("expected an error for an unreadable file, so the indexer skips it")
	}
}

func TestExtract_Image(t *testing.T) {
	server := fakeModelServer(t)
	extractor := NewExtractor(testProvider(t, server.URL), allPermissions())

	path := filepath.Join(t.TempDir(), "holiday.jpg")
	writeTestJPEG(t, path)

	extraction, err := extractor.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	record := extraction.Index

	// person 0.92, dog max(0.55, 0.80), outdoor 0.64; chair 0.12 filtered out
	labels := map[string]float64{}
	for _, obj := range record.Objects {
		labels[obj.Label] = obj.Confidence
	}
	if len(labels) != 3 {
		t.Fatalf("expected 3 merged labels, got %v", record.Objects)
	}
	if labels["dog"] != 0.80 {
		t.Errorf("expected duplicate labels merged to the highest confidence, got %f", labels["dog"])
	}
	if _, ok := labels["chair"]; ok {
		t.Errorf("expected low-confidence detections to be filtered out")
	}

	if len(record.Faces) != 1 {
		t.Fatalf("expected one face marker for the person detection, got %v", record.Faces)
	}
	if record.Faces[0].ID == "" {
		t.Errorf("expected the face marker to get an id")
	}
	if record.Faces[0].Label != "unknown" {
		t.Errorf("expected new face markers to start unlabeled, got %q", record.Faces[0].Label)
	}

	if len(extraction.Faces) != 1 {
		t.Fatalf("expected one face descriptor, got %d", len(extraction.Faces))
	}
	if extraction.Faces[0].Score != 0.97 {
		t.Errorf("expected detection score preserved, got %f", extraction.Faces[0].Score)
	}

	if len(record.TextEmbedding) != 4 {
		t.Errorf("expected an embedding built from the image labels, got %v", record.TextEmbedding)
	}
}

func TestExtract_PermissionsDisableAnalysis(t *testing.T) {
	server := fakeModelServer(t)
	perms := config.Permissions{ReadFiles: true} // analysis and content indexing off
	extractor := NewExtractor(testProvider(t, server.URL), perms)

	path := filepath.Join(t.TempDir(), "holiday.jpg")
	writeTestJPEG(t, path)

	extraction, err := extractor.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(extraction.Index.Objects) != 0 {
		t.Errorf("expected no objects without the analyze permission")
	}
	if len(extraction.Faces) != 0 {
		t.Errorf("expected no face descriptors without the recognize permission")
	}
	if extraction.Index.TextEmbedding != nil {
		t.Errorf("expected no embedding without the index permission")
	}
	if extraction.Index.FileID == "" {
		t.Errorf("expected the identity record regardless of permissions")
	}
}

func TestExtract_UnknownTypeGetsIdentityRecord(t *testing.T) {
	server := fakeModelServer(t)
	extractor := NewExtractor(testProvider(t, server.URL), allPermissions())

	path := filepath.Join(t.TempDir(), "archive.zip")
	if err := os.WriteFile(path, []byte("PK\x03\x04 not really"), 0o644); err != nil {
		t.Fatalf("could not write test file: %v", err)
	}

	extraction, err := extractor.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if extraction.Index.Type != "zip" {
		t.Errorf("expected type zip, got %q", extraction.Index.Type)
	}
	if extraction.Index.TextContent != "" || extraction.Index.TextEmbedding != nil {
		t.Errorf("expected no content features for an unknown type")
	}
}

func TestExtract_MissingFile(t *testing.T) {
	server := fakeModelServer(t)
	extractor := NewExtractor(testProvider(t, server.URL), allPermissions())

	if _, err := extractor.Extract(context.Background(), filepath.Join(t.TempDir(), "gone.txt")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestExtract_ModelServerDownDegrades(t *testing.T) {
	extractor := NewExtractor(testProvider(t, "http://127.0.0.1:1"), allPermissions())

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("a perfectly reasonable amount of text"), 0o644); err != nil {
		t.Fatalf("could not write test file: %v", err)
	}

	extraction, err := extractor.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract must not fail when models are unavailable: %v", err)
	}
	if extraction.Index.TextContent == "" {
		t.Errorf("expected content to be kept even without an embedding")
	}
	if extraction.Index.TextEmbedding != nil {
		t.Errorf("expected a nil embedding when the model server is down")
	}
}

func TestIsIndexableExtensions(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"doc.txt", true},
		{"photo.JPG", true},
		{"script.py", true},
		{"archive.zip", false},
		{"noext", false},
	}
	for _, tc := range tests {
		if got := isIndexable(tc.name); got != tc.want {
			t.Errorf("isIndexable(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
