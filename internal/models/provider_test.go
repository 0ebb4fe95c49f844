package models

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/kozaktomas/photo-index/internal/config"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Config{Levels: []logger.Level{logger.ErrorLevel}})
	os.Exit(m.Run())
}

func TestProvider_InitializeOnce(t *testing.T) {
	var downloads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		downloads.Add(1)
		w.Write([]byte("weights"))
	}))
	defer server.Close()

	cfg := &config.Config{
		Models: config.ModelsConfig{
			ServerURL: server.URL,
			Dir:       t.TempDir(),
		},
		Manifest: config.ManifestConfig{
			Files: []config.ManifestFile{
				{Name: "model-a.onnx", URL: server.URL + "/model-a"},
				{Name: "model-b.onnx", URL: server.URL + "/model-b"},
			},
		},
	}
	provider := NewProvider(cfg)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := provider.Initialize(context.Background()); err != nil {
				t.Errorf("Initialize failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := downloads.Load(); got != 2 {
		t.Errorf("expected each manifest file downloaded exactly once (2 total), got %d downloads", got)
	}

	for _, name := range []string{"model-a.onnx", "model-b.onnx"} {
		if _, err := os.Stat(filepath.Join(cfg.Models.Dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestProvider_EmbedText_DegradesToNil(t *testing.T) {
	cfg := &config.Config{
		Models: config.ModelsConfig{
			ServerURL: "http://127.0.0.1:1", // nothing listens here
			Dir:       t.TempDir(),
		},
	}
	provider := NewProvider(cfg)

	if vec := provider.EmbedText(context.Background(), "sunset over the sea"); vec != nil {
		t.Errorf("expected nil embedding when no backend is reachable, got %v", vec)
	}
}

func TestProvider_DetectFaces_UnreadableImage(t *testing.T) {
	cfg := &config.Config{
		Models: config.ModelsConfig{
			ServerURL: "http://127.0.0.1:1",
			Dir:       t.TempDir(),
		},
	}
	provider := NewProvider(cfg)

	faces := provider.DetectFaces(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	if len(faces) != 0 {
		t.Errorf("expected no faces for unreadable image, got %d", len(faces))
	}
}

func TestEnsureModelFiles_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/good" {
			w.Write([]byte("weights"))
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	dir := t.TempDir()
	manifest := config.ManifestConfig{
		Files: []config.ManifestFile{
			{Name: "good.onnx", URL: server.URL + "/good"},
			{Name: "bad.onnx", URL: server.URL + "/bad"},
		},
	}

	// Must not panic or abort on the failing file.
	EnsureModelFiles(context.Background(), dir, manifest)

	if _, err := os.Stat(filepath.Join(dir, "good.onnx")); err != nil {
		t.Errorf("good.onnx should have been downloaded: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.onnx")); err == nil {
		t.Error("bad.onnx should not exist after failed download")
	}
}
