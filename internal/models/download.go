package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/kozaktomas/photo-index/internal/config"
)

// downloadTimeout bounds a single model file download.
const downloadTimeout = 10 * time.Minute

// EnsureModelFiles downloads any manifest files missing from dir. Individual
// download failures are logged and skipped so that the remaining models still
// work; detection backed by a missing model degrades to empty results instead
// of failing initialization.
func EnsureModelFiles(ctx context.Context, dir string, manifest config.ManifestConfig) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warnf("cannot create model dir %s: %v", dir, err)
		return
	}

	client := &http.Client{Timeout: downloadTimeout}
	for _, file := range manifest.Files {
		target := filepath.Join(dir, file.Name)
		if _, err := os.Stat(target); err == nil {
			continue
		}

		logger.Infof("downloading model %s", file.Name)
		if err := downloadFile(ctx, client, file.URL, target); err != nil {
			logger.Warnf("model download failed for %s: %v", file.Name, err)
		}
	}
}

// downloadFile fetches url into target via a temp file and rename so that a
// partial download never looks like a valid model file.
func downloadFile(ctx context.Context, client *http.Client, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
