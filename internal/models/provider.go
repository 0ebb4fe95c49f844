package models

import (
	"context"
	"os"
	"sync"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/kozaktomas/photo-index/internal/config"
	"github.com/kozaktomas/photo-index/internal/constants"
)

// Provider owns every model used by the pipeline: text embedding, object
// detection, image classification, and face descriptor extraction. It is
// constructed once at process start and injected into the components that
// need it.
//
// All calls degrade instead of failing: a missing or broken backend means
// nil embeddings and empty detection lists, never an error surfaced to the
// extraction loop.
type Provider struct {
	cfg    *config.Config
	client *Client
	openai *OpenAIEmbedder // non-nil when an OpenAI token is configured
	gemini *GeminiLabeler  // non-nil when a Gemini key is configured

	initOnce sync.Once
	initErr  error
}

// NewProvider wires a provider from config. Model loading does not happen
// here; it is deferred to the first call that needs a model.
func NewProvider(cfg *config.Config) *Provider {
	p := &Provider{
		cfg:    cfg,
		client: NewClient(cfg.Models.ServerURL),
	}
	if cfg.OpenAI.Token != "" {
		p.openai = NewOpenAIEmbedder(cfg.OpenAI.Token, cfg.OpenAI.EmbeddingModel)
	}
	return p
}

// Initialize prepares the model backends. It is idempotent and safe to call
// concurrently: the first caller performs the potentially slow work (model
// weight downloads, remote client setup) while every other caller blocks on
// the same in-flight initialization and shares its outcome.
func (p *Provider) Initialize(ctx context.Context) error {
	p.initOnce.Do(func() {
		EnsureModelFiles(ctx, p.cfg.Models.Dir, p.cfg.Manifest)

		if p.cfg.Gemini.APIKey != "" {
			gemini, err := NewGeminiLabeler(ctx, p.cfg.Gemini.APIKey)
			if err != nil {
				// Classification falls back to the local model server only.
				logger.Warnf("gemini labeler unavailable: %v", err)
			} else {
				p.gemini = gemini
			}
		}

		if !p.client.Healthy(ctx) {
			logger.Warnf("model server at %s is not responding; detection will return empty results", p.cfg.Models.ServerURL)
		}
	})
	return p.initErr
}

// Shutdown releases provider resources. Present for lifecycle symmetry; the
// HTTP-backed clients hold nothing that outlives the process.
func (p *Provider) Shutdown() {}

// EmbedText returns the embedding for the given text, or nil when no
// embedding could be computed. It never returns an error: "no embedding"
// is a valid degraded answer for the callers.
func (p *Provider) EmbedText(ctx context.Context, text string) []float32 {
	if err := p.Initialize(ctx); err != nil {
		logger.Warnf("model init failed: %v", err)
		return nil
	}

	if p.openai != nil {
		vec, err := p.openai.EmbedText(ctx, text)
		if err == nil {
			return vec
		}
		logger.Warnf("openai embedding failed, trying model server: %v", err)
	}

	vec, err := p.client.EmbedText(ctx, text)
	if err != nil {
		logger.Debugf("text embedding unavailable: %v", err)
		return nil
	}
	return vec
}

// DetectObjects returns object detections for the image at path, downsized to
// a bounded resolution first. Any failure yields an empty list.
func (p *Provider) DetectObjects(ctx context.Context, imagePath string) []Detection {
	data := p.prepareImage(ctx, imagePath)
	if data == nil {
		return nil
	}

	detections, err := p.client.DetectObjects(ctx, data)
	if err != nil {
		logger.Debugf("object detection failed for %s: %v", imagePath, err)
		return nil
	}
	return detections
}

// ClassifyImage returns whole-image category labels. The local model server is
// preferred; Gemini serves as fallback when configured. Failures yield an
// empty list.
func (p *Provider) ClassifyImage(ctx context.Context, imagePath string) []Detection {
	data := p.prepareImage(ctx, imagePath)
	if data == nil {
		return nil
	}

	labels, err := p.client.ClassifyImage(ctx, data)
	if err == nil {
		return labels
	}
	logger.Debugf("classification failed for %s: %v", imagePath, err)

	if p.gemini != nil {
		labels, err := p.gemini.LabelImage(ctx, data)
		if err != nil {
			logger.Debugf("gemini labeling failed for %s: %v", imagePath, err)
			return nil
		}
		return labels
	}
	return nil
}

// DetectFaces returns face descriptors for the image at path. The image is
// downsized before detection to bound latency. Failures yield an empty list.
func (p *Provider) DetectFaces(ctx context.Context, imagePath string) []FaceDetection {
	data := p.prepareImage(ctx, imagePath)
	if data == nil {
		return nil
	}

	faces, err := p.client.DetectFaces(ctx, data)
	if err != nil {
		logger.Debugf("face detection failed for %s: %v", imagePath, err)
		return nil
	}
	return faces
}

// prepareImage loads and downsizes an image for a detection call, initializing
// the provider first. Returns nil when the image cannot be read or decoded.
func (p *Provider) prepareImage(ctx context.Context, imagePath string) []byte {
	if err := p.Initialize(ctx); err != nil {
		logger.Warnf("model init failed: %v", err)
		return nil
	}

	raw, err := os.ReadFile(imagePath)
	if err != nil {
		logger.Debugf("cannot read image %s: %v", imagePath, err)
		return nil
	}

	data, err := Downsize(raw, constants.MaxDetectionImageSize)
	if err != nil {
		logger.Debugf("cannot decode image %s: %v", imagePath, err)
		return nil
	}
	return data
}
