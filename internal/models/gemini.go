package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// GeminiLabeler produces image category labels using the Gemini API. It serves
// as the classification backend when no local model server is reachable.
type GeminiLabeler struct {
	client *genai.Client
}

// NewGeminiLabeler creates a labeler backed by the Gemini API.
func NewGeminiLabeler(ctx context.Context, apiKey string) (*GeminiLabeler, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiLabeler{client: client}, nil
}

const labelPrompt = `List the objects and scene categories visible in this photo.
Respond with JSON only, in the form:
{"labels": [{"label": "dog", "confidence": 0.95}, ...]}
Use lowercase singular nouns. Confidence is between 0 and 1.`

type geminiLabelResponse struct {
	Labels []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"labels"`
}

// LabelImage asks Gemini for category labels on the (already downsized) image.
func (g *GeminiLabeler) LabelImage(ctx context.Context, imageData []byte) ([]Detection, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: labelPrompt},
				{InlineData: &genai.Blob{Data: imageData, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	content := result.Text()
	if content == "" {
		return nil, errors.New("no response from Gemini")
	}

	var parsed geminiLabelResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse label JSON: %w", err)
	}

	detections := make([]Detection, 0, len(parsed.Labels))
	for _, l := range parsed.Labels {
		detections = append(detections, Detection{Label: l.Label, Confidence: l.Confidence})
	}
	return detections, nil
}
