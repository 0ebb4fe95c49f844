package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const defaultServerURL = "http://localhost:8000"

// Client talks to the local model server that hosts the embedding,
// detection, classification, and face models.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the local model server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultServerURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// embeddingResponse represents the response from the text embedding endpoint
type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// detectionResponse represents the response from the object detection
// and classification endpoints
type detectionResponse struct {
	Objects []struct {
		Label      string    `json:"label"`
		Confidence float64   `json:"confidence"`
		BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2], absent for classification
	} `json:"objects"`
	Model string `json:"model"`
}

// faceResponse represents the response from the face detection endpoint
type faceResponse struct {
	FacesCount int `json:"faces_count"`
	Faces      []struct {
		FaceIndex int         `json:"face_index"`
		Dim       int         `json:"dim"`
		Embedding []float32   `json:"embedding"`
		BBox      []float64   `json:"bbox"` // [x1, y1, x2, y2]
		DetScore  float64     `json:"det_score"`
		Landmarks [][]float64 `json:"landmarks"`
	} `json:"faces"`
	Model string `json:"model"`
}

// postMultipartImage constructs a multipart form with the image data and posts
// it to the given endpoint. The part carries a Content-Type header based on
// magic byte detection so the server can decode without sniffing.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

// postJSON posts a JSON payload to the given endpoint.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// EmbedText computes a text embedding via the model server.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	body, err := c.postJSON(ctx, "/embed/text", map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}

	return embResp.Embedding, nil
}

// DetectObjects runs object detection on an image.
func (c *Client) DetectObjects(ctx context.Context, imageData []byte) ([]Detection, error) {
	return c.detect(ctx, "/detect/objects", imageData)
}

// ClassifyImage runs whole-image category classification.
func (c *Client) ClassifyImage(ctx context.Context, imageData []byte) ([]Detection, error) {
	return c.detect(ctx, "/classify", imageData)
}

func (c *Client) detect(ctx context.Context, endpoint string, imageData []byte) ([]Detection, error) {
	body, err := c.postMultipartImage(ctx, endpoint, imageData)
	if err != nil {
		return nil, err
	}

	var detResp detectionResponse
	if err := json.Unmarshal(body, &detResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	detections := make([]Detection, 0, len(detResp.Objects))
	for _, obj := range detResp.Objects {
		det := Detection{
			Label:      obj.Label,
			Confidence: obj.Confidence,
		}
		if len(obj.BBox) == 4 {
			det.Box = &Box{X1: obj.BBox[0], Y1: obj.BBox[1], X2: obj.BBox[2], Y2: obj.BBox[3]}
		}
		detections = append(detections, det)
	}
	return detections, nil
}

// DetectFaces runs face detection and descriptor extraction on an image.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) ([]FaceDetection, error) {
	body, err := c.postMultipartImage(ctx, "/detect/faces", imageData)
	if err != nil {
		return nil, err
	}

	var fResp faceResponse
	if err := json.Unmarshal(body, &fResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	faces := make([]FaceDetection, 0, len(fResp.Faces))
	for _, f := range fResp.Faces {
		face := FaceDetection{
			Descriptor: f.Embedding,
			Score:      f.DetScore,
		}
		if len(f.BBox) == 4 {
			face.Box = Box{X1: f.BBox[0], Y1: f.BBox[1], X2: f.BBox[2], Y2: f.BBox[3]}
		}
		for _, lm := range f.Landmarks {
			if len(lm) == 2 {
				face.Landmarks = append(face.Landmarks, Point{X: lm[0], Y: lm[1]})
			}
		}
		faces = append(faces, face)
	}
	return faces, nil
}

// Healthy reports whether the model server answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
