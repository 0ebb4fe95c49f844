package models

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func TestDownsize_LargeImage(t *testing.T) {
	img := createTestImage(1600, 800, color.White)
	data := encodeJPEG(img)

	resized, err := Downsize(data, 640)
	if err != nil {
		t.Fatalf("Downsize failed: %v", err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode resized image: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != 640 {
		t.Errorf("expected width 640, got %d", bounds.Dx())
	}
	if bounds.Dy() != 320 {
		t.Errorf("expected height 320 (aspect preserved), got %d", bounds.Dy())
	}
}

func TestDownsize_PortraitImage(t *testing.T) {
	img := createTestImage(500, 1000, color.Black)
	data := encodeJPEG(img)

	resized, err := Downsize(data, 640)
	if err != nil {
		t.Fatalf("Downsize failed: %v", err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode resized image: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dy() != 640 {
		t.Errorf("expected height 640, got %d", bounds.Dy())
	}
	if bounds.Dx() != 320 {
		t.Errorf("expected width 320 (aspect preserved), got %d", bounds.Dx())
	}
}

func TestDownsize_NoUpscale(t *testing.T) {
	img := createTestImage(100, 80, color.White)
	data := encodeJPEG(img)

	resized, err := Downsize(data, 640)
	if err != nil {
		t.Fatalf("Downsize failed: %v", err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode resized image: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 80 {
		t.Errorf("small image should keep its size, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestDownsize_InvalidData(t *testing.T) {
	_, err := Downsize([]byte("not an image"), 640)
	if err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0, 0}, "image/gif"},
		{"webp", []byte{0x52, 0x49, 0x46, 0x46, 0, 0, 0, 0, 0x57, 0x45, 0x42, 0x50}, "image/webp"},
		{"too short", []byte{0x01}, "application/octet-stream"},
		{"unknown", []byte{0, 1, 2, 3, 4, 5, 6, 7}, "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.expected {
				t.Errorf("detectMIMEType = %s; want %s", got, tc.expected)
			}
		})
	}
}

// Helper functions

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}
