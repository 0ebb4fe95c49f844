package models

// Box is a bounding box in raw pixel coordinates.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Point is a single landmark coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is one object-detection or classification result.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        *Box    `json:"box,omitempty"` // nil for whole-image classification labels
}

// FaceDetection represents a single detected face with its identity descriptor.
type FaceDetection struct {
	Descriptor []float32 `json:"descriptor"`
	Box        Box       `json:"box"`
	Score      float64   `json:"score"`
	Landmarks  []Point   `json:"landmarks,omitempty"`
}
