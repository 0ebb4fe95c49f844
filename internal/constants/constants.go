// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Extraction constants
const (
	// MaxTextContentLength is the maximum number of characters of file content
	// kept on an index entry and sent for text embedding
	MaxTextContentLength = 10000

	// MinTextContentLength is the minimum trimmed content length worth embedding
	MinTextContentLength = 10

	// MinObjectConfidence is the minimum confidence for an object detection
	// to be merged into an index entry
	MinObjectConfidence = 0.3

	// MaxDetectionImageSize is the maximum dimension (width or height) an image
	// is downsized to before detection calls
	MaxDetectionImageSize = 640
)

// Face clustering constants
const (
	// DefaultClusterThreshold is the minimum similarity (1 - euclidean distance)
	// for a face descriptor to join an existing identity cluster
	DefaultClusterThreshold = 0.6

	// UnknownClusterLabel is the label assigned to clusters until a user names them
	UnknownClusterLabel = "unknown"
)

// Search constants
const (
	// DefaultSearchLimit is the default page size for semantic search
	DefaultSearchLimit = 20

	// MaxSearchLimit caps the page size a caller may request
	MaxSearchLimit = 100

	// DefaultSearchConfidence is the acceptance threshold used when the caller
	// does not supply one
	DefaultSearchConfidence = 0.5

	// MinSearchConfidence is the floor below which results are never returned
	// and below which the threshold is never relaxed
	MinSearchConfidence = 0.1

	// ConfidenceRelaxStep is how much the acceptance threshold drops per
	// "load more" page
	ConfidenceRelaxStep = 0.1

	// DefaultSimilarLimit is the default limit for similar-file search results
	DefaultSimilarLimit = 20
)

// HNSW index constants
const (
	// HNSWMaxNeighbors is the M parameter for the HNSW graph
	HNSWMaxNeighbors = 16
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for progress event channels
	EventChannelBuffer = 100
)
