package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Models      ModelsConfig
	OpenAI      OpenAIConfig
	Gemini      GeminiConfig
	Index       IndexConfig
	Database    DatabaseConfig
	Permissions Permissions
	Manifest    ManifestConfig
}

type ModelsConfig struct {
	ServerURL string // model server base URL, defaults to http://localhost:8000
	Dir       string // directory holding model weights, defaults to ./models
}

type OpenAIConfig struct {
	Token          string
	EmbeddingModel string // defaults to text-embedding-3-small
}

type GeminiConfig struct {
	APIKey string
}

type IndexConfig struct {
	DataDir        string   // directory for persisted index/cluster/feedback files
	IgnorePatterns []string // doublestar patterns excluded from scanning
	HNSWIndexPath  string   // path to persist the similar-file HNSW index (optional)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional snapshot backend)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// Permissions gates what the extraction pipeline is allowed to touch.
// It is supplied by the surrounding application layer; the pipeline only reads it.
type Permissions struct {
	ReadFiles       bool
	ListDirectories bool
	IndexContent    bool
	AnalyzeImages   bool
	RecognizeFaces  bool
}

type ManifestConfig struct {
	Files []ManifestFile `yaml:"files"`
}

// ManifestFile is one downloadable model weight file.
type ManifestFile struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envList reads a comma-separated environment variable as a trimmed slice.
func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePermissions reads the PERMISSIONS env var ("readFiles,analyzeImages,...").
// An unset variable grants everything so the CLI works out of the box;
// an explicit value grants exactly what it names.
func parsePermissions() Permissions {
	raw, ok := os.LookupEnv("PERMISSIONS")
	if !ok {
		return Permissions{
			ReadFiles:       true,
			ListDirectories: true,
			IndexContent:    true,
			AnalyzeImages:   true,
			RecognizeFaces:  true,
		}
	}
	var p Permissions
	for _, name := range strings.Split(raw, ",") {
		switch strings.TrimSpace(name) {
		case "readFiles":
			p.ReadFiles = true
		case "listDirectories":
			p.ListDirectories = true
		case "indexContent":
			p.IndexContent = true
		case "analyzeImages":
			p.AnalyzeImages = true
		case "recognizeFaces":
			p.RecognizeFaces = true
		}
	}
	return p
}

func Load() *Config {
	var manifest ManifestConfig
	if err := yaml.Unmarshal(modelsYAML, &manifest); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	dataDir := envString("INDEX_DATA_DIR", "./cache")

	return &Config{
		Models: ModelsConfig{
			ServerURL: envString("MODEL_SERVER_URL", "http://localhost:8000"),
			Dir:       envString("MODEL_DIR", "./models"),
		},
		OpenAI: OpenAIConfig{
			Token:          os.Getenv("OPENAI_TOKEN"),
			EmbeddingModel: envString("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Index: IndexConfig{
			DataDir:        dataDir,
			IgnorePatterns: envList("INDEX_IGNORE"),
			HNSWIndexPath:  os.Getenv("HNSW_INDEX_PATH"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Permissions: parsePermissions(),
		Manifest:    manifest,
	}
}

// IndexFilePath returns the location of the persisted index snapshot.
func (c *Config) IndexFilePath() string {
	return filepath.Join(c.Index.DataDir, "index.json")
}

// ClustersFilePath returns the location of the persisted face clusters.
func (c *Config) ClustersFilePath() string {
	return filepath.Join(c.Index.DataDir, "clusters.json")
}

// FeedbackFilePath returns the location of the persisted search feedback.
func (c *Config) FeedbackFilePath() string {
	return filepath.Join(c.Index.DataDir, "feedback.json")
}
