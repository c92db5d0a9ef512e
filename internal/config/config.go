// Package config loads ragchat's settings from an optional YAML file, the
// environment and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Yates-Labs/ragchat/internal/chat"
	"github.com/Yates-Labs/ragchat/internal/loader"
	"github.com/Yates-Labs/ragchat/internal/rag"
	"github.com/Yates-Labs/ragchat/internal/session"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "config.yaml"

// APIKeyEnv holds the Gemini API key.
const APIKeyEnv = "GOOGLE_API_KEY"

// Vector store backends.
const (
	BackendSQLite = "sqlite"
	BackendMilvus = "milvus"
)

// ModelConfig configures the Gemini endpoint and models.
//
// Temperature and QueryPrefix are pointers so that an explicit zero value in
// the file is kept.
type ModelConfig struct {
	BaseURL        string   `yaml:"base_url"`
	EmbeddingModel string   `yaml:"embedding_model"`
	ChatModel      string   `yaml:"chat_model"`
	Temperature    *float32 `yaml:"temperature,omitempty"`
	MaxTokens      int      `yaml:"max_tokens"`
	Dimension      int      `yaml:"dimension"`
	BatchSize      int      `yaml:"batch_size"`
	Concurrency    int      `yaml:"concurrency"`
	QueryPrefix    *string  `yaml:"query_prefix,omitempty"`
}

// Prefix returns the query prefix, or "" when none is set.
func (m ModelConfig) Prefix() string {
	if m.QueryPrefix == nil {
		return ""
	}
	return *m.QueryPrefix
}

// SplitterConfig configures chunking.
type SplitterConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap,omitempty"`
}

// Overlap returns the chunk overlap. It defaults to rag.DefaultChunkOverlap;
// an explicit 0 disables overlap.
func (s SplitterConfig) Overlap() int {
	if s.ChunkOverlap == nil {
		return rag.DefaultChunkOverlap
	}
	return *s.ChunkOverlap
}

// OCRConfig configures the PDF OCR fallback.
type OCRConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	MinChars int    `yaml:"min_chars"`
	Language string `yaml:"lang"`
	DPI      int    `yaml:"dpi"`
}

// On reports whether OCR is enabled. It defaults to true.
func (o OCRConfig) On() bool {
	return o.Enabled == nil || *o.Enabled
}

// MilvusConfig contains connection details for the Milvus backend.
type MilvusConfig struct {
	Address        string `yaml:"address"`
	Collection     string `yaml:"collection"`
	M              int    `yaml:"m"`
	EfConstruction int    `yaml:"ef_construction"`
	Ef             int    `yaml:"ef"`
}

// VectorStoreConfig selects the vector index implementation.
type VectorStoreConfig struct {
	Backend string       `yaml:"backend"`
	Milvus  MilvusConfig `yaml:"milvus"`
}

// Config is the root application configuration.
type Config struct {
	DataDir      string            `yaml:"data_dir"`
	PersistDir   string            `yaml:"persist_dir"`
	SystemPrompt string            `yaml:"system_prompt"`
	SessionID    string            `yaml:"session_id"`
	TopK         int               `yaml:"top_k"`
	Model        ModelConfig       `yaml:"model"`
	Splitter     SplitterConfig    `yaml:"splitter"`
	OCR          OCRConfig         `yaml:"ocr"`
	VectorStore  VectorStoreConfig `yaml:"vector_store"`

	// APIKey is never read from the file.
	APIKey string `yaml:"-"`
}

// Load reads a config from path. A missing file yields defaults. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Field: path, Err: fmt.Errorf("invalid YAML: %w", err)}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, &ConfigError{Field: path, Err: err}
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data/"
	}
	if cfg.PersistDir == "" {
		cfg.PersistDir = "db"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = chat.DefaultSystemPromptPath
	}
	if cfg.SessionID == "" {
		cfg.SessionID = session.DefaultID
	}
	if cfg.TopK <= 0 {
		cfg.TopK = rag.DefaultTopK
	}

	embedder := rag.DefaultEmbedderConfig()
	llm := chat.DefaultLLMConfig()
	m := &cfg.Model
	if m.BaseURL == "" {
		m.BaseURL = rag.GeminiBaseURL
	}
	if m.EmbeddingModel == "" {
		m.EmbeddingModel = embedder.Model
	}
	if m.ChatModel == "" {
		m.ChatModel = llm.Model
	}
	if m.Temperature == nil {
		m.Temperature = llm.Temperature
	}
	if m.Dimension <= 0 {
		m.Dimension = embedder.Dimension
	}
	if m.BatchSize <= 0 {
		m.BatchSize = embedder.BatchSize
	}
	if m.Concurrency <= 0 {
		m.Concurrency = embedder.Concurrency
	}
	if m.QueryPrefix == nil {
		prefix := embedder.QueryPrefix
		m.QueryPrefix = &prefix
	}

	if cfg.Splitter.ChunkSize <= 0 {
		cfg.Splitter.ChunkSize = rag.DefaultChunkSize
	}
	if cfg.Splitter.ChunkOverlap == nil {
		overlap := rag.DefaultChunkOverlap
		cfg.Splitter.ChunkOverlap = &overlap
	}

	if cfg.OCR.MinChars <= 0 {
		cfg.OCR.MinChars = loader.DefaultOCRMinChars
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = loader.DefaultOCRLanguage
	}
	if cfg.OCR.DPI <= 0 {
		cfg.OCR.DPI = loader.DefaultOCRDPI
	}

	milvus := rag.DefaultMilvusConfig()
	vs := &cfg.VectorStore
	if vs.Backend == "" {
		vs.Backend = BackendSQLite
	}
	if vs.Milvus.Address == "" {
		vs.Milvus.Address = milvus.Address
	}
	if vs.Milvus.Collection == "" {
		vs.Milvus.Collection = milvus.CollectionName
	}
	if vs.Milvus.M <= 0 {
		vs.Milvus.M = milvus.M
	}
	if vs.Milvus.EfConstruction <= 0 {
		vs.Milvus.EfConstruction = milvus.EfConstruction
	}
	if vs.Milvus.Ef <= 0 {
		vs.Milvus.Ef = milvus.Ef
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RAGCHAT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RAGCHAT_PERSIST_DIR"); v != "" {
		cfg.PersistDir = v
	}
	if v := os.Getenv("RAGCHAT_VECTOR_BACKEND"); v != "" {
		cfg.VectorStore.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("MILVUS_ADDRESS"); v != "" {
		cfg.VectorStore.Milvus.Address = v
	}
	if v := os.Getenv("MILVUS_COLLECTION"); v != "" {
		cfg.VectorStore.Milvus.Collection = v
	}
	if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	cfg.APIKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
}

// Validate checks everything that must hold before any client is built.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigError{Field: APIKeyEnv, Err: ErrMissingAPIKey}
	}
	switch c.VectorStore.Backend {
	case BackendSQLite, BackendMilvus:
	default:
		return &ConfigError{
			Field: "vector_store.backend",
			Err:   fmt.Errorf("unknown backend %q", c.VectorStore.Backend),
		}
	}
	if overlap := c.Splitter.Overlap(); overlap < 0 || overlap >= c.Splitter.ChunkSize {
		return &ConfigError{
			Field: "splitter.chunk_overlap",
			Err:   fmt.Errorf("overlap %d must be in [0, %d)", overlap, c.Splitter.ChunkSize),
		}
	}
	return nil
}
