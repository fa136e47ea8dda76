// Package config loads the application configuration from YAML,
// falling back to defaults when the file is absent.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iamnandhu/studysage/internal/chunker"
	"github.com/iamnandhu/studysage/internal/embedding"
	"github.com/iamnandhu/studysage/internal/retriever"
)

// MongoConfig contains connection details for the MongoDB Atlas store.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// QdrantConfig contains connection details for the Qdrant store.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig selects and configures the chunk store backend.
type StoreConfig struct {
	Type   string        `yaml:"type"` // "mongo", "qdrant", or "memory"
	Mongo  *MongoConfig  `yaml:"mongo,omitempty"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// EmbeddingConfig configures the embedding capability.
type EmbeddingConfig struct {
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Concurrency int    `yaml:"concurrency"` // in-flight embeds per ingestion
}

// ChunkingConfig configures the word-window chunker.
type ChunkingConfig struct {
	WindowSize int `yaml:"window_size"`
	Overlap    int `yaml:"overlap"`
}

// RetrievalConfig configures the query path.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// AnswerConfig configures answer and study-material generation.
type AnswerConfig struct {
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Config is the root application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Answer    AnswerConfig    `yaml:"answer"`
}

// Load reads a config file. A missing file yields the defaults; a
// malformed one is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Type: "memory"},
		Embedding: EmbeddingConfig{
			Model:       embedding.DefaultModel,
			Dimension:   embedding.DefaultDimension,
			TimeoutSecs: 30,
			Concurrency: 8,
		},
		Chunking: ChunkingConfig{
			WindowSize: chunker.DefaultWindowSize,
			Overlap:    chunker.DefaultOverlap,
		},
		Retrieval: RetrievalConfig{TopK: retriever.DefaultTopK},
		Answer:    AnswerConfig{Model: "gpt-4o", TimeoutSecs: 30},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = def.Embedding.Dimension
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = def.Embedding.TimeoutSecs
	}
	if cfg.Embedding.Concurrency == 0 {
		cfg.Embedding.Concurrency = def.Embedding.Concurrency
	}
	if cfg.Chunking.WindowSize == 0 {
		cfg.Chunking.WindowSize = def.Chunking.WindowSize
	}
	if cfg.Chunking.Overlap == 0 && cfg.Chunking.WindowSize == def.Chunking.WindowSize {
		cfg.Chunking.Overlap = def.Chunking.Overlap
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Answer.Model == "" {
		cfg.Answer.Model = def.Answer.Model
	}
	if cfg.Answer.TimeoutSecs == 0 {
		cfg.Answer.TimeoutSecs = def.Answer.TimeoutSecs
	}
	if cfg.Store.Type == "mongo" && cfg.Store.Mongo == nil {
		cfg.Store.Mongo = &MongoConfig{Database: "studysage"}
	}
	if cfg.Store.Type == "qdrant" && cfg.Store.Qdrant == nil {
		cfg.Store.Qdrant = &QdrantConfig{Host: "localhost", Port: 6334}
	}
}
