package config

import (
	"fmt"
	"time"
)

// Deployment variants. The managed variant runs against AWS services
// (Bedrock, OpenSearch, S3, DynamoDB); the local variant runs entirely
// self-hosted against Ollama and the local filesystem.
const (
	VariantManaged = "managed"
	VariantLocal   = "local"
)

// Config holds the complete application configuration
type Config struct {
	Version    string           `yaml:"version" json:"version"`
	Variant    string           `yaml:"variant" json:"variant"` // managed|local
	Auth       AuthConfig       `yaml:"auth" json:"auth"`
	AWS        AWSConfig        `yaml:"aws" json:"aws"`
	Embedding  EmbeddingConfig  `yaml:"embedding" json:"embedding"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// AuthConfig configures the API bearer token
type AuthConfig struct {
	// Token is the shared bearer token required on every API request.
	// Empty disables authentication, which is only sensible for local
	// development.
	Token string `yaml:"token" json:"token"`
}

// AWSConfig configures the managed variant's service endpoints
type AWSConfig struct {
	Region             string `yaml:"region" json:"region"`
	OpenSearchEndpoint string `yaml:"opensearch_endpoint" json:"opensearch_endpoint"`
	OpenSearchIndex    string `yaml:"opensearch_index" json:"opensearch_index"`
	S3Bucket           string `yaml:"s3_bucket" json:"s3_bucket"`
	S3Prefix           string `yaml:"s3_prefix" json:"s3_prefix"`
	DynamoTable        string `yaml:"dynamo_table" json:"dynamo_table"`
}

// EmbeddingConfig configures the embedding provider
type EmbeddingConfig struct {
	Model             string        `yaml:"model" json:"model"`       // model identifier
	Endpoint          string        `yaml:"endpoint" json:"endpoint"` // local variant: Ollama base URL
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"` // managed variant rate limit, 0 disables
}

// GenerationConfig configures the answer generator
type GenerationConfig struct {
	Model       string        `yaml:"model" json:"model"`
	Endpoint    string        `yaml:"endpoint" json:"endpoint"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// RetrievalConfig configures nearest-neighbor retrieval
type RetrievalConfig struct {
	TopK int `yaml:"top_k" json:"top_k"`
	// Replace switches ingestion from append-only (re-ingesting a
	// record accumulates duplicates) to overwrite-by-ID.
	Replace bool `yaml:"replace" json:"replace"`
}

// StorageConfig configures index and cache persistence
type StorageConfig struct {
	Dir      string `yaml:"dir" json:"dir"`             // local variant: blob directory
	IndexKey string `yaml:"index_key" json:"index_key"` // vector blob key
	CacheKey string `yaml:"cache_key" json:"cache_key"` // texts blob key
	// WatchReload enables reloading the local index when another
	// process publishes a new blob pair.
	WatchReload bool `yaml:"watch_reload" json:"watch_reload"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	Addr    string        `yaml:"addr" json:"addr"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"` // per-request budget
}

// DefaultConfig returns a configuration with sensible defaults for the
// local variant.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Variant: VariantLocal,
		AWS: AWSConfig{
			Region:          "us-east-1",
			OpenSearchIndex: "transactions",
			S3Bucket:        "",
			S3Prefix:        "",
			DynamoTable:     "",
		},
		Embedding: EmbeddingConfig{
			Model:             "all-minilm",
			Endpoint:          "http://localhost:11434",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 0,
		},
		Generation: GenerationConfig{
			Model:       "tinyllama",
			Endpoint:    "http://localhost:11434",
			MaxTokens:   256,
			Temperature: 0.5,
			Timeout:     60 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TopK:    3,
			Replace: false,
		},
		Storage: StorageConfig{
			Dir:         "~/.cache/trackwise",
			IndexKey:    "index.bin",
			CacheKey:    "texts.json",
			WatchReload: false,
		},
		Server: ServerConfig{
			Addr:    ":8080",
			Timeout: 90 * time.Second,
		},
	}
}

// ManagedDefaults adjusts the defaults to the managed variant's model
// identifiers and retrieval depth.
func ManagedDefaults() *Config {
	cfg := DefaultConfig()
	cfg.Variant = VariantManaged
	cfg.Embedding.Model = "amazon.titan-embed-text-v2:0"
	cfg.Embedding.Endpoint = ""
	cfg.Generation.Model = "anthropic.claude-instant-v1"
	cfg.Generation.Endpoint = ""
	cfg.Generation.MaxTokens = 500
	cfg.Retrieval.TopK = 5
	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Variant != VariantManaged && c.Variant != VariantLocal {
		return fmt.Errorf("invalid variant: %s (must be managed or local)", c.Variant)
	}
	if err := c.validateVariant(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("top_k must be greater than 0")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server timeout must be non-negative")
	}
	return nil
}

// validateVariant checks the settings specific to the active variant
func (c *Config) validateVariant() error {
	switch c.Variant {
	case VariantManaged:
		if c.AWS.Region == "" {
			return fmt.Errorf("managed variant requires aws.region")
		}
		if c.AWS.OpenSearchEndpoint == "" {
			return fmt.Errorf("managed variant requires aws.opensearch_endpoint")
		}
		if c.AWS.OpenSearchIndex == "" {
			return fmt.Errorf("managed variant requires aws.opensearch_index")
		}
		if c.AWS.S3Bucket == "" {
			return fmt.Errorf("managed variant requires aws.s3_bucket")
		}
	case VariantLocal:
		if c.Embedding.Endpoint == "" {
			return fmt.Errorf("local variant requires embedding.endpoint")
		}
		if c.Storage.Dir == "" {
			return fmt.Errorf("local variant requires storage.dir")
		}
	}
	return nil
}

// validateModels checks generation and embedding parameters
func (c *Config) validateModels() error {
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Generation.MaxTokens < 1 {
		return fmt.Errorf("generation.max_tokens must be greater than 0")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 1 {
		return fmt.Errorf("generation.temperature must be between 0 and 1")
	}
	if c.Embedding.RequestsPerMinute < 0 {
		return fmt.Errorf("embedding.requests_per_minute must be non-negative")
	}
	return nil
}
