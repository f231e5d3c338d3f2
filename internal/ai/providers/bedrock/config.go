package bedrock

import (
	"time"

	"github.com/Sakthi-S29/trackwise/internal/ai"
)

// Config holds Bedrock-specific configuration
type Config struct {
	// Region is the AWS region hosting the models
	Region string `json:"region"`

	// EmbedModelID is the embedding model identifier
	EmbedModelID string `json:"embed_model_id"`

	// GenerateModelID is the text generation model identifier
	GenerateModelID string `json:"generate_model_id"`

	// Timeout for each InvokeModel call
	Timeout time.Duration `json:"timeout"`

	// MaxTokens is the maximum context window size
	MaxTokens int `json:"max_tokens"`

	// DefaultTemperature for generation requests
	DefaultTemperature float64 `json:"default_temperature"`

	// RequestsPerMinute caps the InvokeModel call rate; zero disables
	// client-side rate limiting
	RequestsPerMinute int `json:"requests_per_minute"`
}

// DefaultConfig returns a default Bedrock configuration
func DefaultConfig() *Config {
	return &Config{
		Region:             "us-east-1",
		EmbedModelID:       "amazon.titan-embed-text-v2:0",
		GenerateModelID:    "anthropic.claude-instant-v1",
		Timeout:            30 * time.Second,
		MaxTokens:          100000,
		DefaultTemperature: 0.5,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Region == "" {
		return ai.NewConfigurationError("bedrock", "region", "region is required")
	}

	if c.EmbedModelID == "" && c.GenerateModelID == "" {
		return ai.NewConfigurationError("bedrock", "model_id", "at least one of embed_model_id or generate_model_id is required")
	}

	if c.Timeout <= 0 {
		return ai.NewConfigurationError("bedrock", "timeout", "timeout must be positive")
	}

	if c.DefaultTemperature < 0 || c.DefaultTemperature > 1 {
		return ai.NewConfigurationError("bedrock", "default_temperature", "temperature must be between 0 and 1")
	}

	return nil
}
