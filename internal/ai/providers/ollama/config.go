package ollama

import (
	"time"

	"github.com/Sakthi-S29/trackwise/internal/ai"
)

// Config holds Ollama-specific configuration
type Config struct {
	// BaseURL is the Ollama API endpoint
	BaseURL string `json:"base_url"`

	// EmbedModel is the model used for embeddings
	EmbedModel string `json:"embed_model"`

	// GenerateModel is the model used for text generation
	GenerateModel string `json:"generate_model"`

	// Timeout for HTTP requests
	Timeout time.Duration `json:"timeout"`

	// MaxTokens is the maximum context window size
	MaxTokens int `json:"max_tokens"`

	// DefaultTemperature for generation requests
	DefaultTemperature float64 `json:"default_temperature"`
}

// DefaultConfig returns a default Ollama configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "http://localhost:11434",
		EmbedModel:         "all-minilm",
		GenerateModel:      "tinyllama",
		Timeout:            30 * time.Second,
		MaxTokens:          1024,
		DefaultTemperature: 0.5,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ai.NewConfigurationError("ollama", "base_url", "base URL is required")
	}

	if c.EmbedModel == "" && c.GenerateModel == "" {
		return ai.NewConfigurationError("ollama", "model", "at least one of embed_model or generate_model is required")
	}

	if c.Timeout <= 0 {
		return ai.NewConfigurationError("ollama", "timeout", "timeout must be positive")
	}

	if c.DefaultTemperature < 0 || c.DefaultTemperature > 1 {
		return ai.NewConfigurationError("ollama", "default_temperature", "temperature must be between 0 and 1")
	}

	return nil
}
