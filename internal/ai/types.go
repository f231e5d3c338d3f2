package ai

import (
	"time"
)

// CompletionRequest represents a request for text completion
type CompletionRequest struct {
	// Prompt is the input text for completion
	Prompt string `json:"prompt"`

	// SystemPrompt provides system-level instructions
	SystemPrompt string `json:"system_prompt,omitempty"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 1.0)
	Temperature float64 `json:"temperature,omitempty"`

	// StopSequences halt generation at the first occurrence of any entry
	StopSequences []string `json:"stop_sequences,omitempty"`

	// Model specifies which model to use (provider-specific)
	Model string `json:"model,omitempty"`

	// RequestID for request tracking
	RequestID string `json:"request_id,omitempty"`
}

// CompletionResponse represents the response from a completion request
type CompletionResponse struct {
	// Content is the generated text, trimmed of surrounding whitespace
	Content string `json:"content"`

	// FinishReason indicates why the completion finished
	// ("stop", "length", or a provider-specific value)
	FinishReason string `json:"finish_reason"`

	// Usage contains token usage information when reported
	Usage *TokenUsage `json:"usage,omitempty"`

	// Model indicates which model was used
	Model string `json:"model"`

	// RequestID matches the original request
	RequestID string `json:"request_id,omitempty"`

	// CreatedAt timestamp
	CreatedAt time.Time `json:"created_at"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ValidateCompletionRequest checks a completion request before it is
// sent to a provider.
func ValidateCompletionRequest(req *CompletionRequest) error {
	if req == nil {
		return NewValidationError("request", "", "request is nil")
	}
	if req.Prompt == "" {
		return NewValidationError("prompt", "", "prompt is empty")
	}
	if req.MaxTokens < 0 {
		return NewValidationError("max_tokens", "", "max tokens must not be negative")
	}
	if req.Temperature < 0 || req.Temperature > 1 {
		return NewValidationError("temperature", "", "temperature must be between 0 and 1")
	}
	return nil
}
