package bedrock

// titanEmbedRequest is the request body for Titan text embedding models
type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

// titanEmbedResponse is the response body from Titan text embedding models
type titanEmbedResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// claudeCompletionRequest is the request body for Claude text
// completion models (legacy text completions API)
type claudeCompletionRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float64  `json:"temperature,omitempty"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
}

// claudeCompletionResponse is the response body from Claude text
// completion models
type claudeCompletionResponse struct {
	Completion string `json:"completion"`
	StopReason string `json:"stop_reason"`
}
