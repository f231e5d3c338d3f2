package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Sakthi-S29/trackwise/internal/ai"
)

// Provider implements the Embedder and Generator interfaces against a
// local Ollama instance. It backs the self-hosted deployment variant.
type Provider struct {
	config   *Config
	client   *http.Client
	baseURL  *url.URL
	healthy  bool
	healthMu sync.RWMutex

	dimMu     sync.RWMutex
	dimension int
}

var (
	_ ai.Embedder      = (*Provider)(nil)
	_ ai.Generator     = (*Provider)(nil)
	_ ai.HealthChecker = (*Provider)(nil)
)

// New creates a new Ollama provider instance
func New(config *Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, ai.NewConfigurationError("ollama", "base_url", "invalid base URL: "+err.Error())
	}

	return &Provider{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: baseURL,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "ollama"
}

// Embed converts text into an embedding vector
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ai.NewProviderError(ai.ErrTypeValidation, "text is empty", "ollama")
	}

	resp, err := p.embeddings(ctx, &EmbeddingsRequest{
		Model:  p.config.EmbedModel,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embedding) == 0 {
		return nil, ai.NewProviderError(ai.ErrTypeProvider, "empty embedding in response", "ollama")
	}

	vector := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vector[i] = float32(v)
	}

	p.recordDimension(len(vector))
	return vector, nil
}

// EmbedBatch converts multiple texts into embedding vectors. Ollama has
// no batch endpoint, so texts are embedded one by one; input order is
// preserved.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d of %d: %w", i+1, len(texts), err)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// Dimension returns the embedding vector length, or 0 before the first
// successful Embed call.
func (p *Provider) Dimension() int {
	p.dimMu.RLock()
	defer p.dimMu.RUnlock()
	return p.dimension
}

func (p *Provider) recordDimension(dim int) {
	p.dimMu.Lock()
	p.dimension = dim
	p.dimMu.Unlock()
}

// Complete performs text completion
func (p *Provider) Complete(ctx context.Context, req *ai.CompletionRequest) (*ai.CompletionResponse, error) {
	startTime := time.Now()

	if err := ai.ValidateCompletionRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.config.GenerateModel
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.config.DefaultTemperature
	}

	options := &Options{
		Temperature: temperature,
		Stop:        req.StopSequences,
	}
	if req.MaxTokens > 0 {
		options.NumPredict = req.MaxTokens
	}

	resp, err := p.generate(ctx, &GenerateRequest{
		Model:   model,
		Prompt:  req.Prompt,
		System:  req.SystemPrompt,
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return nil, err
	}

	usage := &ai.TokenUsage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}

	return &ai.CompletionResponse{
		Content:      strings.TrimSpace(resp.Response),
		FinishReason: "stop",
		Usage:        usage,
		Model:        resp.Model,
		RequestID:    req.RequestID,
		CreatedAt:    startTime,
	}, nil
}

// MaxTokens returns the maximum context window size
func (p *Provider) MaxTokens() int {
	return p.config.MaxTokens
}

// Close cleans up provider resources
func (p *Provider) Close() error {
	// No persistent connections to close for HTTP client
	return nil
}

// HealthCheck verifies provider connectivity and status
func (p *Provider) HealthCheck(ctx context.Context) error {
	endpoint := p.baseURL.JoinPath("/api/tags")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), http.NoBody)
	if err != nil {
		return ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "failed to create health check request", "ollama", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.setHealthy(false)
		return ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "health check failed", "ollama", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		p.setHealthy(false)
		return ai.NewProviderError(ai.ErrTypeProvider, fmt.Sprintf("health check failed with status %d", resp.StatusCode), "ollama")
	}

	p.setHealthy(true)
	return nil
}

// IsHealthy returns current health status
func (p *Provider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.healthy
}

func (p *Provider) setHealthy(healthy bool) {
	p.healthMu.Lock()
	p.healthy = healthy
	p.healthMu.Unlock()
}

// generate performs a single generation request
func (p *Provider) generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	var result GenerateResponse
	if err := p.post(ctx, "/api/generate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// embeddings performs a single embeddings request
func (p *Provider) embeddings(ctx context.Context, req *EmbeddingsRequest) (*EmbeddingsResponse, error) {
	var result EmbeddingsResponse
	if err := p.post(ctx, "/api/embeddings", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *Provider) post(ctx context.Context, path string, body, out any) error {
	endpoint := p.baseURL.JoinPath(path)

	jsonData, err := json.Marshal(body)
	if err != nil {
		return ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to marshal request", "ollama", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewBuffer(jsonData))
	if err != nil {
		return ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to create request", "ollama", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ai.NewProviderErrorWithCause(ai.ErrTypeTimeout, "request canceled or timed out", "ollama", err)
		}
		return ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "request failed", "ollama", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		var errorResp ErrorResponse
		if json.Unmarshal(respBody, &errorResp) == nil && errorResp.Error != "" {
			return ai.NewProviderError(ai.ErrTypeProvider, errorResp.Error, "ollama")
		}
		return ai.NewProviderError(ai.ErrTypeProvider, fmt.Sprintf("request failed with status %d", resp.StatusCode), "ollama")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode response", "ollama", err)
	}

	return nil
}
