package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"golang.org/x/time/rate"

	"github.com/Sakthi-S29/trackwise/internal/ai"
)

// InvokeClient is the subset of the Bedrock runtime client used by the
// provider. Narrowing the type keeps tests free of real AWS clients.
type InvokeClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Provider implements the Embedder and Generator interfaces on top of
// Amazon Bedrock (Titan embeddings + Claude text completion). It backs
// the managed deployment variant.
type Provider struct {
	config  *Config
	client  InvokeClient
	limiter *rate.Limiter

	dimMu     sync.RWMutex
	dimension int
}

var (
	_ ai.Embedder  = (*Provider)(nil)
	_ ai.Generator = (*Provider)(nil)
)

// New creates a new Bedrock provider instance
func New(client InvokeClient, config *Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ai.NewConfigurationError("bedrock", "client", "client is required")
	}

	p := &Provider{
		config: config,
		client: client,
	}
	if config.RequestsPerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.RequestsPerMinute)
	}
	return p, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "bedrock"
}

// Embed converts text into an embedding vector using the Titan
// embedding model.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ai.NewProviderError(ai.ErrTypeValidation, "text is empty", "bedrock")
	}

	body, err := p.invoke(ctx, p.config.EmbedModelID, titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, err
	}

	var resp titanEmbedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode embedding response", "bedrock", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, ai.NewProviderError(ai.ErrTypeProvider, "empty embedding in response", "bedrock")
	}

	vector := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vector[i] = float32(v)
	}

	p.recordDimension(len(vector))
	return vector, nil
}

// EmbedBatch converts multiple texts into embedding vectors. Titan
// embeds one text per call, so texts are embedded sequentially; input
// order is preserved.
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

// Complete performs text completion using the Claude text completions
// API. The system prompt and user prompt are folded into the
// Human/Assistant turn format the model expects.
func (p *Provider) Complete(ctx context.Context, req *ai.CompletionRequest) (*ai.CompletionResponse, error) {
	startTime := time.Now()

	if err := ai.ValidateCompletionRequest(req); err != nil {
		return nil, err
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.config.DefaultTemperature
	}

	stopSequences := req.StopSequences
	if len(stopSequences) == 0 {
		stopSequences = []string{"\n\nHuman:"}
	}

	body, err := p.invoke(ctx, p.config.GenerateModelID, claudeCompletionRequest{
		Prompt:            claudePrompt(req.SystemPrompt, req.Prompt),
		MaxTokensToSample: req.MaxTokens,
		Temperature:       temperature,
		StopSequences:     stopSequences,
	})
	if err != nil {
		return nil, err
	}

	var resp claudeCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode completion response", "bedrock", err)
	}

	return &ai.CompletionResponse{
		Content:      strings.TrimSpace(resp.Completion),
		FinishReason: resp.StopReason,
		Model:        p.config.GenerateModelID,
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
	return nil
}

// claudePrompt renders the Human/Assistant turn format required by the
// Claude text completions API.
func claudePrompt(systemPrompt, prompt string) string {
	var b strings.Builder
	b.WriteString("\n\nHuman: ")
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString(prompt)
	b.WriteString("\n\nAssistant:")
	return b.String()
}

// invoke issues a single InvokeModel call with the configured timeout
// and rate limit applied.
func (p *Provider) invoke(ctx context.Context, modelID string, payload any) ([]byte, error) {
	if modelID == "" {
		return nil, ai.NewConfigurationError("bedrock", "model_id", "model ID not configured for this operation")
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, ai.NewProviderErrorWithCause(ai.ErrTypeTimeout, "rate limit wait canceled", "bedrock", err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to marshal request", "bedrock", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	out, err := p.client.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, classifyInvokeError(modelID, err)
	}

	return out.Body, nil
}

// classifyInvokeError maps InvokeModel failures onto the provider error
// taxonomy. Token-limit rejections arrive as validation exceptions
// mentioning the token count.
func classifyInvokeError(modelID string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline exceeded"):
		return ai.NewProviderErrorWithCause(ai.ErrTypeTimeout, fmt.Sprintf("invoking %s timed out", modelID), "bedrock", err)
	case strings.Contains(msg, "ValidationException") && strings.Contains(msg, "token"):
		return ai.NewProviderErrorWithCause(ai.ErrTypeTokenLimit, fmt.Sprintf("input exceeds token limit for %s", modelID), "bedrock", err)
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "UnrecognizedClient"):
		return ai.NewProviderErrorWithCause(ai.ErrTypeAuthentication, fmt.Sprintf("not authorized to invoke %s", modelID), "bedrock", err)
	default:
		return ai.NewProviderErrorWithCause(ai.ErrTypeProvider, fmt.Sprintf("invoking %s failed", modelID), "bedrock", err)
	}
}
