package pipeline

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/Sakthi-S29/trackwise/internal/ai"
)

// hashEmbedder derives a deterministic unit vector from the text, so
// identical texts always land on identical embeddings and tests can
// retrieve what they ingested.
type hashEmbedder struct {
	dim        int
	mu         sync.Mutex
	calls      []string
	batchCalls int
	fail       error
}

func newHashEmbedder(dim int) *hashEmbedder {
	return &hashEmbedder{dim: dim}
}

func (e *hashEmbedder) Name() string { return "hash-embedder" }

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	fail := e.fail
	e.mu.Unlock()
	if fail != nil {
		return nil, fail
	}

	vector := make([]float32, e.dim)
	var norm float32
	for i := 0; i < e.dim; i++ {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		v := float32(h.Sum32()%1000)/500 - 1
		vector[i] = v
		norm += v * v
	}
	scale := float32(1 / math.Sqrt(float64(norm)))
	for i := range vector {
		vector[i] *= scale
	}
	return vector, nil
}

func (e *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	e.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func (e *hashEmbedder) Dimension() int { return e.dim }
func (e *hashEmbedder) Close() error   { return nil }

func (e *hashEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *hashEmbedder) batchCallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batchCalls
}

// scriptedGenerator records the requests it receives and returns a
// fixed answer.
type scriptedGenerator struct {
	answer   string
	mu       sync.Mutex
	requests []*ai.CompletionRequest
	fail     error
}

func (g *scriptedGenerator) Name() string { return "scripted-generator" }

func (g *scriptedGenerator) Complete(_ context.Context, req *ai.CompletionRequest) (*ai.CompletionResponse, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	fail := g.fail
	g.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return &ai.CompletionResponse{
		Content:      g.answer,
		FinishReason: "stop",
		Model:        "scripted",
		CreatedAt:    time.Now(),
	}, nil
}

func (g *scriptedGenerator) MaxTokens() int { return 4096 }
func (g *scriptedGenerator) Close() error   { return nil }

func (g *scriptedGenerator) lastRequest() *ai.CompletionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		return nil
	}
	return g.requests[len(g.requests)-1]
}

func (g *scriptedGenerator) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}
