package pipeline

import (
	"context"
	"fmt"

	"github.com/Sakthi-S29/trackwise/internal/ai"
	"github.com/Sakthi-S29/trackwise/internal/logger"
	"github.com/Sakthi-S29/trackwise/internal/vectorindex"
)

// SentinelNoRecords is the single context line used when retrieval
// finds nothing, so the generator always sees a non-empty context and
// can state that no records exist instead of inventing some.
const SentinelNoRecords = "There are no financial records to reference."

// Retriever finds the stored summaries nearest a question
type Retriever struct {
	embedder ai.Embedder
	index    vectorindex.Store
	topK     int
	log      *logger.Logger
}

// NewRetriever creates a retriever with the configured retrieval depth
func NewRetriever(embedder ai.Embedder, index vectorindex.Store, topK int, log *logger.Logger) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index is required")
	}
	if topK < 1 {
		return nil, fmt.Errorf("topK must be at least 1, got %d", topK)
	}
	if log == nil {
		log = logger.New("retriever", nil)
	}
	return &Retriever{embedder: embedder, index: index, topK: topK, log: log}, nil
}

// Retrieve embeds the query and returns the nearest summaries in rank
// order, plus the raw hits for debug metadata. With no hits, texts
// holds only the sentinel line and hits is empty.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]string, []vectorindex.Hit, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := r.index.Search(ctx, vector, r.topK)
	if err != nil {
		return nil, nil, fmt.Errorf("searching index: %w", err)
	}

	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.Entry.Text != "" {
			texts = append(texts, hit.Entry.Text)
		}
	}

	if len(texts) == 0 {
		r.log.Debug("no records matched, using sentinel context")
		return []string{SentinelNoRecords}, hits, nil
	}

	r.log.DebugWithFields("retrieved context", []logger.Field{logger.Count(len(texts))})
	return texts, hits, nil
}
