package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sakthi-S29/trackwise/internal/ai"
	"github.com/Sakthi-S29/trackwise/internal/logger"
	"github.com/Sakthi-S29/trackwise/internal/vectorindex"
)

// ErrEmptyQuery is returned for blank questions. The check runs before
// any provider call, so an empty question never spends an embedding or
// generation request.
var ErrEmptyQuery = errors.New("query must not be empty")

// QueryOptions configures answer generation
type QueryOptions struct {
	// Local selects the self-hosted prompt and stop sequences.
	Local       bool
	MaxTokens   int
	Temperature float64
}

// QueryResult is one answered question with retrieval debug metadata
type QueryResult struct {
	Query     string             `json:"query"`
	Answer    string             `json:"answer"`
	HitsCount int                `json:"hits_count"`
	FirstHit  *vectorindex.Entry `json:"first_hit,omitempty"`
	Elapsed   time.Duration      `json:"-"`
}

// QueryService answers questions over the indexed records
type QueryService struct {
	retriever *Retriever
	generator ai.Generator
	options   QueryOptions
	log       *logger.Logger
}

// NewQueryService creates a query service
func NewQueryService(retriever *Retriever, generator ai.Generator, options QueryOptions, log *logger.Logger) (*QueryService, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if options.MaxTokens < 1 {
		return nil, fmt.Errorf("max tokens must be at least 1, got %d", options.MaxTokens)
	}
	if log == nil {
		log = logger.New("query", nil)
	}
	return &QueryService{retriever: retriever, generator: generator, options: options, log: log}, nil
}

// Query retrieves context for the question and generates an answer
func (s *QueryService) Query(ctx context.Context, query string) (*QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()

	texts, hits, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	pattern := NewFinanceAssistantPattern(query, texts)
	if s.options.Local {
		pattern.ForLocal()
	}
	req := pattern.CompletionRequest(s.options.MaxTokens, s.options.Temperature)

	resp, err := s.generator.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	result := &QueryResult{
		Query:     query,
		Answer:    strings.TrimSpace(resp.Content),
		HitsCount: len(hits),
		Elapsed:   time.Since(start),
	}
	if len(hits) > 0 {
		first := hits[0].Entry
		result.FirstHit = &first
	}

	s.log.InfoWithFields("query answered", []logger.Field{
		logger.Count(result.HitsCount),
		logger.Duration(result.Elapsed),
	})
	return result, nil
}
