package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Sakthi-S29/trackwise/internal/ai"
	"github.com/Sakthi-S29/trackwise/internal/logger"
	"github.com/Sakthi-S29/trackwise/internal/record"
	"github.com/Sakthi-S29/trackwise/internal/summarizer"
	"github.com/Sakthi-S29/trackwise/internal/textcache"
	"github.com/Sakthi-S29/trackwise/internal/vectorindex"
)

// defaultEmbedConcurrency bounds parallel embedding requests during a
// batch reindex.
const defaultEmbedConcurrency = 4

// embedBatchSize caps how many texts go into one EmbedBatch call
const embedBatchSize = 32

// BatchIndexer rebuilds the whole index from the record store: every
// record is rendered to its corpus text, embedded, and the index and
// text cache are replaced wholesale.
type BatchIndexer struct {
	records     record.Store
	embedder    ai.Embedder
	index       vectorindex.Store
	cache       *textcache.Cache
	concurrency int
	log         *logger.Logger
}

// NewBatchIndexer creates a batch indexer. cache may be nil.
func NewBatchIndexer(records record.Store, embedder ai.Embedder, index vectorindex.Store, cache *textcache.Cache, log *logger.Logger) (*BatchIndexer, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index is required")
	}
	if log == nil {
		log = logger.New("reindex", nil)
	}
	return &BatchIndexer{
		records:     records,
		embedder:    embedder,
		index:       index,
		cache:       cache,
		concurrency: defaultEmbedConcurrency,
		log:         log,
	}, nil
}

// WithConcurrency overrides the embedding parallelism
func (b *BatchIndexer) WithConcurrency(n int) *BatchIndexer {
	if n > 0 {
		b.concurrency = n
	}
	return b
}

// Reindex scans every record, embeds the corpus texts in batches, and
// atomically replaces the index contents and text cache. Entry i
// always carries the embedding of text i; each batch writes its
// vectors back to the positions it was cut from. Returns the number of
// records indexed.
func (b *BatchIndexer) Reindex(ctx context.Context) (int, error) {
	records, err := b.records.Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("scanning records: %w", err)
	}

	b.log.Info("embedding %d records", len(records))

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = summarizer.CorpusText(rec)
	}

	embeddings := make([][]float32, len(texts))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.concurrency)
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		group.Go(func() error {
			batch, err := b.embedder.EmbedBatch(groupCtx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding records %s..%s: %w", records[start].ID, records[end-1].ID, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embedding batch returned %d vectors for %d texts", len(batch), end-start)
			}
			copy(embeddings[start:end], batch)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}

	entries := make([]vectorindex.Entry, len(records))
	for i, rec := range records {
		ts, err := rec.Timestamp()
		if err != nil {
			return 0, err
		}
		entries[i] = vectorindex.Entry{
			ID:           rec.ID,
			Text:         texts[i],
			Embedding:    embeddings[i],
			Amount:       rec.Amount,
			Date:         rec.Date,
			Timestamp:    ts,
			Vendor:       rec.Vendor,
			Category:     rec.Category,
			Type:         rec.Type,
			LineItemsRaw: summarizer.ItemsSummary(rec.LineItems),
		}
	}

	if err := b.index.Rebuild(ctx, entries); err != nil {
		return 0, fmt.Errorf("rebuilding index: %w", err)
	}

	if b.cache != nil {
		if err := b.cache.Replace(ctx, entries); err != nil {
			return 0, fmt.Errorf("replacing text cache: %w", err)
		}
	}

	b.log.InfoWithFields("reindex complete", []logger.Field{logger.Count(len(entries))})
	return len(entries), nil
}
