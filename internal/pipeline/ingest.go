// Package pipeline wires the retrieval-augmented flow: records are
// summarized and embedded on the way in, and questions are answered by
// retrieving nearby summaries and prompting a generator over them.
package pipeline

import (
	"context"
	"fmt"

	"github.com/Sakthi-S29/trackwise/internal/ai"
	"github.com/Sakthi-S29/trackwise/internal/logger"
	"github.com/Sakthi-S29/trackwise/internal/record"
	"github.com/Sakthi-S29/trackwise/internal/summarizer"
	"github.com/Sakthi-S29/trackwise/internal/textcache"
	"github.com/Sakthi-S29/trackwise/internal/vectorindex"
)

// Ingestor indexes one record at a time: summarize, embed, upsert into
// the vector index, then append to the text cache.
type Ingestor struct {
	embedder ai.Embedder
	index    vectorindex.Store
	cache    *textcache.Cache
	publish  func(context.Context) error
	log      *logger.Logger
}

// NewIngestor creates an ingestor. cache may be nil when no text cache
// is kept.
func NewIngestor(embedder ai.Embedder, index vectorindex.Store, cache *textcache.Cache, log *logger.Logger) (*Ingestor, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index is required")
	}
	if log == nil {
		log = logger.New("ingest", nil)
	}
	return &Ingestor{embedder: embedder, index: index, cache: cache, log: log}, nil
}

// WithPublisher registers a hook that runs after every successful
// ingest. The self-hosted variant uses it to republish the index and
// texts blobs as a pair, so a later load never sees a texts blob with
// more entries than the vector blob.
func (i *Ingestor) WithPublisher(publish func(context.Context) error) *Ingestor {
	i.publish = publish
	return i
}

// Ingest indexes one record and returns the stored entry
func (i *Ingestor) Ingest(ctx context.Context, rec record.Record) (vectorindex.Entry, error) {
	if err := rec.Validate(); err != nil {
		return vectorindex.Entry{}, err
	}

	text := summarizer.Summarize(rec)
	i.log.Debug("constructed summary: %s", text)

	embedding, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return vectorindex.Entry{}, fmt.Errorf("embedding record %s: %w", rec.ID, err)
	}

	ts, err := rec.Timestamp()
	if err != nil {
		return vectorindex.Entry{}, err
	}

	vendor := rec.Vendor
	if vendor == "" {
		vendor = summarizer.DefaultVendor
	}
	category := rec.Category
	if category == "" {
		category = summarizer.DefaultCategory
	}

	entry := vectorindex.Entry{
		ID:           rec.ID,
		Text:         text,
		Embedding:    embedding,
		Amount:       rec.Amount,
		Date:         rec.Date,
		Timestamp:    ts,
		Vendor:       vendor,
		Category:     category,
		Type:         rec.Type,
		LineItemsRaw: summarizer.ItemsSummary(rec.LineItems),
	}

	if err := i.index.Upsert(ctx, entry); err != nil {
		return vectorindex.Entry{}, fmt.Errorf("indexing record %s: %w", rec.ID, err)
	}

	if i.cache != nil {
		if err := i.cache.Append(ctx, entry); err != nil {
			return vectorindex.Entry{}, fmt.Errorf("caching record %s: %w", rec.ID, err)
		}
	}

	if i.publish != nil {
		if err := i.publish(ctx); err != nil {
			return vectorindex.Entry{}, fmt.Errorf("publishing index after %s: %w", rec.ID, err)
		}
	}

	i.log.InfoWithFields("record indexed", []logger.Field{
		logger.F("id", rec.ID),
		logger.F("dimension", len(embedding)),
	})
	return entry, nil
}
