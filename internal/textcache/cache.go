// Package textcache maintains the flat JSON cache of indexed
// transaction documents. The cache is one blob holding every document
// ever indexed, kept alongside the vector index so the whole corpus
// can be re-read without querying the index.
package textcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sakthi-S29/trackwise/internal/blobstore"
	"github.com/Sakthi-S29/trackwise/internal/logger"
	"github.com/Sakthi-S29/trackwise/internal/vectorindex"
)

// maxPutAttempts bounds the conditional-write retry loop. Each lost
// race reloads the blob and retries; past this many collisions the
// append fails rather than spinning.
const maxPutAttempts = 5

// ErrTooMuchContention is returned when an append loses the
// conditional write more times than maxPutAttempts allows.
var ErrTooMuchContention = errors.New("text cache: too many concurrent writers")

// Cache is a read-modify-write JSON array over a single blob. Appends
// use the blob store's conditional writes so two concurrent ingests
// cannot silently drop each other's documents.
type Cache struct {
	store blobstore.Store
	key   string
	log   *logger.Logger
}

// New creates a cache over the given blob key
func New(store blobstore.Store, key string, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.New("textcache", nil)
	}
	return &Cache{store: store, key: key, log: log}
}

// Load returns every cached document in insertion order. A missing
// blob is an empty cache, not an error.
func (c *Cache) Load(ctx context.Context) ([]vectorindex.Entry, error) {
	data, _, err := c.store.Get(ctx, c.key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return []vectorindex.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading text cache %s: %w", c.key, err)
	}

	var entries []vectorindex.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding text cache %s: %w", c.key, err)
	}
	return entries, nil
}

// Append adds one document to the cache. The write is conditional on
// the version read, so a concurrent append forces a reload and retry
// instead of overwriting the other writer's document.
func (c *Cache) Append(ctx context.Context, entry vectorindex.Entry) error {
	for attempt := 1; attempt <= maxPutAttempts; attempt++ {
		data, version, err := c.store.Get(ctx, c.key)
		var entries []vectorindex.Entry
		switch {
		case errors.Is(err, blobstore.ErrNotFound):
			entries = []vectorindex.Entry{}
			version = ""
		case err != nil:
			return fmt.Errorf("reading text cache %s: %w", c.key, err)
		default:
			if err := json.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("decoding text cache %s: %w", c.key, err)
			}
		}

		entries = append(entries, entry)
		encoded, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("encoding text cache %s: %w", c.key, err)
		}

		err = c.store.PutIf(ctx, c.key, encoded, version)
		if err == nil {
			c.log.DebugWithFields("appended to text cache", []logger.Field{
				logger.F("id", entry.ID),
				logger.Count(len(entries)),
			})
			return nil
		}
		if !errors.Is(err, blobstore.ErrVersionMismatch) {
			return fmt.Errorf("writing text cache %s: %w", c.key, err)
		}

		c.log.Debug("text cache write lost a race, retrying (attempt %d)", attempt)
	}

	return fmt.Errorf("appending %s: %w", entry.ID, ErrTooMuchContention)
}

// Replace overwrites the whole cache. Used by batch reindexing, which
// rebuilds the corpus from the record store and publishes it in one
// write.
func (c *Cache) Replace(ctx context.Context, entries []vectorindex.Entry) error {
	if entries == nil {
		entries = []vectorindex.Entry{}
	}
	encoded, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding text cache %s: %w", c.key, err)
	}
	if err := c.store.Put(ctx, c.key, encoded); err != nil {
		return fmt.Errorf("writing text cache %s: %w", c.key, err)
	}
	c.log.InfoWithFields("text cache replaced", []logger.Field{logger.Count(len(entries))})
	return nil
}
