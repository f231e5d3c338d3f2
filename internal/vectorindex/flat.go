package vectorindex

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Sakthi-S29/trackwise/internal/blobstore"
)

// FlatOptions configures the flat index
type FlatOptions struct {
	// Replace controls upsert semantics: when true, upserting an entry
	// whose ID already exists replaces the old entry; when false the
	// entry is appended and duplicates accumulate, matching the
	// managed variant's append-only behavior.
	Replace bool
}

// FlatIndex is an exhaustive-scan vector index held in memory. It backs
// the self-hosted deployment variant and the in-process fake used in
// tests. Entries and vectors live in one slice, so position i in the
// persisted vector blob always corresponds to entry i in the persisted
// texts blob.
type FlatIndex struct {
	mu        sync.RWMutex
	entries   []Entry
	dimension int
	options   FlatOptions
}

// NewFlatIndex creates an empty flat index
func NewFlatIndex(options FlatOptions) *FlatIndex {
	return &FlatIndex{options: options}
}

// Upsert adds one entry
func (f *FlatIndex) Upsert(_ context.Context, entry Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := checkDimension(f.dimension, len(entry.Embedding)); err != nil {
		return err
	}

	if f.options.Replace {
		for i := range f.entries {
			if f.entries[i].ID == entry.ID {
				f.entries[i] = entry
				return nil
			}
		}
	}

	f.entries = append(f.entries, entry)
	f.dimension = len(entry.Embedding)
	return nil
}

// Search returns up to k nearest entries by cosine similarity
func (f *FlatIndex) Search(_ context.Context, vector []float32, k int) ([]Hit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.entries) == 0 {
		return []Hit{}, nil
	}
	if err := checkDimension(f.dimension, len(vector)); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(f.entries))
	for _, entry := range f.entries {
		hits = append(hits, Hit{
			Entry: entry,
			Score: CosineSimilarity(vector, entry.Embedding),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Rebuild atomically replaces the entire index contents
func (f *FlatIndex) Rebuild(_ context.Context, entries []Entry) error {
	dimension := 0
	for i, entry := range entries {
		if err := checkDimension(dimension, len(entry.Embedding)); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i, entry.ID, err)
		}
		dimension = len(entry.Embedding)
	}

	fresh := make([]Entry, len(entries))
	copy(fresh, entries)

	f.mu.Lock()
	f.entries = fresh
	f.dimension = dimension
	f.mu.Unlock()
	return nil
}

// Count returns the number of stored entries
func (f *FlatIndex) Count(_ context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries), nil
}

// Dimension returns the established embedding dimension, or 0 for an
// empty index.
func (f *FlatIndex) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dimension
}

// Binary layout of the persisted vector blob: a fixed header followed
// by count*dimension little-endian float32 values, in entry order.
const (
	flatBlobMagic   = uint32(0x54575649) // "TWVI"
	flatBlobVersion = uint32(1)
)

type flatBlobHeader struct {
	Magic     uint32
	Version   uint32
	Dimension uint32
	Count     uint32
}

// persistedEntry is an Entry without its embedding; vectors travel in
// the binary blob, everything else in the texts blob. The two are
// joined positionally on load.
type persistedEntry struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	Amount       float64 `json:"amount"`
	Date         string  `json:"date"`
	Timestamp    string  `json:"timestamp"`
	Vendor       string  `json:"vendor"`
	Category     string  `json:"category"`
	Type         string  `json:"type"`
	LineItemsRaw string  `json:"line_items_raw"`
}

// SaveTo publishes the index to durable storage as two blobs: the
// vector blob under indexKey and the parallel texts blob under
// textsKey. Writes go through the blob store's atomic publish, so a
// reader downloading both keys sees either the previous pair or the
// new pair of each blob, never a torn single blob.
func (f *FlatIndex) SaveTo(ctx context.Context, store blobstore.Store, indexKey, textsKey string) error {
	f.mu.RLock()
	entries := f.entries
	dimension := f.dimension
	f.mu.RUnlock()

	var buf bytes.Buffer
	header := flatBlobHeader{
		Magic:     flatBlobMagic,
		Version:   flatBlobVersion,
		Dimension: uint32(dimension),
		Count:     uint32(len(entries)),
	}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("encoding index header: %w", err)
	}
	for _, entry := range entries {
		if err := binary.Write(&buf, binary.LittleEndian, entry.Embedding); err != nil {
			return fmt.Errorf("encoding vector for %s: %w", entry.ID, err)
		}
	}

	texts := make([]persistedEntry, len(entries))
	for i, entry := range entries {
		texts[i] = persistedEntry{
			ID:           entry.ID,
			Text:         entry.Text,
			Amount:       entry.Amount,
			Date:         entry.Date,
			Timestamp:    entry.Timestamp.Format(timestampLayout),
			Vendor:       entry.Vendor,
			Category:     entry.Category,
			Type:         entry.Type,
			LineItemsRaw: entry.LineItemsRaw,
		}
	}
	textsData, err := json.Marshal(texts)
	if err != nil {
		return fmt.Errorf("encoding texts: %w", err)
	}

	if err := store.Put(ctx, indexKey, buf.Bytes()); err != nil {
		return fmt.Errorf("publishing index blob: %w", err)
	}
	if err := store.Put(ctx, textsKey, textsData); err != nil {
		return fmt.Errorf("publishing texts blob: %w", err)
	}
	return nil
}

// LoadFrom replaces the index contents with the published pair of
// blobs. The vector blob and texts blob must agree on entry count;
// position i in one corresponds to position i in the other.
func (f *FlatIndex) LoadFrom(ctx context.Context, store blobstore.Store, indexKey, textsKey string) error {
	indexData, _, err := store.Get(ctx, indexKey)
	if err != nil {
		return fmt.Errorf("reading index blob: %w", err)
	}
	textsData, _, err := store.Get(ctx, textsKey)
	if err != nil {
		return fmt.Errorf("reading texts blob: %w", err)
	}

	reader := bytes.NewReader(indexData)
	var header flatBlobHeader
	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("decoding index header: %w", err)
	}
	if header.Magic != flatBlobMagic {
		return fmt.Errorf("index blob has unexpected magic %#x", header.Magic)
	}
	if header.Version != flatBlobVersion {
		return fmt.Errorf("index blob has unsupported version %d", header.Version)
	}

	var texts []persistedEntry
	if err := json.Unmarshal(textsData, &texts); err != nil {
		return fmt.Errorf("decoding texts: %w", err)
	}
	if uint32(len(texts)) != header.Count {
		return fmt.Errorf("index blob has %d vectors but texts blob has %d entries", header.Count, len(texts))
	}

	entries := make([]Entry, header.Count)
	for i := range entries {
		vector := make([]float32, header.Dimension)
		if err := binary.Read(reader, binary.LittleEndian, vector); err != nil {
			return fmt.Errorf("decoding vector %d: %w", i, err)
		}
		entries[i] = Entry{
			ID:           texts[i].ID,
			Text:         texts[i].Text,
			Embedding:    vector,
			Amount:       texts[i].Amount,
			Date:         texts[i].Date,
			Vendor:       texts[i].Vendor,
			Category:     texts[i].Category,
			Type:         texts[i].Type,
			LineItemsRaw: texts[i].LineItemsRaw,
		}
		if ts, err := parseTimestamp(texts[i].Timestamp); err == nil {
			entries[i].Timestamp = ts
		}
	}

	return f.Rebuild(ctx, entries)
}
