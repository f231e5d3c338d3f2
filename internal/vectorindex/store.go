package vectorindex

import (
	"context"
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a vector's length differs from
// the dimension already established for the index. All vectors in one
// index share one dimension; a mismatch means the caller mixed
// embeddings from different models and must not be papered over.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Store persists index entries and supports k-nearest-neighbor lookup
// by vector. Two implementations exist: an external search service for
// the managed variant and a flat in-process index for the self-hosted
// variant.
type Store interface {
	// Upsert adds one entry. Whether an existing entry with the same
	// ID is replaced or duplicated depends on the implementation's
	// replace setting.
	Upsert(ctx context.Context, entry Entry) error

	// Search returns up to k entries nearest to vector, ordered by
	// descending similarity. Fewer than k are returned if the index
	// holds fewer entries; an empty index yields an empty slice.
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Rebuild atomically replaces the entire index contents. A reader
	// racing a rebuild sees either the old contents or the new, never
	// a mix.
	Rebuild(ctx context.Context, entries []Entry) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
}

// checkDimension validates a vector against an established dimension.
// A zero established dimension means the index is empty and any
// non-empty vector is acceptable.
func checkDimension(established, got int) error {
	if got == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if established != 0 && got != established {
		return fmt.Errorf("%w: index has dimension %d, vector has %d", ErrDimensionMismatch, established, got)
	}
	return nil
}
