package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blob not found")

// ErrVersionMismatch is returned by PutIf when the stored blob no
// longer carries the expected version. Callers re-read and retry.
var ErrVersionMismatch = errors.New("blob version mismatch")

// Store is an abstraction over durable object storage. Versions are
// opaque strings (an ETag on S3, a content hash locally) used for
// compare-and-swap writes.
type Store interface {
	// Get reads a blob and its current version.
	Get(ctx context.Context, key string) (data []byte, version string, err error)

	// Put writes a blob unconditionally.
	Put(ctx context.Context, key string, data []byte) error

	// PutIf writes a blob only if its current version matches
	// expectedVersion. An empty expectedVersion means the blob must
	// not exist yet. Returns ErrVersionMismatch on a lost race.
	PutIf(ctx context.Context, key string, data []byte, expectedVersion string) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}
