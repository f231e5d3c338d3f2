package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// MemoryStore is an in-memory Store used in tests and as scratch
// storage for single-process setups.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Get reads a blob and its current version
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, "", ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, contentVersion(data), nil
}

// Put writes a blob unconditionally
func (s *MemoryStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

// PutIf writes a blob only if the current version matches
func (s *MemoryStore) PutIf(_ context.Context, key string, data []byte, expectedVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.blobs[key]
	if expectedVersion == "" {
		if exists {
			return ErrVersionMismatch
		}
	} else {
		if !exists || contentVersion(current) != expectedVersion {
			return ErrVersionMismatch
		}
	}

	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes a blob
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	return nil
}

// contentVersion derives an opaque version token from blob content,
// mirroring how object stores expose ETags.
func contentVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
