package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalStore is a filesystem-backed Store rooted at a directory. It
// backs the self-hosted deployment variant, standing in for the object
// storage bucket the managed variant uses.
//
// Writes go through a temp file and rename so a concurrent reader
// never observes a half-written blob. Compare-and-swap is guarded by a
// process-wide mutex; multi-process writers are out of scope for the
// local variant.
type LocalStore struct {
	root string
	mu   sync.Mutex
}

// NewLocalStore creates a store rooted at dir, creating it if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root %s: %w", dir, err)
	}
	return &LocalStore{root: dir}, nil
}

// Path returns the filesystem path a key is stored under.
func (s *LocalStore) Path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Get reads a blob and its current version
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, string, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("reading blob %s: %w", key, err)
	}
	return data, contentVersion(data), nil
}

// Put writes a blob unconditionally
func (s *LocalStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAtomic(key, data)
}

// PutIf writes a blob only if the current version matches
func (s *LocalStore) PutIf(_ context.Context, key string, data []byte, expectedVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := os.ReadFile(s.Path(key))
	switch {
	case errors.Is(err, os.ErrNotExist):
		if expectedVersion != "" {
			return ErrVersionMismatch
		}
	case err != nil:
		return fmt.Errorf("reading blob %s: %w", key, err)
	default:
		if expectedVersion == "" || contentVersion(current) != expectedVersion {
			return ErrVersionMismatch
		}
	}

	return s.writeAtomic(key, data)
}

// Delete removes a blob
func (s *LocalStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting blob %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) writeAtomic(key string, data []byte) error {
	target := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating blob dir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+strings.ReplaceAll(filepath.Base(target), string(os.PathSeparator), "_")+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp blob for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp blob for %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp blob for %s: %w", key, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publishing blob %s: %w", key, err)
	}
	return nil
}
