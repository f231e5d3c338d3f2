package textcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Sakthi-S29/trackwise/internal/blobstore"
	"github.com/Sakthi-S29/trackwise/internal/vectorindex"
)

func cacheEntry(id string) vectorindex.Entry {
	return vectorindex.Entry{
		ID:     id,
		Text:   "summary for " + id,
		Amount: 19.99,
		Date:   "2024-03-15",
		Vendor: "Cafe Luna",
	}
}

func TestCacheLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("missing blob is an empty cache", func(t *testing.T) {
		cache := New(blobstore.NewMemoryStore(), "texts.json", nil)
		entries, err := cache.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("Load() returned %d entries, want 0", len(entries))
		}
	})

	t.Run("corrupt blob surfaces an error", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		if err := store.Put(ctx, "texts.json", []byte("{not json")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		cache := New(store, "texts.json", nil)
		if _, err := cache.Load(ctx); err == nil {
			t.Error("Load() on corrupt blob succeeded, want error")
		}
	})
}

func TestCacheAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("appends preserve insertion order", func(t *testing.T) {
		cache := New(blobstore.NewMemoryStore(), "texts.json", nil)
		for i := 0; i < 3; i++ {
			if err := cache.Append(ctx, cacheEntry(fmt.Sprintf("txn-%d", i))); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}

		entries, err := cache.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("Load() returned %d entries, want 3", len(entries))
		}
		for i, entry := range entries {
			want := fmt.Sprintf("txn-%d", i)
			if entry.ID != want {
				t.Errorf("entry %d = %q, want %q", i, entry.ID, want)
			}
		}
	})

	t.Run("concurrent appends lose no documents", func(t *testing.T) {
		cache := New(blobstore.NewMemoryStore(), "texts.json", nil)
		const writers = 4

		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = cache.Append(ctx, cacheEntry(fmt.Sprintf("txn-%d", i)))
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("writer %d: Append() error = %v", i, err)
			}
		}

		entries, err := cache.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(entries) != writers {
			t.Fatalf("Load() returned %d entries, want %d", len(entries), writers)
		}
		seen := make(map[string]bool, writers)
		for _, entry := range entries {
			seen[entry.ID] = true
		}
		if len(seen) != writers {
			t.Errorf("cache holds %d distinct documents, want %d", len(seen), writers)
		}
	})

	t.Run("gives up after sustained contention", func(t *testing.T) {
		store := &alwaysConflictStore{inner: blobstore.NewMemoryStore()}
		cache := New(store, "texts.json", nil)

		err := cache.Append(ctx, cacheEntry("txn-1"))
		if !errors.Is(err, ErrTooMuchContention) {
			t.Errorf("Append() error = %v, want ErrTooMuchContention", err)
		}
		if store.attempts != maxPutAttempts {
			t.Errorf("conditional writes attempted = %d, want %d", store.attempts, maxPutAttempts)
		}
	})
}

func TestCacheReplace(t *testing.T) {
	ctx := context.Background()
	cache := New(blobstore.NewMemoryStore(), "texts.json", nil)

	if err := cache.Append(ctx, cacheEntry("old")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	fresh := []vectorindex.Entry{cacheEntry("new-1"), cacheEntry("new-2")}
	if err := cache.Replace(ctx, fresh); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	entries, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "new-1" || entries[1].ID != "new-2" {
		t.Errorf("Load() after replace = %+v", entries)
	}
}

// alwaysConflictStore rejects every conditional write
type alwaysConflictStore struct {
	inner    blobstore.Store
	attempts int
}

func (s *alwaysConflictStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	return s.inner.Get(ctx, key)
}

func (s *alwaysConflictStore) Put(ctx context.Context, key string, data []byte) error {
	return s.inner.Put(ctx, key, data)
}

func (s *alwaysConflictStore) PutIf(ctx context.Context, key string, data []byte, expectedVersion string) error {
	s.attempts++
	return blobstore.ErrVersionMismatch
}

func (s *alwaysConflictStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
