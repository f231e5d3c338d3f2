package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sakthi-S29/trackwise/internal/blobstore"
)

func testEntry(id string, embedding []float32) Entry {
	return Entry{
		ID:        id,
		Text:      "summary for " + id,
		Embedding: embedding,
		Amount:    42.5,
		Date:      "2024-03-15",
		Timestamp: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		Vendor:    "Cafe Luna",
		Category:  "Dining",
		Type:      "expense",
	}
}

func TestFlatIndexSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("empty index returns empty slice", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{})
		hits, err := index.Search(ctx, []float32{1, 0, 0}, 5)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("Search() on empty index returned %d hits, want 0", len(hits))
		}
	})

	t.Run("fewer entries than k returns all entries", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{})
		for i := 0; i < 3; i++ {
			entry := testEntry(fmt.Sprintf("txn-%d", i), []float32{float32(i + 1), 0, 0})
			if err := index.Upsert(ctx, entry); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
		}

		hits, err := index.Search(ctx, []float32{1, 0, 0}, 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 3 {
			t.Errorf("Search() returned %d hits, want 3", len(hits))
		}
	})

	t.Run("single entry round trip", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{})
		want := testEntry("txn-1", []float32{0.5, 0.5, 0})
		if err := index.Upsert(ctx, want); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		hits, err := index.Search(ctx, want.Embedding, 1)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("Search() returned %d hits, want 1", len(hits))
		}
		if hits[0].Entry.ID != "txn-1" {
			t.Errorf("Search() returned entry %q, want txn-1", hits[0].Entry.ID)
		}
		if hits[0].Score < 0.999 {
			t.Errorf("self-similarity score = %v, want ~1.0", hits[0].Score)
		}
	})

	t.Run("results ordered by descending similarity", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{})
		entries := []Entry{
			testEntry("far", []float32{0, 1, 0}),
			testEntry("near", []float32{1, 0.1, 0}),
			testEntry("exact", []float32{1, 0, 0}),
		}
		for _, entry := range entries {
			if err := index.Upsert(ctx, entry); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
		}

		hits, err := index.Search(ctx, []float32{1, 0, 0}, 3)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		gotOrder := []string{hits[0].Entry.ID, hits[1].Entry.ID, hits[2].Entry.ID}
		wantOrder := []string{"exact", "near", "far"}
		for i := range wantOrder {
			if gotOrder[i] != wantOrder[i] {
				t.Errorf("hit %d = %q, want %q", i, gotOrder[i], wantOrder[i])
			}
		}
	})

	t.Run("dimension mismatch rejected", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{})
		if err := index.Upsert(ctx, testEntry("txn-1", []float32{1, 0, 0})); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		if _, err := index.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Search() with wrong dimension: error = %v, want ErrDimensionMismatch", err)
		}
		if err := index.Upsert(ctx, testEntry("txn-2", []float32{1, 0})); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Upsert() with wrong dimension: error = %v, want ErrDimensionMismatch", err)
		}
	})

	t.Run("non-positive k returns empty slice", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{})
		if err := index.Upsert(ctx, testEntry("txn-1", []float32{1, 0, 0})); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		hits, err := index.Search(ctx, []float32{1, 0, 0}, 0)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("Search() with k=0 returned %d hits, want 0", len(hits))
		}
	})
}

func TestFlatIndexUpsertSemantics(t *testing.T) {
	ctx := context.Background()

	t.Run("append mode accumulates duplicates", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{Replace: false})
		entry := testEntry("txn-1", []float32{1, 0, 0})
		for i := 0; i < 2; i++ {
			if err := index.Upsert(ctx, entry); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
		}
		count, err := index.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 2 {
			t.Errorf("Count() = %d, want 2", count)
		}
	})

	t.Run("replace mode overwrites by ID", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{Replace: true})
		if err := index.Upsert(ctx, testEntry("txn-1", []float32{1, 0, 0})); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		updated := testEntry("txn-1", []float32{0, 1, 0})
		updated.Text = "updated summary"
		if err := index.Upsert(ctx, updated); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		count, err := index.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 1 {
			t.Errorf("Count() = %d, want 1", count)
		}

		hits, err := index.Search(ctx, []float32{0, 1, 0}, 1)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if hits[0].Entry.Text != "updated summary" {
			t.Errorf("entry text = %q, want updated summary", hits[0].Entry.Text)
		}
	})
}

func TestFlatIndexRebuild(t *testing.T) {
	ctx := context.Background()

	t.Run("rebuild replaces all contents", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{})
		if err := index.Upsert(ctx, testEntry("old", []float32{1, 0, 0})); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		fresh := []Entry{
			testEntry("new-1", []float32{0, 1}),
			testEntry("new-2", []float32{1, 0}),
		}
		if err := index.Rebuild(ctx, fresh); err != nil {
			t.Fatalf("Rebuild() error = %v", err)
		}

		count, err := index.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 2 {
			t.Errorf("Count() after rebuild = %d, want 2", count)
		}
		if index.Dimension() != 2 {
			t.Errorf("Dimension() after rebuild = %d, want 2", index.Dimension())
		}
	})

	t.Run("rebuild rejects mixed dimensions", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{})
		entries := []Entry{
			testEntry("a", []float32{1, 0, 0}),
			testEntry("b", []float32{1, 0}),
		}
		if err := index.Rebuild(ctx, entries); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Rebuild() error = %v, want ErrDimensionMismatch", err)
		}
	})

	t.Run("concurrent readers never observe a partial rebuild", func(t *testing.T) {
		index := NewFlatIndex(FlatOptions{})
		buildEntries := func(n, dim int) []Entry {
			entries := make([]Entry, n)
			for i := range entries {
				vector := make([]float32, dim)
				vector[i%dim] = 1
				entries[i] = testEntry(fmt.Sprintf("txn-%d", i), vector)
			}
			return entries
		}

		if err := index.Rebuild(ctx, buildEntries(5, 3)); err != nil {
			t.Fatalf("Rebuild() error = %v", err)
		}

		var wg sync.WaitGroup
		stop := make(chan struct{})

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				n := 5 + i%3
				if err := index.Rebuild(ctx, buildEntries(n, 3)); err != nil {
					t.Errorf("Rebuild() error = %v", err)
					return
				}
			}
		}()

		for i := 0; i < 200; i++ {
			hits, err := index.Search(ctx, []float32{1, 0, 0}, 10)
			if err != nil {
				t.Fatalf("Search() during rebuild: error = %v", err)
			}
			if len(hits) < 5 {
				t.Fatalf("Search() during rebuild returned %d hits, want at least 5", len(hits))
			}
		}

		close(stop)
		wg.Wait()
	})
}

func TestFlatIndexPersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("save and load round trip", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		source := NewFlatIndex(FlatOptions{})
		entries := []Entry{
			testEntry("txn-1", []float32{1, 0, 0}),
			testEntry("txn-2", []float32{0, 1, 0}),
			testEntry("txn-3", []float32{0, 0, 1}),
		}
		for _, entry := range entries {
			if err := source.Upsert(ctx, entry); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
		}
		if err := source.SaveTo(ctx, store, "index.bin", "texts.json"); err != nil {
			t.Fatalf("SaveTo() error = %v", err)
		}

		loaded := NewFlatIndex(FlatOptions{})
		if err := loaded.LoadFrom(ctx, store, "index.bin", "texts.json"); err != nil {
			t.Fatalf("LoadFrom() error = %v", err)
		}

		count, err := loaded.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != len(entries) {
			t.Fatalf("Count() after load = %d, want %d", count, len(entries))
		}

		for _, want := range entries {
			hits, err := loaded.Search(ctx, want.Embedding, 1)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			got := hits[0].Entry
			if got.ID != want.ID || got.Text != want.Text || got.Vendor != want.Vendor {
				t.Errorf("loaded entry = %+v, want %+v", got, want)
			}
			if !got.Timestamp.Equal(want.Timestamp) {
				t.Errorf("loaded timestamp = %v, want %v", got.Timestamp, want.Timestamp)
			}
		}
	})

	t.Run("load rejects corrupt header", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		if err := store.Put(ctx, "index.bin", []byte("not an index blob")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := store.Put(ctx, "texts.json", []byte("[]")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		index := NewFlatIndex(FlatOptions{})
		if err := index.LoadFrom(ctx, store, "index.bin", "texts.json"); err == nil {
			t.Error("LoadFrom() with corrupt blob succeeded, want error")
		}
	})
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float32
	}{
		{"identical vectors", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal vectors", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite vectors", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
