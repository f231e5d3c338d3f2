package blobstore

import (
	"context"
	"errors"
	"testing"
)

// storeFactories builds each Store implementation against fresh state
// so the contract tests run identically across backends.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"local": func() Store {
			s, err := NewLocalStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewLocalStore() error = %v", err)
			}
			return s
		},
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			_, _, err := store.Get(context.Background(), "missing.json")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			ctx := context.Background()

			if err := store.Put(ctx, "texts.json", []byte(`[]`)); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			data, version, err := store.Get(ctx, "texts.json")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(data) != `[]` {
				t.Errorf("Get() data = %q, want %q", data, `[]`)
			}
			if version == "" {
				t.Error("Get() returned empty version for existing blob")
			}
		})
	}
}

func TestStore_PutIfCreateOnly(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			ctx := context.Background()

			if err := store.PutIf(ctx, "texts.json", []byte(`[1]`), ""); err != nil {
				t.Fatalf("PutIf(create) error = %v", err)
			}

			// A second create-only write must lose.
			err := store.PutIf(ctx, "texts.json", []byte(`[2]`), "")
			if !errors.Is(err, ErrVersionMismatch) {
				t.Errorf("PutIf(create twice) error = %v, want ErrVersionMismatch", err)
			}
		})
	}
}

func TestStore_PutIfVersionedUpdate(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			ctx := context.Background()

			if err := store.Put(ctx, "texts.json", []byte(`[1]`)); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			_, version, err := store.Get(ctx, "texts.json")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}

			if err := store.PutIf(ctx, "texts.json", []byte(`[1,2]`), version); err != nil {
				t.Fatalf("PutIf(matching version) error = %v", err)
			}

			// The old version token is now stale.
			err = store.PutIf(ctx, "texts.json", []byte(`[1,3]`), version)
			if !errors.Is(err, ErrVersionMismatch) {
				t.Errorf("PutIf(stale version) error = %v, want ErrVersionMismatch", err)
			}

			data, _, err := store.Get(ctx, "texts.json")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(data) != `[1,2]` {
				t.Errorf("Get() data = %q, want %q (stale write must not land)", data, `[1,2]`)
			}
		})
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			ctx := context.Background()

			if err := store.Put(ctx, "index.bin", []byte{1, 2, 3}); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if err := store.Delete(ctx, "index.bin"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := store.Delete(ctx, "index.bin"); err != nil {
				t.Errorf("Delete(missing) error = %v, want nil", err)
			}
			if _, _, err := store.Get(ctx, "index.bin"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
			}
		})
	}
}
