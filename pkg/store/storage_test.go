package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-crudkit/pkg/store"
)

func storages(t *testing.T) map[string]store.Storage {
	t.Helper()
	sqlite, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "crudkit.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]store.Storage{
		"memory": store.NewMemoryStorage(),
		"file":   store.NewFileStorage(t.TempDir()),
		"sqlite": sqlite,
	}
}

func TestStorageContract(t *testing.T) {
	for name, storage := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ref := store.Ref{Area: store.AreaLocal, Key: "crud_instance_store"}

			if _, _, ok, err := storage.Load(ctx, ref); err != nil || ok {
				t.Fatalf("expected missing snapshot, ok=%v err=%v", ok, err)
			}

			first, err := storage.Save(ctx, ref, []byte(`{"instances":{}}`), store.Meta{})
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if first.ETag != store.ETagOf([]byte(`{"instances":{}}`)) || first.UpdatedAt.IsZero() {
				t.Fatalf("expected stamped meta, got %+v", first)
			}

			data, meta, ok, err := storage.Load(ctx, ref)
			if err != nil || !ok {
				t.Fatalf("load: ok=%v err=%v", ok, err)
			}
			if string(data) != `{"instances":{}}` || meta.ETag != first.ETag {
				t.Fatalf("unexpected snapshot %s %+v", data, meta)
			}

			second, err := storage.Save(ctx, ref, []byte(`{"instances":{"a":1}}`), store.Meta{})
			if err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if second.ETag == first.ETag {
				t.Fatalf("expected a new etag after overwrite")
			}

			session := store.Ref{Area: store.AreaSession, Key: "crud_instance_store"}
			if _, _, ok, _ := storage.Load(ctx, session); ok {
				t.Fatalf("areas must not share snapshots")
			}
		})
	}
}

func TestStorageRejectsInvalidRefs(t *testing.T) {
	refs := []store.Ref{
		{Area: "cloud", Key: "x"},
		{Area: store.AreaLocal, Key: ""},
		{Area: store.AreaLocal, Key: "../escape"},
	}
	for name, storage := range storages(t) {
		for _, ref := range refs {
			if _, err := storage.Save(context.Background(), ref, []byte("{}"), store.Meta{}); !errors.Is(err, store.ErrInvalidRef) {
				t.Fatalf("%s: expected invalid ref for %+v, got %v", name, ref, err)
			}
		}
	}
}

func TestRefIdentifier(t *testing.T) {
	got, err := store.Ref{Area: store.AreaSession, Key: "views"}.Identifier()
	if err != nil || got != "session/views" {
		t.Fatalf("expected session/views, got %q err=%v", got, err)
	}
}
