package store_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/pkg/activity"
	"github.com/goliatone/go-crudkit/pkg/id"
	"github.com/goliatone/go-crudkit/pkg/metrics"
	"github.com/goliatone/go-crudkit/pkg/store"
)

var viewsRef = store.Ref{Area: store.AreaLocal, Key: store.ViewsStoreKey}

// countingStorage counts saves and can fail loads or saves.
type countingStorage struct {
	*store.MemoryStorage
	mu      sync.Mutex
	saves   int
	loadErr error
	saveErr error
}

func (s *countingStorage) Load(ctx context.Context, ref store.Ref) ([]byte, store.Meta, bool, error) {
	if s.loadErr != nil {
		return nil, store.Meta{}, false, s.loadErr
	}
	return s.MemoryStorage.Load(ctx, ref)
}

func (s *countingStorage) Save(ctx context.Context, ref store.Ref, data []byte, meta store.Meta) (store.Meta, error) {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	if s.saveErr != nil {
		return store.Meta{}, s.saveErr
	}
	return s.MemoryStorage.Save(ctx, ref, data, meta)
}

func editView(rowID uint32) crudkit.View {
	return crudkit.EditViewOf(id.ID{id.NewField("id", id.U32(rowID))})
}

func TestStoreSaveIsIdempotent(t *testing.T) {
	storage := &countingStorage{MemoryStorage: store.NewMemoryStorage()}
	views := store.NewViewsStore(context.Background(), storage)

	notified := 0
	views.Subscribe(func(map[string]crudkit.View) { notified++ })

	ctx := context.Background()
	if !views.Save(ctx, "people-admin", editView(7)) {
		t.Fatalf("first save should change the store")
	}
	if views.Save(ctx, "people-admin", editView(7)) {
		t.Fatalf("identical save should not change the store")
	}
	if notified != 1 || storage.saves != 1 {
		t.Fatalf("expected one notification and one persist, got %d and %d", notified, storage.saves)
	}

	views.Save(ctx, "people-admin", crudkit.ListView())
	if notified != 2 || storage.saves != 2 {
		t.Fatalf("a different value must persist and notify, got %d and %d", notified, storage.saves)
	}
}

func TestStoreGetIsPure(t *testing.T) {
	storage := &countingStorage{MemoryStorage: store.NewMemoryStorage()}
	views := store.NewViewsStore(context.Background(), storage)

	if _, ok := views.Get("missing"); ok {
		t.Fatalf("expected no value for missing instance")
	}
	views.Save(context.Background(), "people-admin", editView(7))

	got, ok := views.Get("people-admin")
	if !ok || !got.Equal(editView(7)) {
		t.Fatalf("expected edit view, got %v", got)
	}
	got.ID = nil
	again, _ := views.Get("people-admin")
	if len(again.ID) == 0 {
		t.Fatalf("mutating a returned value leaked into the store")
	}
	if storage.saves != 1 {
		t.Fatalf("reads must not persist, got %d saves", storage.saves)
	}
}

func TestStoreRestoresFromStorage(t *testing.T) {
	raw, err := os.ReadFile("testdata/views_store.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	storage := store.NewMemoryStorage()
	if err := storage.Put(viewsRef, raw); err != nil {
		t.Fatalf("put: %v", err)
	}

	views := store.NewViewsStore(context.Background(), storage)
	snapshot := views.Snapshot()
	if len(snapshot) != 2 || snapshot["orders"].Kind != crudkit.ViewCreate {
		t.Fatalf("unexpected restored snapshot %+v", snapshot)
	}
}

func TestStoreRestoreFailureStartsEmpty(t *testing.T) {
	cases := map[string]func(*store.MemoryStorage) store.Storage{
		"load error": func(m *store.MemoryStorage) store.Storage {
			return &countingStorage{MemoryStorage: m, loadErr: errors.New("disk gone")}
		},
		"corrupt snapshot": func(m *store.MemoryStorage) store.Storage {
			_ = m.Put(viewsRef, []byte(`{"instances":`))
			return m
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			var logs strings.Builder
			reg := prometheus.NewRegistry()
			collector := metrics.NewWithRegistry(reg)

			views := store.NewViewsStore(context.Background(), build(store.NewMemoryStorage()),
				store.WithLogger[crudkit.View](zerolog.New(&logs)),
				store.WithMetrics[crudkit.View](collector))

			if len(views.Snapshot()) != 0 {
				t.Fatalf("expected empty store")
			}
			if !strings.Contains(logs.String(), "unable to restore store") {
				t.Fatalf("expected restore failure to be logged, got %q", logs.String())
			}
			if got := testutil.ToFloat64(collector.StoreRestoreErrors.WithLabelValues(store.ViewsStoreKey)); got != 1 {
				t.Fatalf("expected one restore error, got %v", got)
			}
			if !views.Save(context.Background(), "people-admin", crudkit.ListView()) {
				t.Fatalf("store should keep working after a failed restore")
			}
		})
	}
}

func TestStorePersistFailureKeepsValue(t *testing.T) {
	storage := &countingStorage{MemoryStorage: store.NewMemoryStorage(), saveErr: errors.New("quota exceeded")}
	reg := prometheus.NewRegistry()
	collector := metrics.NewWithRegistry(reg)
	views := store.NewViewsStore(context.Background(), storage, store.WithMetrics[crudkit.View](collector))

	views.Save(context.Background(), "people-admin", crudkit.CreateView())
	if got, ok := views.Get("people-admin"); !ok || got.Kind != crudkit.ViewCreate {
		t.Fatalf("expected in-memory value to stand, got %v", got)
	}
	if got := testutil.ToFloat64(collector.StorePersistErrors.WithLabelValues(store.ViewsStoreKey)); got != 1 {
		t.Fatalf("expected one persist error, got %v", got)
	}
}

func TestStoreReloadAppliesExternalWrites(t *testing.T) {
	storage := store.NewMemoryStorage()
	views := store.NewViewsStore(context.Background(), storage)
	views.Save(context.Background(), "people-admin", crudkit.ListView())

	notified := 0
	views.Subscribe(func(map[string]crudkit.View) { notified++ })

	changed, err := views.Reload(context.Background())
	if err != nil || changed || notified != 0 {
		t.Fatalf("reloading our own write must be a no-op, changed=%v err=%v", changed, err)
	}

	if err := storage.Put(viewsRef, []byte(`{"instances":{"people-admin":{"kind":"Create"}}}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	changed, err = views.Reload(context.Background())
	if err != nil || !changed || notified != 1 {
		t.Fatalf("expected external change applied, changed=%v notified=%d err=%v", changed, notified, err)
	}
	if got, _ := views.Get("people-admin"); got.Kind != crudkit.ViewCreate {
		t.Fatalf("expected create view, got %v", got)
	}
}

func TestStoreUnsubscribe(t *testing.T) {
	views := store.NewViewsStore(context.Background(), store.NewMemoryStorage())
	notified := 0
	cancel := views.Subscribe(func(map[string]crudkit.View) { notified++ })
	cancel()
	views.Save(context.Background(), "a", crudkit.ListView())
	if notified != 0 {
		t.Fatalf("unsubscribed callback fired")
	}
}

func TestStoreEmitsActivityAndMetrics(t *testing.T) {
	capture := &activity.Recorder{}
	emitter := activity.NewEmitter(activity.Config{Enabled: true}, capture)
	reg := prometheus.NewRegistry()
	collector := metrics.NewWithRegistry(reg)

	instances := store.NewInstanceStore(context.Background(), store.NewMemoryStorage(),
		store.WithActivity[crudkit.InstanceConfig](emitter),
		store.WithMetrics[crudkit.InstanceConfig](collector))

	cfg := crudkit.InstanceConfig{APIBaseURL: "http://localhost:8080/api", ResourceName: "people"}
	instances.Save(context.Background(), "people-admin", cfg)
	instances.Save(context.Background(), "people-admin", cfg)

	events := capture.Events()
	if len(events) != 1 {
		t.Fatalf("expected one store.saved event, got %d", len(events))
	}
	event := events[0]
	if event.Verb != activity.VerbStoreSaved || event.EntityID != "people-admin" || event.Resource != "store."+store.InstanceStoreKey {
		t.Fatalf("unexpected event %+v", event)
	}
	if got := testutil.ToFloat64(collector.StoreWrites.WithLabelValues(store.InstanceStoreKey, "true")); got != 1 {
		t.Fatalf("expected one changing write, got %v", got)
	}
	if got := testutil.ToFloat64(collector.StoreWrites.WithLabelValues(store.InstanceStoreKey, "false")); got != 1 {
		t.Fatalf("expected one unchanged write, got %v", got)
	}
}

func TestResolveInstanceLayersPersistedOverStatic(t *testing.T) {
	instances := store.NewInstanceStore(context.Background(), store.NewMemoryStorage())
	static := crudkit.InstanceConfig{APIBaseURL: "http://localhost:8080/api", ResourceName: "people", ItemsPerPage: 20}

	if got := store.ResolveInstance(instances, "people-admin", static); got.ResourceName != "people" || got.ItemsPerPage != 20 {
		t.Fatalf("expected static config, got %+v", got)
	}

	instances.Save(context.Background(), "people-admin", crudkit.InstanceConfig{Page: 3, View: crudkit.CreateView()})
	got := store.ResolveInstance(instances, "people-admin", static)
	if got.Page != 3 || got.View.Kind != crudkit.ViewCreate || got.APIBaseURL != static.APIBaseURL || got.ItemsPerPage != 20 {
		t.Fatalf("expected persisted values over static ones, got %+v", got)
	}
}

func TestFileStorageWatchFeedsStore(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views := store.NewViewsStore(ctx, store.NewFileStorage(dir))
	changes := make(chan map[string]crudkit.View, 4)
	views.Subscribe(func(m map[string]crudkit.View) { changes <- m })

	done := make(chan error, 1)
	go func() { done <- views.Listen(ctx, store.NewFileStorage(dir)) }()
	time.Sleep(100 * time.Millisecond)

	other := store.NewViewsStore(ctx, store.NewFileStorage(dir))
	other.Save(ctx, "orders", crudkit.CreateView())

	select {
	case m := <-changes:
		if m["orders"].Kind != crudkit.ViewCreate {
			t.Fatalf("unexpected change %+v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the external write")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("listen: %v", err)
	}
}

func TestResolveInstanceWithTrace(t *testing.T) {
	storage := store.NewFileStorage(t.TempDir())
	instances := store.NewInstanceStore(context.Background(), storage)
	static := crudkit.InstanceConfig{APIBaseURL: "http://localhost:8080/api", ResourceName: "people"}
	instances.Save(context.Background(), "people-admin", crudkit.InstanceConfig{Page: 2})

	resolved, traces, err := store.ResolveInstanceWithTrace(instances, "people-admin", static)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if resolved.Page != 2 || resolved.ResourceName != "people" {
		t.Fatalf("unexpected resolved config %+v", resolved)
	}

	sources := map[string]string{}
	for _, trace := range traces {
		sources[trace.Path] = trace.Source()
	}
	want := map[string]string{
		"page":           store.LayerPersisted,
		"resource_name":  store.LayerStatic,
		"api_base_url":   store.LayerStatic,
		"items_per_page": store.LayerDefault,
		"view":           store.LayerDefault,
	}
	for path, layer := range want {
		if sources[path] != layer {
			t.Fatalf("%s: expected source %s, got %q (all %v)", path, layer, sources[path], sources)
		}
	}

	for _, trace := range traces {
		if trace.Path != "page" {
			continue
		}
		if trace.Layers[0].SnapshotID == "" || trace.Layers[0].SnapshotID != instances.SnapshotID() {
			t.Fatalf("expected persisted snapshot id, got %+v", trace.Layers[0])
		}
		raw, err := trace.ToJSON()
		if err != nil {
			t.Fatalf("to json: %v", err)
		}
		back, err := store.TraceFromJSON(raw)
		if err != nil || back.Path != "page" || back.Source() != store.LayerPersisted {
			t.Fatalf("unexpected decoded trace %+v err=%v", back, err)
		}
	}
}
