package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-crudkit/layering"
	"github.com/goliatone/go-crudkit/pkg/activity"
)

// Store is a persisted map from instance name to V. Reads are pure; every
// Save that changes the map is persisted and announced to subscribers.
type Store[V any] struct {
	ref     Ref
	storage Storage
	cfg     config[V]
	logger  zerolog.Logger

	mu         sync.Mutex
	instances  map[string]V
	etag       string
	snapshotID string
	subs       map[int]func(map[string]V)
	nextSub    int
}

type snapshot[V any] struct {
	Instances map[string]V `json:"instances"`
}

// New restores the store from storage. Restore failures are logged and the
// store starts empty.
func New[V any](ctx context.Context, storage Storage, ref Ref, opts ...Option[V]) *Store[V] {
	cfg := config[V]{logger: zerolog.Nop(), equal: defaultEqual[V]}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	s := &Store[V]{
		ref:       ref,
		storage:   storage,
		cfg:       cfg,
		logger:    cfg.logger.With().Str("store", ref.Key).Str("area", string(ref.Area)).Logger(),
		instances: map[string]V{},
		subs:      map[int]func(map[string]V){},
	}

	instances, meta, err := s.load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("unable to restore store, starting empty")
		s.cfg.metrics.StoreRestoreFailed(ref.Key)
		return s
	}
	s.instances = instances
	s.etag = meta.ETag
	s.snapshotID = meta.SnapshotID
	return s
}

// Name is the storage key of the store.
func (s *Store[V]) Name() string { return s.ref.Key }

// SnapshotID identifies the stored snapshot the map was last restored from
// or persisted to. Storages that do not assign ids leave it empty.
func (s *Store[V]) SnapshotID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotID
}

// Get returns a copy of the value saved under name.
func (s *Store[V]) Get(name string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.instances[name]
	if !ok {
		var zero V
		return zero, false
	}
	return layering.Clone(value), true
}

// Snapshot returns a copy of the whole map.
func (s *Store[V]) Snapshot() map[string]V {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneInstances(s.instances)
}

// Save upserts value under name. It reports whether the map changed; an
// identical write neither persists nor notifies. Persistence failures are
// logged, the in-memory write stands.
func (s *Store[V]) Save(ctx context.Context, name string, value V) bool {
	s.mu.Lock()
	if current, ok := s.instances[name]; ok && s.cfg.equal(current, value) {
		s.mu.Unlock()
		s.cfg.metrics.ObserveStoreWrite(s.ref.Key, false)
		return false
	}
	s.instances[name] = layering.Clone(value)
	s.persist(ctx)
	notify := s.notifications()
	s.mu.Unlock()

	s.cfg.metrics.ObserveStoreWrite(s.ref.Key, true)
	s.emit(ctx, name)
	notify()
	return true
}

// Subscribe registers fn for every change. fn receives a copy of the map and
// runs on the goroutine that made the change. The returned func unsubscribes.
func (s *Store[V]) Subscribe(fn func(map[string]V)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Reload re-reads storage and applies the stored map through the change
// gate. It reports whether the map changed.
func (s *Store[V]) Reload(ctx context.Context) (bool, error) {
	instances, meta, err := s.load(ctx)
	if err != nil {
		s.cfg.metrics.StoreRestoreFailed(s.ref.Key)
		return false, err
	}

	s.mu.Lock()
	if (meta.ETag != "" && meta.ETag == s.etag) || s.sameInstances(instances) {
		s.etag = meta.ETag
		s.snapshotID = meta.SnapshotID
		s.mu.Unlock()
		return false, nil
	}
	s.instances = instances
	s.etag = meta.ETag
	s.snapshotID = meta.SnapshotID
	notify := s.notifications()
	s.mu.Unlock()

	s.logger.Debug().Int("instances", len(instances)).Msg("store reloaded from storage")
	notify()
	return true, nil
}

// Listen follows external writes reported by watcher until ctx is done.
// Writes made by this store come back with a known etag and are ignored.
func (s *Store[V]) Listen(ctx context.Context, watcher Watcher) error {
	return watcher.Watch(ctx, s.ref, func() {
		if _, err := s.Reload(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("unable to apply external store change")
		}
	})
}

func (s *Store[V]) load(ctx context.Context) (map[string]V, Meta, error) {
	data, meta, ok, err := s.storage.Load(ctx, s.ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("store: load %s: %w", s.ref.Key, err)
	}
	if !ok {
		return map[string]V{}, Meta{}, nil
	}
	var snap snapshot[V]
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, Meta{}, fmt.Errorf("store: decode %s: %w", s.ref.Key, err)
	}
	if snap.Instances == nil {
		snap.Instances = map[string]V{}
	}
	if meta.ETag == "" {
		meta.ETag = ETagOf(data)
	}
	return snap.Instances, meta, nil
}

// persist writes the current map. Callers hold mu.
func (s *Store[V]) persist(ctx context.Context) {
	data, err := json.Marshal(snapshot[V]{Instances: s.instances})
	if err != nil {
		s.logger.Error().Err(err).Msg("unable to encode store")
		s.cfg.metrics.StorePersistFailed(s.ref.Key)
		return
	}
	meta, err := s.storage.Save(ctx, s.ref, data, Meta{})
	if err != nil {
		s.logger.Warn().Err(err).Msg("unable to persist store")
		s.cfg.metrics.StorePersistFailed(s.ref.Key)
		return
	}
	s.etag = meta.ETag
	s.snapshotID = meta.SnapshotID
}

// notifications captures the subscribers and a copy of the map. Callers hold
// mu; the returned func runs after it is released.
func (s *Store[V]) notifications() func() {
	if len(s.subs) == 0 {
		return func() {}
	}
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(map[string]V), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	instances := cloneInstances(s.instances)
	return func() {
		for _, fn := range fns {
			fn(cloneInstances(instances))
		}
	}
}

func (s *Store[V]) emit(ctx context.Context, name string) {
	if !s.cfg.emitter.Enabled() {
		return
	}
	if err := s.cfg.emitter.Emit(ctx, activity.StoreSaved(s.ref.Key, name)); err != nil {
		s.logger.Warn().Err(err).Str("instance", name).Msg("activity emission failed")
	}
}

func (s *Store[V]) sameInstances(other map[string]V) bool {
	if len(other) != len(s.instances) {
		return false
	}
	for name, value := range s.instances {
		candidate, ok := other[name]
		if !ok || !s.cfg.equal(value, candidate) {
			return false
		}
	}
	return true
}

func cloneInstances[V any](src map[string]V) map[string]V {
	out := make(map[string]V, len(src))
	for name, value := range src {
		out[name] = layering.Clone(value)
	}
	return out
}

// defaultEqual uses the value's own Equal method when it has one.
func defaultEqual[V any](a, b V) bool {
	if eq, ok := any(a).(interface{ Equal(V) bool }); ok {
		return eq.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}
