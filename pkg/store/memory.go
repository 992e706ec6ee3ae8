package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps snapshots in process. It backs tests and the session
// area.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	data []byte
	meta Meta
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: map[string]memoryRecord{}}
}

func (s *MemoryStorage) Load(_ context.Context, ref Ref) ([]byte, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return append([]byte(nil), record.data...), record.meta, true, nil
}

func (s *MemoryStorage) Save(_ context.Context, ref Ref, data []byte, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	saved := stamp(meta, data, time.Now())
	s.mu.Lock()
	s.records[key] = memoryRecord{data: append([]byte(nil), data...), meta: saved}
	s.mu.Unlock()
	return saved, nil
}

// Put writes raw data, bypassing any store. Tests use it to simulate other
// writers.
func (s *MemoryStorage) Put(ref Ref, data []byte) error {
	_, err := s.Save(context.Background(), ref, data, Meta{})
	return err
}
