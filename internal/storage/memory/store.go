package memory

import (
	"context"
	"sync"

	"github.com/yndnr/sessbox-go/internal/storage"
)

// Store is a map-backed storage.KeyValueStore. Values are copied in and
// out so callers never share buffers with the store.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool

	// Fault injection.
	failSet error
	failGet error
	sets    int
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	if s.failGet != nil {
		return nil, s.failGet
	}
	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a key-value pair.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	if s.failSet != nil {
		return s.failSet
	}
	s.data[key] = append([]byte(nil), value...)
	s.sets++
	return nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	if s.failSet != nil {
		return s.failSet
	}
	delete(s.data, key)
	return nil
}

// Close marks the store closed. Data is kept so tests can inspect it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// FailWrites makes every subsequent Set and Delete return err.
// Pass nil to restore normal operation.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet = err
}

// FailReads makes every subsequent Get return err.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet = err
}

// Raw returns the stored bytes for key, bypassing fault injection.
func (s *Store) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return append([]byte(nil), v...), ok
}

// Writes returns the number of successful Set calls.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets
}

var _ storage.KeyValueStore = (*Store)(nil)
