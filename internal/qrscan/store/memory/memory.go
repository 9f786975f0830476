package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/store"
)

// Store is an in-process KVStore.  It is used by tests and by the CLI's
// --ephemeral mode, where nothing should touch disk.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte

	// failWrites makes Put/Delete return the configured error.  Test-only.
	failWrites error
	writes     int
}

func New() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites != nil {
		return s.failWrites
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	s.writes++
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites != nil {
		return s.failWrites
	}
	delete(s.data, key)
	s.writes++
	return nil
}

// FailWrites makes subsequent writes fail with err; nil restores normal
// behaviour.  Test-only helper.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

// Writes returns the number of successful writes.  Test-only helper.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
