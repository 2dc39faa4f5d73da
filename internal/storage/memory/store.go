// Package memory is an in-process storage.Backend for tests and dry runs.
package memory

import (
	"sort"
	"sync"

	"github.com/julianstephens/daybell/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	values map[string][]byte

	// PutErr, when set, is returned by every Put.
	PutErr error
	puts   int
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Init() error  { return nil }
func (s *Store) Load() error  { return nil }
func (s *Store) Close() error { return nil }

func (s *Store) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.PutErr != nil {
		return s.PutErr
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) GetConfigPath() string { return ":memory:" }

// Puts counts Put calls, including failed ones.
func (s *Store) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// SetPutErr changes the injected Put failure.
func (s *Store) SetPutErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PutErr = err
}
