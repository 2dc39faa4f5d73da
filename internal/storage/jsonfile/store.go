// Package jsonfile keeps every key in a single JSON document on disk.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/julianstephens/daybell/internal/storage"
)

const documentVersion = 1

type document struct {
	Version int                        `json:"version"`
	Keys    map[string]json.RawMessage `json:"keys"`
}

type Store struct {
	path string

	mu  sync.Mutex
	doc *document
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Init() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("%w at %s", storage.ErrAlreadyExists, s.path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = &document{Version: documentVersion, Keys: map[string]json.RawMessage{}}
	return s.save()
}

func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.ErrNotInitialized
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	if doc.Version > documentVersion {
		return fmt.Errorf("storage version (%d) is newer than supported version (%d) - please upgrade daybell", doc.Version, documentVersion)
	}
	if doc.Keys == nil {
		doc.Keys = map[string]json.RawMessage{}
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, storage.ErrNotInitialized
	}
	v, ok := s.doc.Keys[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put only accepts JSON values since they are embedded in the document.
func (s *Store) Put(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("%w: %s", storage.ErrInvalidDocument, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return storage.ErrNotInitialized
	}
	prev, had := s.doc.Keys[key]
	s.doc.Keys[key] = append(json.RawMessage(nil), value...)
	if err := s.save(); err != nil {
		if had {
			s.doc.Keys[key] = prev
		} else {
			delete(s.doc.Keys, key)
		}
		return err
	}
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return storage.ErrNotInitialized
	}
	if _, ok := s.doc.Keys[key]; !ok {
		return nil
	}
	delete(s.doc.Keys, key)
	return s.save()
}

func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, storage.ErrNotInitialized
	}
	keys := make([]string, 0, len(s.doc.Keys))
	for k := range s.doc.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// save writes the document through a temp file so a crash never leaves a
// truncated store behind. Callers hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".daybell-*.json")
	if err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}
