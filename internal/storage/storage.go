package storage

import (
	"database/sql"
	"errors"
)

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrNotInitialized  = errors.New("storage not initialized, run 'daybell init' first")
	ErrAlreadyExists   = errors.New("storage already initialized")
	ErrInvalidDocument = errors.New("value is not a JSON document")
)

// Backend is a small key-value store holding one JSON blob per key.
type Backend interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Get returns ErrKeyNotFound when nothing is stored under key.
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)

	// Utils
	GetConfigPath() string
}

// DBProvider is implemented by SQL-backed backends.
type DBProvider interface {
	GetDB() *sql.DB
}

// Migratable is implemented by backends with a versioned schema.
type Migratable interface {
	SchemaVersion() (current, latest int, err error)
}
