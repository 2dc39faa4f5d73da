// Package memos stores recorded voice memos, newest first.
package memos

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/storage"
)

var (
	ErrMemoNotFound   = errors.New("memo not found")
	ErrInvalidDataURI = errors.New("invalid data URI")
)

type Library struct {
	backend storage.Backend

	mu          sync.Mutex
	memos       []models.VoiceMemo
	lastSaveErr error
}

// Open loads memos from backend. Missing or corrupt data yields an empty
// library.
func Open(backend storage.Backend) *Library {
	return &Library{
		backend: backend,
		memos:   load(backend),
	}
}

func load(backend storage.Backend) []models.VoiceMemo {
	data, err := backend.Get(constants.MemosKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			logger.Warn("Failed to read voice memos, starting empty", "error", err)
		}
		return nil
	}
	var memos []models.VoiceMemo
	if err := json.Unmarshal(data, &memos); err != nil {
		logger.Warn("Stored voice memos are corrupt, starting empty", "error", err)
		return nil
	}
	return memos
}

func (l *Library) update(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	l.save()
	return nil
}

// save is best-effort. Callers hold l.mu.
func (l *Library) save() {
	memos := l.memos
	if memos == nil {
		memos = []models.VoiceMemo{}
	}
	data, err := json.Marshal(memos)
	if err == nil {
		err = l.backend.Put(constants.MemosKey, data)
	}
	if err != nil {
		logger.Error("Failed to save voice memos", "error", err)
		l.lastSaveErr = fmt.Errorf("save voice memos: %w", err)
		return
	}
	l.lastSaveErr = nil
}

// List returns every memo, newest first.
func (l *Library) List() []models.VoiceMemo {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.VoiceMemo, len(l.memos))
	copy(out, l.memos)
	return out
}

func (l *Library) Get(id string) (models.VoiceMemo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.memos {
		if m.ID == id {
			return m, nil
		}
	}
	return models.VoiceMemo{}, fmt.Errorf("%w: %s", ErrMemoNotFound, id)
}

// Add prepends m.
func (l *Library) Add(m models.VoiceMemo) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return l.update(func() error {
		l.memos = append([]models.VoiceMemo{m}, l.memos...)
		return nil
	})
}

func (l *Library) Delete(id string) error {
	return l.update(func() error {
		for i, m := range l.memos {
			if m.ID == id {
				l.memos = append(l.memos[:i:i], l.memos[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrMemoNotFound, id)
	})
}

// Audio decodes the recording stored with memo id.
func (l *Library) Audio(id string) (string, []byte, error) {
	m, err := l.Get(id)
	if err != nil {
		return "", nil, err
	}
	return DecodeDataURI(m.AudioData)
}

func (l *Library) LastSaveError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSaveErr
}

func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI accepts base64 data URIs only.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURI)
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return mime, data, nil
}
