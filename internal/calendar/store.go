// Package calendar owns the event book and is the single path through which
// events are changed and persisted.
package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/storage"
)

var ErrEventNotFound = errors.New("event not found")

type Store struct {
	backend storage.Backend

	mu          sync.Mutex
	book        models.Book
	lastSaveErr error
}

// newID is swapped in tests for deterministic ids.
var newID = func() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Open loads the book from backend. Missing or unreadable data yields an
// empty book.
func Open(backend storage.Backend) *Store {
	return &Store{
		backend: backend,
		book:    load(backend),
	}
}

func load(backend storage.Backend) models.Book {
	data, err := backend.Get(constants.EventsKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			logger.Warn("Failed to read calendar events, starting empty", "error", err)
		}
		return models.Book{}
	}

	var book models.Book
	if err := json.Unmarshal(data, &book); err != nil {
		logger.Warn("Stored calendar events are corrupt, starting empty", "error", err)
		return models.Book{}
	}
	if book == nil {
		return models.Book{}
	}

	// Normalize anything written by hand or by an older build.
	normalized := models.Book{}
	for d, events := range book {
		for _, e := range events {
			if err := e.Validate(); err != nil {
				logger.Warn("Dropping invalid stored event", "date", d, "id", e.ID, "error", err)
				continue
			}
			normalized.Insert(d, e)
		}
	}
	return normalized
}

// update applies fn under the lock and persists the result when fn
// succeeds.
func (s *Store) update(fn func(models.Book) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.book); err != nil {
		return err
	}
	s.save()
	return nil
}

// save is best-effort; the in-memory book stays authoritative. Callers
// hold s.mu.
func (s *Store) save() {
	data, err := json.Marshal(s.book)
	if err == nil {
		err = s.backend.Put(constants.EventsKey, data)
	}
	if err != nil {
		logger.Error("Failed to save calendar events", "error", err)
		s.lastSaveErr = fmt.Errorf("save calendar events: %w", err)
		return
	}
	s.lastSaveErr = nil
}

// Add creates an event at t on d. The text is trimmed and must not be
// empty.
func (s *Store) Add(d models.Date, t models.TimeOfDay, text string) (models.Event, error) {
	e := models.Event{
		ID:   newID(),
		Time: t,
		Text: strings.TrimSpace(text),
	}
	if err := e.Validate(); err != nil {
		return models.Event{}, err
	}
	if d.IsZero() {
		return models.Event{}, fmt.Errorf("event date is required")
	}

	err := s.update(func(b models.Book) error {
		b.Insert(d, e)
		return nil
	})
	if err != nil {
		return models.Event{}, err
	}
	logger.Debug("Added event", "date", d, "time", t, "id", e.ID)
	return e, nil
}

func (s *Store) Delete(d models.Date, id string) error {
	return s.update(func(b models.Book) error {
		if !b.Remove(d, id) {
			return fmt.Errorf("%w: %s on %s", ErrEventNotFound, id, d)
		}
		return nil
	})
}

// Merge adds every event whose id is not already in the book and returns
// how many were added.
func (s *Store) Merge(in models.Book) (int, error) {
	added := 0
	err := s.update(func(b models.Book) error {
		for d, events := range in {
			for _, e := range events {
				if err := e.Validate(); err != nil {
					return fmt.Errorf("event %s on %s: %w", e.ID, d, err)
				}
				if _, _, exists := b.Find(e.ID); exists {
					continue
				}
				b.Insert(d, e)
				added++
			}
		}
		return nil
	})
	return added, err
}

// EventsOn returns a copy of the events for d, never nil.
func (s *Store) EventsOn(d models.Date) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.book.On(d)
	if events == nil {
		return []models.Event{}
	}
	return events
}

func (s *Store) Dates() []models.Date {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Dates()
}

// CountsForMonth maps day-of-month to the number of events on that day.
func (s *Store) CountsForMonth(year int, month time.Month) map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int]int)
	for d, events := range s.book {
		if d.Year == year && d.Month == month && len(events) > 0 {
			counts[d.Day] = len(events)
		}
	}
	return counts
}

// FirstDue returns the first event on d at exactly t that has not alerted.
func (s *Store) FirstDue(d models.Date, t models.TimeOfDay) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.book.FirstDue(d, t)
	if i < 0 {
		return models.Event{}, false
	}
	return s.book[d][i], true
}

// MarkAlerted is a no-op for unknown ids and already alerted events.
func (s *Store) MarkAlerted(d models.Date, id string) {
	_ = s.update(func(b models.Book) error {
		for i := range b[d] {
			if b[d][i].ID == id {
				if b[d][i].Alerted {
					return errNoChange
				}
				b[d][i].Alerted = true
				return nil
			}
		}
		return errNoChange
	})
}

var errNoChange = errors.New("no change")

// Reconcile claims the first due event on d at t: it flips alerted and
// persists under one lock so no other caller can fire it again.
func (s *Store) Reconcile(d models.Date, t models.TimeOfDay) (models.Event, bool) {
	var fired models.Event
	err := s.update(func(b models.Book) error {
		i := b.FirstDue(d, t)
		if i < 0 {
			return errNoChange
		}
		b[d][i].Alerted = true
		fired = b[d][i]
		return nil
	})
	return fired, err == nil
}

// Snapshot serializes the book. Date keys come out sorted.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.book)
}

// Book returns a deep copy of every event.
func (s *Store) Book() models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Clone()
}

// Reload picks up edits written to the backend by another process.
// Alerted flags only ever go from false to true, so a flag set here is kept
// even when the backend still says false. While the last save failed the
// in-memory book is ahead of the backend, so it is kept as is and only
// events it has never seen are added.
func (s *Store) Reload() error {
	if err := s.backend.Load(); err != nil {
		return fmt.Errorf("reload calendar events: %w", err)
	}
	fresh := load(s.backend)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSaveErr != nil {
		for d, events := range fresh {
			for _, e := range events {
				if _, _, ok := s.book.Find(e.ID); !ok {
					s.book.Insert(d, e)
				}
			}
		}
		return nil
	}
	for d, events := range fresh {
		for i, e := range events {
			if _, local, ok := s.book.Find(e.ID); ok && local.Alerted && !e.Alerted {
				fresh[d][i].Alerted = true
			}
		}
	}
	s.book = fresh
	return nil
}

// Shared is a Store that reloads before every reconciliation. Long-running
// watchers use it so they neither miss nor overwrite events added by other
// daybell processes.
type Shared struct {
	*Store
}

func (s Shared) Reconcile(d models.Date, t models.TimeOfDay) (models.Event, bool) {
	if err := s.Reload(); err != nil {
		logger.Warn("Using cached calendar events", "error", err)
	}
	return s.Store.Reconcile(d, t)
}

// LastSaveError is the most recent persistence failure, or nil once a save
// succeeds again.
func (s *Store) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaveErr
}
