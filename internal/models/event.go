package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyText = errors.New("event text cannot be empty")
	ErrOffSlot   = errors.New("event time must be on a half-hour slot (HH:00 or HH:30)")
)

type Event struct {
	ID      string    `json:"id"`
	Time    TimeOfDay `json:"time"`
	Text    string    `json:"text"`
	Alerted bool      `json:"alerted"`
}

func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id cannot be empty")
	}
	if strings.TrimSpace(e.Text) == "" {
		return ErrEmptyText
	}
	if !e.Time.Valid() {
		return fmt.Errorf("event time out of range: %d", int(e.Time))
	}
	if !e.Time.IsSlot() {
		return fmt.Errorf("%w: %s", ErrOffSlot, e.Time)
	}
	return nil
}

// Book partitions events by calendar date. Each day's events are kept
// sorted ascending by time; equal times keep their insertion order.
type Book map[Date][]Event

// On returns a copy of the events stored under d.
func (b Book) On(d Date) []Event {
	events := b[d]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Insert adds e under d and re-sorts that day's list.
func (b Book) Insert(d Date, e Event) {
	events := append(b[d], e)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	b[d] = events
}

// Remove deletes the event with the given id from d. Empty days are dropped.
func (b Book) Remove(d Date, id string) bool {
	events := b[d]
	for i, e := range events {
		if e.ID != id {
			continue
		}
		events = append(events[:i:i], events[i+1:]...)
		if len(events) == 0 {
			delete(b, d)
		} else {
			b[d] = events
		}
		return true
	}
	return false
}

// FirstDue returns the index of the first event on d at t that has not
// alerted yet, or -1. List order decides, not time order.
func (b Book) FirstDue(d Date, t TimeOfDay) int {
	for i, e := range b[d] {
		if e.Time == t && !e.Alerted {
			return i
		}
	}
	return -1
}

// Dates returns every date with at least one event, oldest first.
func (b Book) Dates() []Date {
	dates := make([]Date, 0, len(b))
	for d, events := range b {
		if len(events) > 0 {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Find locates an event by id across all dates.
func (b Book) Find(id string) (Date, Event, bool) {
	for d, events := range b {
		for _, e := range events {
			if e.ID == id {
				return d, e, true
			}
		}
	}
	return Date{}, Event{}, false
}

func (b Book) Clone() Book {
	out := make(Book, len(b))
	for d := range b {
		out[d] = b.On(d)
	}
	return out
}
