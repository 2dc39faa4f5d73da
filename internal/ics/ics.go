// Package ics converts the event book to and from iCalendar.
package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/models"
)

const productID = "-//julianstephens//daybell//EN"

// EventLength is the span given to exported events.
const EventLength = constants.SlotMinutes * time.Minute

// Export renders every event in book as a VEVENT. Times are local to loc.
func Export(w io.Writer, book models.Book, loc *time.Location, now time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(constants.AppName)

	for _, d := range book.Dates() {
		for _, e := range book[d] {
			start := d.At(e.Time, loc)
			ev := cal.AddEvent(e.ID)
			ev.SetDtStampTime(now)
			ev.SetStartAt(start)
			ev.SetEndAt(start.Add(EventLength))
			ev.SetSummary(e.Text)
			if e.Alerted {
				ev.AddProperty(ical.ComponentProperty("X-DAYBELL-ALERTED"), "TRUE")
			}
		}
	}
	return cal.SerializeTo(w)
}

// ImportResult describes what Import read.
type ImportResult struct {
	Book    models.Book
	Skipped int
}

// Import reads VEVENTs from r. All-day events, events without a summary and
// events that do not start on a half-hour slot are skipped; recurring events contribute their first occurrence only.
func Import(r io.Reader, loc *time.Location) (ImportResult, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to parse calendar: %w", err)
	}

	res := ImportResult{Book: models.Book{}}
	for _, ve := range cal.Events() {
		d, e, err := fromVEvent(ve, loc)
		if err != nil {
			logger.Debug("Skipping VEVENT", "error", err)
			res.Skipped++
			continue
		}
		res.Book.Insert(d, e)
	}
	return res, nil
}

var errAllDay = errors.New("all-day event")

func fromVEvent(ve *ical.VEvent, loc *time.Location) (models.Date, models.Event, error) {
	var summary string
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = strings.TrimSpace(p.Value)
	}
	if summary == "" {
		return models.Date{}, models.Event{}, models.ErrEmptyText
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return models.Date{}, models.Event{}, errors.New("missing DTSTART")
	}
	if !strings.Contains(dtStart.Value, "T") {
		return models.Date{}, models.Event{}, errAllDay
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return models.Date{}, models.Event{}, fmt.Errorf("invalid DTSTART: %w", err)
	}
	start = start.In(loc)
	if t := models.TimeOfDayOf(start); !t.IsSlot() {
		return models.Date{}, models.Event{}, fmt.Errorf("%w: %s", models.ErrOffSlot, t)
	}

	id := ""
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		id = strings.TrimSpace(p.Value)
	}
	if id == "" {
		id = uuid.NewString()
	}
	if ve.GetProperty(ical.ComponentPropertyRrule) != nil {
		logger.Warn("Importing only the first occurrence of a recurring event", "uid", id)
	}

	alerted := false
	if p := ve.GetProperty(ical.ComponentProperty("X-DAYBELL-ALERTED")); p != nil {
		alerted = strings.EqualFold(p.Value, "TRUE")
	}

	e := models.Event{
		ID:      id,
		Time:    models.TimeOfDayOf(start),
		Text:    summary,
		Alerted: alerted,
	}
	return models.DateOf(start), e, nil
}
