package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/daybell/internal/calendar"
	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/models"
)

type EventAddCmd struct {
	Time string   `arg:"" help:"Time of the event, on a half-hour slot (HH:00 or HH:30)."`
	Text []string `arg:"" help:"Event text."`
	Date string   `help:"Date of the event (YYYY-MM-DD, today, tomorrow)." default:"today"`
}

func (c *EventAddCmd) Run(ctx *cli.Context) error {
	d, err := cli.ParseDay(c.Date, ctx.Clock())
	if err != nil {
		return err
	}
	t, err := models.ParseTimeOfDay(c.Time)
	if err != nil {
		return err
	}

	cal := ctx.Calendar()
	e, err := cal.Add(d, t, strings.Join(c.Text, " "))
	if err != nil {
		return err
	}
	if err := cal.LastSaveError(); err != nil {
		return err
	}

	ctx.Printf("✓ Added %s %s  %s\n", d, e.Time, e.Text)
	ctx.Printf("  id: %s\n", e.ID)
	return nil
}

type EventListCmd struct {
	Date string `arg:"" optional:"" help:"Date to list (YYYY-MM-DD, today, tomorrow). Defaults to today."`
	All  bool   `help:"List every date with events."`
	IDs  bool   `name:"ids" help:"Show event ids."`
}

func (c *EventListCmd) Run(ctx *cli.Context) error {
	cal := ctx.Calendar()

	var dates []models.Date
	if c.All {
		dates = cal.Dates()
	} else {
		d, err := cli.ParseDay(c.Date, ctx.Clock())
		if err != nil {
			return err
		}
		dates = []models.Date{d}
	}

	if c.All && len(dates) == 0 {
		ctx.Printf("No events found\n")
		return nil
	}

	for i, d := range dates {
		if i > 0 {
			ctx.Printf("\n")
		}
		events := cal.EventsOn(d)
		ctx.Printf("%s (%s)\n", d, d.Weekday())
		if len(events) == 0 {
			ctx.Printf("  No events\n")
			continue
		}
		for _, e := range events {
			mark := " "
			if e.Alerted {
				mark = "✓"
			}
			if c.IDs {
				ctx.Printf("  %s %s  %s  [%s]\n", mark, e.Time, e.Text, e.ID)
			} else {
				ctx.Printf("  %s %s  %s\n", mark, e.Time, e.Text)
			}
		}
	}
	return nil
}

type EventDeleteCmd struct {
	ID string `arg:"" help:"Id of the event to delete."`
}

func (c *EventDeleteCmd) Run(ctx *cli.Context) error {
	cal := ctx.Calendar()
	d, e, ok := cal.Book().Find(c.ID)
	if !ok {
		return fmt.Errorf("%w: %s", calendar.ErrEventNotFound, c.ID)
	}
	if err := cal.Delete(d, c.ID); err != nil {
		if errors.Is(err, calendar.ErrEventNotFound) {
			return fmt.Errorf("event %s was removed concurrently", c.ID)
		}
		return err
	}
	if err := cal.LastSaveError(); err != nil {
		return err
	}
	ctx.Printf("✓ Deleted %s %s  %s\n", d, e.Time, e.Text)
	return nil
}
