package events

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/ics"
	"github.com/julianstephens/daybell/internal/models"
)

type IcsExportCmd struct {
	Output string `short:"o" help:"File to write. Defaults to stdout." type:"path"`
	Date   string `help:"Only export this date (YYYY-MM-DD, today, tomorrow)."`
}

func (c *IcsExportCmd) Run(ctx *cli.Context) error {
	book := ctx.Calendar().Book()
	if c.Date != "" {
		d, err := cli.ParseDay(c.Date, ctx.Clock())
		if err != nil {
			return err
		}
		only := models.Book{}
		for _, e := range book.On(d) {
			only.Insert(d, e)
		}
		book = only
	}

	var w io.Writer = ctx.Stdout()
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.Output, err)
		}
		defer f.Close()
		w = f
	}

	if err := ics.Export(w, book, time.Local, ctx.Clock()); err != nil {
		return fmt.Errorf("failed to export calendar: %w", err)
	}
	if c.Output != "" {
		ctx.Printf("✓ Exported calendar to %s\n", c.Output)
	}
	return nil
}

type IcsImportCmd struct {
	File string `arg:"" help:"iCalendar file to import." type:"existingfile"`
}

func (c *IcsImportCmd) Run(ctx *cli.Context) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := ics.Import(f, time.Local)
	if err != nil {
		return err
	}

	cal := ctx.Calendar()
	added, err := cal.Merge(res.Book)
	if err != nil {
		return fmt.Errorf("failed to import events: %w", err)
	}
	if err := cal.LastSaveError(); err != nil {
		return err
	}

	ctx.Printf("✓ Imported %d events", added)
	if res.Skipped > 0 {
		ctx.Printf(" (skipped %d unsupported)", res.Skipped)
	}
	ctx.Printf("\n")
	return nil
}
