package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/julianstephens/daybell/internal/audio"
	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/recorder"
)

var (
	// captureSource and stdin are swapped in tests.
	captureSource = func(command string) (recorder.Source, error) {
		src := recorder.NewCommandSource(command)
		if err := src.Available(); err != nil {
			return nil, err
		}
		return src, nil
	}
	stdin io.Reader = os.Stdin
)

type MemoRecordCmd struct {
	Duration time.Duration `short:"d" help:"Stop recording after this long. Without it, press Enter to stop."`
}

func (c *MemoRecordCmd) Run(ctx *cli.Context) error {
	src, err := captureSource(ctx.Config.Recorder.Command)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rec := recorder.New(src, ctx.Config.Recorder.Mime)
	if err := rec.Start(sigCtx); err != nil {
		return err
	}

	if c.Duration > 0 {
		ctx.Printf("● Recording for %s (Ctrl+C to stop early)...\n", c.Duration)
		timer := time.NewTimer(c.Duration)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-sigCtx.Done():
		}
	} else {
		ctx.Printf("● Recording... press Enter to stop\n")
		enter := make(chan struct{})
		go func() {
			_, _ = bufio.NewReader(stdin).ReadString('\n')
			close(enter)
		}()
		select {
		case <-enter:
		case <-sigCtx.Done():
		}
	}

	memo, err := rec.Stop()
	if err != nil {
		return err
	}
	lib := ctx.Memos()
	if err := lib.Add(memo); err != nil {
		return err
	}
	if err := lib.LastSaveError(); err != nil {
		return err
	}
	ctx.Printf("✓ Saved memo %s (%s)\n", memo.ID, memo.DurationStr)
	return nil
}

type MemoListCmd struct{}

func (c *MemoListCmd) Run(ctx *cli.Context) error {
	list := ctx.Memos().List()
	if len(list) == 0 {
		ctx.Printf("No voice memos\n")
		return nil
	}
	ctx.Printf("Voice memos:\n")
	for _, m := range list {
		ctx.Printf("  %s  %s %s  %s\n", m.ID, m.DateStr, m.TimeStr, m.DurationStr)
	}
	return nil
}

type MemoPlayCmd struct {
	ID string `arg:"" help:"Id of the memo to play."`
}

func (c *MemoPlayCmd) Run(ctx *cli.Context) error {
	mimeType, data, err := ctx.Memos().Audio(c.ID)
	if err != nil {
		return err
	}

	finished := make(chan struct{})
	player := audio.NewMemoPlayer(ctx.Config.Alarm.Player)
	player.OnFinish = func(string) { close(finished) }

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := player.Toggle(c.ID, mimeType, data); err != nil {
		return err
	}
	ctx.Printf("▶ Playing %s (Ctrl+C to stop)\n", c.ID)
	select {
	case <-finished:
	case <-sigCtx.Done():
		player.Stop()
	}
	return nil
}

type MemoDeleteCmd struct {
	ID string `arg:"" help:"Id of the memo to delete."`
}

func (c *MemoDeleteCmd) Run(ctx *cli.Context) error {
	lib := ctx.Memos()
	if err := lib.Delete(c.ID); err != nil {
		return err
	}
	if err := lib.LastSaveError(); err != nil {
		return err
	}
	ctx.Printf("✓ Deleted memo %s\n", c.ID)
	return nil
}

type MemoExportCmd struct {
	ID     string `arg:"" help:"Id of the memo to export."`
	Output string `short:"o" help:"File to write. Defaults to daybell-<id> with an extension for the audio type." type:"path"`
}

func (c *MemoExportCmd) Run(ctx *cli.Context) error {
	mimeType, data, err := ctx.Memos().Audio(c.ID)
	if err != nil {
		return err
	}

	path := c.Output
	if path == "" {
		ext := ".webm"
		if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
			ext = exts[0]
		}
		path = "daybell-" + c.ID + ext
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write memo audio: %w", err)
	}
	ctx.Printf("✓ Exported memo %s to %s\n", c.ID, filepath.Clean(path))
	return nil
}
