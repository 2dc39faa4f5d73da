package voice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/config"
	"github.com/julianstephens/daybell/internal/memos"
	"github.com/julianstephens/daybell/internal/recorder"
	"github.com/julianstephens/daybell/internal/storage/memory"
)

type bytesSource struct{ data string }

func (s bytesSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.data)), nil
}

func newContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &cli.Context{
		Config: config.Default(),
		Store:  memory.New(),
		Out:    out,
	}, out
}

func stubCapture(t *testing.T, src recorder.Source, err error) {
	t.Helper()
	orig, origIn := captureSource, stdin
	t.Cleanup(func() { captureSource, stdin = orig, origIn })
	captureSource = func(string) (recorder.Source, error) { return src, err }
}

func TestMemoRecordWithDuration(t *testing.T) {
	ctx, out := newContext(t)
	stubCapture(t, bytesSource{data: "OPUS"}, nil)

	if err := (&MemoRecordCmd{Duration: 10 * time.Millisecond}).Run(ctx); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !strings.Contains(out.String(), "Saved memo") {
		t.Errorf("output = %q", out.String())
	}

	list := ctx.Memos().List()
	if len(list) != 1 {
		t.Fatalf("memos = %d", len(list))
	}
	_, data, err := ctx.Memos().Audio(list[0].ID)
	if err != nil || string(data) != "OPUS" {
		t.Errorf("audio = %q, %v", data, err)
	}
}

func TestMemoRecordStopsOnEnter(t *testing.T) {
	ctx, _ := newContext(t)
	stubCapture(t, bytesSource{data: "OPUS"}, nil)
	stdin = strings.NewReader("\n")

	if err := (&MemoRecordCmd{}).Run(ctx); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(ctx.Memos().List()) != 1 {
		t.Fatal("expected one memo")
	}
}

func TestMemoRecordEmptyAndUnavailable(t *testing.T) {
	ctx, _ := newContext(t)

	stubCapture(t, bytesSource{}, nil)
	err := (&MemoRecordCmd{Duration: time.Millisecond}).Run(ctx)
	if !errors.Is(err, recorder.ErrEmptyRecording) {
		t.Errorf("empty recording = %v", err)
	}

	stubCapture(t, nil, recorder.ErrCaptureUnavailable)
	err = (&MemoRecordCmd{Duration: time.Millisecond}).Run(ctx)
	if !errors.Is(err, recorder.ErrCaptureUnavailable) {
		t.Errorf("unavailable = %v", err)
	}
	if len(ctx.Memos().List()) != 0 {
		t.Error("failed recordings must not create memos")
	}
}

func addMemo(t *testing.T, ctx *cli.Context, at time.Time, data string) string {
	t.Helper()
	m, err := memos.NewMemo(at, 5*time.Second, "audio/webm", []byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.Memos().Add(m); err != nil {
		t.Fatal(err)
	}
	return m.ID
}

func TestMemoListDeleteExport(t *testing.T) {
	ctx, out := newContext(t)

	if err := (&MemoListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No voice memos") {
		t.Errorf("empty list output = %q", out.String())
	}

	first := addMemo(t, ctx, time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local), "one")
	second := addMemo(t, ctx, time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local), "two")

	out.Reset()
	if err := (&MemoListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if strings.Index(out.String(), second) > strings.Index(out.String(), first) {
		t.Errorf("memos should list newest first:\n%s", out.String())
	}

	path := filepath.Join(t.TempDir(), "memo.webm")
	if err := (&MemoExportCmd{ID: first, Output: path}).Run(ctx); err != nil {
		t.Fatalf("export: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "one" {
		t.Errorf("exported = %q", data)
	}
	if err := (&MemoExportCmd{ID: first, Output: path}).Run(ctx); err == nil {
		t.Error("export must not overwrite an existing file")
	}

	if err := (&MemoDeleteCmd{ID: first}).Run(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := (&MemoDeleteCmd{ID: first}).Run(ctx); !errors.Is(err, memos.ErrMemoNotFound) {
		t.Errorf("second delete = %v", err)
	}
	if len(ctx.Memos().List()) != 1 {
		t.Error("expected one memo left")
	}
}
