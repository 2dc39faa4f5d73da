package events

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/daybell/internal/calendar"
	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/storage/memory"
)

func newContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	return &cli.Context{
		Store: memory.New(),
		Out:   out,
		Now:   func() time.Time { return now },
	}, out
}

func TestEventAddAndList(t *testing.T) {
	ctx, out := newContext(t)

	adds := []EventAddCmd{
		{Time: "10:00", Text: []string{"Dentist"}, Date: "today"},
		{Time: "08:00", Text: []string{"Walk", "the", "dog"}, Date: "2024-05-01"},
		{Time: "09:30", Text: []string{"Call"}, Date: "tomorrow"},
	}
	for _, cmd := range adds {
		if err := cmd.Run(ctx); err != nil {
			t.Fatalf("add %v: %v", cmd, err)
		}
	}

	out.Reset()
	if err := (&EventListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "2024-05-01 (Wednesday)") {
		t.Errorf("missing header:\n%s", got)
	}
	walk := strings.Index(got, "08:00  Walk the dog")
	dentist := strings.Index(got, "10:00  Dentist")
	if walk < 0 || dentist < 0 || walk > dentist {
		t.Errorf("events out of order:\n%s", got)
	}
	if strings.Contains(got, "Call") {
		t.Errorf("tomorrow's event listed under today:\n%s", got)
	}

	out.Reset()
	if err := (&EventListCmd{All: true}).Run(ctx); err != nil {
		t.Fatalf("list --all: %v", err)
	}
	if !strings.Contains(out.String(), "2024-05-02") || !strings.Contains(out.String(), "09:30  Call") {
		t.Errorf("list --all:\n%s", out.String())
	}
}

func TestEventAddRejectsBadInput(t *testing.T) {
	ctx, _ := newContext(t)

	tests := []struct {
		name string
		cmd  EventAddCmd
		want error
	}{
		{"blank text", EventAddCmd{Time: "09:00", Text: []string{"  "}}, models.ErrEmptyText},
		{"bad time", EventAddCmd{Time: "25:00", Text: []string{"x"}}, nil},
		{"off slot", EventAddCmd{Time: "09:15", Text: []string{"x"}}, models.ErrOffSlot},
		{"unpadded hour", EventAddCmd{Time: "9:00", Text: []string{"x"}}, nil},
		{"bad date", EventAddCmd{Time: "09:00", Text: []string{"x"}, Date: "soon"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Run(ctx)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(ctx.Calendar().Dates()) != 0 {
		t.Error("rejected input must not create events")
	}
}

func TestEventDelete(t *testing.T) {
	ctx, out := newContext(t)
	d, _ := models.ParseDate("2024-05-01")
	nine, _ := models.ParseTimeOfDay("09:00")
	e, err := ctx.Calendar().Add(d, nine, "Standup")
	if err != nil {
		t.Fatal(err)
	}

	if err := (&EventDeleteCmd{ID: e.ID}).Run(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted 2024-05-01 09:00  Standup") {
		t.Errorf("output = %q", out.String())
	}
	if len(ctx.Calendar().Dates()) != 0 {
		t.Error("date should be removed with its last event")
	}

	err = (&EventDeleteCmd{ID: e.ID}).Run(ctx)
	if !errors.Is(err, calendar.ErrEventNotFound) {
		t.Errorf("second delete = %v", err)
	}
}

func TestEventAddReportsSaveFailure(t *testing.T) {
	ctx, _ := newContext(t)
	ctx.Store.(*memory.Store).SetPutErr(errors.New("disk full"))

	cmd := EventAddCmd{Time: "09:00", Text: []string{"Standup"}}
	if err := cmd.Run(ctx); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Run = %v", err)
	}
}

func TestIcsExportImport(t *testing.T) {
	src, _ := newContext(t)
	for _, cmd := range []EventAddCmd{
		{Time: "09:00", Text: []string{"Standup"}},
		{Time: "14:30", Text: []string{"Review"}, Date: "tomorrow"},
	} {
		if err := cmd.Run(src); err != nil {
			t.Fatal(err)
		}
	}

	file := filepath.Join(t.TempDir(), "daybell.ics")
	if err := (&IcsExportCmd{Output: file}).Run(src); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil || !strings.Contains(string(data), "SUMMARY:Review") {
		t.Fatalf("exported file: %v\n%s", err, data)
	}

	dst, out := newContext(t)
	if err := (&IcsImportCmd{File: file}).Run(dst); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out.String(), "Imported 2 events") {
		t.Errorf("output = %q", out.String())
	}
	if len(dst.Calendar().Dates()) != 2 {
		t.Errorf("dates = %v", dst.Calendar().Dates())
	}

	out.Reset()
	if err := (&IcsImportCmd{File: file}).Run(dst); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if !strings.Contains(out.String(), "Imported 0 events") {
		t.Errorf("re-import should skip known ids: %q", out.String())
	}
}

func TestIcsExportSingleDate(t *testing.T) {
	ctx, out := newContext(t)
	for _, cmd := range []EventAddCmd{
		{Time: "09:00", Text: []string{"Standup"}},
		{Time: "14:30", Text: []string{"Review"}, Date: "tomorrow"},
	} {
		if err := cmd.Run(ctx); err != nil {
			t.Fatal(err)
		}
	}
	out.Reset()
	if err := (&IcsExportCmd{Date: "today"}).Run(ctx); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out.String(), "SUMMARY:Standup") || strings.Contains(out.String(), "SUMMARY:Review") {
		t.Errorf("single-date export:\n%s", out.String())
	}
}
