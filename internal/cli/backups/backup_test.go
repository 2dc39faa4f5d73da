package backups

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/daybell/internal/backup"
	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/storage/memory"
	"github.com/julianstephens/daybell/internal/storage/sqlite"
)

func setup(t *testing.T) (*cli.Context, *bytes.Buffer, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "daybell.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	out := &bytes.Buffer{}
	return &cli.Context{Store: store, Out: out}, out, dbPath
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, out, _ := setup(t)

	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No backups found.") {
		t.Errorf("output = %q", out.String())
	}

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Available backups (1 total") {
		t.Errorf("output = %q", out.String())
	}
}

func TestBackupRestoreByName(t *testing.T) {
	ctx, out, dbPath := setup(t)
	day, _ := models.ParseDate("2024-05-01")
	nine, _ := models.ParseTimeOfDay("09:00")
	if _, err := ctx.Calendar().Add(day, nine, "Standup"); err != nil {
		t.Fatal(err)
	}

	path, err := backup.NewManager(dbPath).CreateBackup()
	if err != nil {
		t.Fatal(err)
	}

	// Declined prompt leaves everything alone.
	stdin = strings.NewReader("n\n")
	t.Cleanup(func() { stdin = strings.NewReader("") })
	if err := (&BackupRestoreCmd{BackupFile: filepath.Base(path)}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Restore cancelled.") {
		t.Errorf("output = %q", out.String())
	}

	if err := (&BackupRestoreCmd{BackupFile: filepath.Base(path), Yes: true}).Run(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}

	reopened := sqlite.NewStore(dbPath)
	if err := reopened.Load(); err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	restored := &cli.Context{Store: reopened}
	if got := restored.Calendar().EventsOn(day); len(got) != 1 || got[0].Text != "Standup" {
		t.Fatalf("restored events = %+v", got)
	}
}

func TestBackupRestoreMissingFile(t *testing.T) {
	ctx, _, _ := setup(t)
	err := (&BackupRestoreCmd{BackupFile: "daybell-19700101-000000.db", Yes: true}).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("Run = %v", err)
	}
}

func TestBackupUnsupportedStore(t *testing.T) {
	ctx := &cli.Context{Store: memory.New(), Out: &bytes.Buffer{}, Now: time.Now}
	if err := (&BackupCreateCmd{}).Run(ctx); err == nil {
		t.Fatal("expected error for in-memory store")
	}
}
