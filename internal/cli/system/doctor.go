package system

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/daybell/internal/alarm"
	"github.com/julianstephens/daybell/internal/audio"
	"github.com/julianstephens/daybell/internal/backup"
	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/notifier"
	"github.com/julianstephens/daybell/internal/recorder"
	"github.com/julianstephens/daybell/internal/speech"
	"github.com/julianstephens/daybell/internal/storage"
)

type DoctorCmd struct{}

type check struct {
	name string
	run  func() error
	// warn marks checks whose failure only degrades a feature.
	warn bool
	// store marks checks that need a reachable store.
	store bool
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Printf("Running diagnostics...\n\n")

	checks := []check{
		{name: "Store reachable", run: func() error { return checkStoreReachable(ctx) }},
		{name: "Schema version", run: func() error { return checkSchemaVersion(ctx) }, store: true},
		{name: "Calendar data", run: func() error { return checkCalendarData(ctx) }, store: true},
		{name: "Voice memo data", run: func() error { return checkMemoData(ctx) }, store: true},
		{name: "Backups present", run: func() error { return checkBackupsPresent(ctx) }, warn: true},
		{name: "Clock/timezone", run: func() error { return checkClockTimezone(ctx.Clock()) }},
		{name: "Briefing schedule", run: func() error { return alarm.ValidateSpec(ctx.Config.Alarm.BriefingCron) }},
		{name: "Alarm sound player", run: audio.NewPlayer(ctx.Config.Alarm.Player).Available, warn: true},
		{name: "Memo recorder", run: recorder.NewCommandSource(ctx.Config.Recorder.Command).Available, warn: true},
		{name: "Dictation", run: func() error { return checkDictation(ctx) }, warn: true},
		{name: "Speech output", run: newSpeaker(ctx.Config.Speech.TTSCommand, ctx.Config.Language).Available, warn: true},
	}
	if ctx.Config.Alarm.Tray {
		checks = append(checks, check{name: "Tray app", run: func() error { return trayAvailable(notifier.New()) }, warn: true})
	}

	hasError := false
	storeOK := true
	for i, c := range checks {
		if c.store && !storeOK {
			ctx.Printf("⊘ %s: SKIPPED (store not reachable)\n", c.name)
			continue
		}
		err := c.run()
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warn:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
			if i == 0 {
				storeOK = false
			}
		}
	}

	ctx.Printf("\n")
	if hasError {
		ctx.Printf("Diagnostics completed with errors.\n")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Printf("All diagnostics passed!\n")
	return nil
}

func checkStoreReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}
	if p, ok := ctx.Store.(storage.DBProvider); ok {
		db := p.GetDB()
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Store.(storage.Migratable)
	if !ok {
		return nil
	}
	current, latest, err := m.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

// checkCalendarData reports stored events that would be dropped on load.
func checkCalendarData(ctx *cli.Context) error {
	data, err := ctx.Store.Get(constants.EventsKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var book models.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return fmt.Errorf("stored events are unreadable and will be ignored: %w", err)
	}

	ids := map[string]bool{}
	invalid := 0
	for _, events := range book {
		for _, e := range events {
			if e.Validate() != nil {
				invalid++
			}
			if ids[e.ID] {
				return fmt.Errorf("duplicate event ID found: %s", e.ID)
			}
			ids[e.ID] = true
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d invalid events will be dropped on load", invalid)
	}
	return nil
}

func checkMemoData(ctx *cli.Context) error {
	data, err := ctx.Store.Get(constants.MemosKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var list []models.VoiceMemo
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("stored memos are unreadable and will be ignored: %w", err)
	}
	for _, m := range list {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("memo %s: %w", m.ID, err)
		}
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	path := ctx.Store.GetConfigPath()
	if !backup.Supported(path) {
		return errors.New("store is not file-based; back it up with your database tools")
	}
	backups, err := backup.NewManager(path).ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'daybell backup create'")
	}
	return nil
}

func checkClockTimezone(now time.Time) error {
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkDictation(ctx *cli.Context) error {
	if ctx.Config.Speech.Mode == constants.SpeechNone {
		return nil
	}
	_, err := speech.New(ctx.Config)
	return err
}
