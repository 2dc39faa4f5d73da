package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/cli/backups"
	"github.com/julianstephens/daybell/internal/cli/events"
	"github.com/julianstephens/daybell/internal/cli/system"
	"github.com/julianstephens/daybell/internal/cli/voice"
	"github.com/julianstephens/daybell/internal/config"
	"github.com/julianstephens/daybell/internal/constants"
	daybellerrors "github.com/julianstephens/daybell/internal/errors"
	"github.com/julianstephens/daybell/internal/keyring"
	"github.com/julianstephens/daybell/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"${config_file}"`
	Store   string `help:"SQLite path, *.json file or PostgreSQL URL. Overrides the config file." env:"DAYBELL_STORE"`
	Debug   bool   `help:"Enable debug logging to stderr."`
	Now     string `hidden:"" help:"Pin the wall clock to YYYY-MM-DDTHH:MM."`

	Init  system.InitCmd  `cmd:"" help:"Initialize daybell storage."`
	Tui   system.TuiCmd   `cmd:"" help:"Launch the interactive calendar." default:"1"`
	Watch system.WatchCmd `cmd:"" help:"Ring alarms for due events until interrupted."`
	Tick  system.TickCmd  `cmd:"" help:"Check once for a due event."`
	Speak system.SpeakCmd `cmd:"" help:"Read a day's schedule aloud."`
	Event struct {
		Add    events.EventAddCmd    `cmd:"" help:"Add an event."`
		List   events.EventListCmd   `cmd:"" help:"List events on a day."`
		Delete events.EventDeleteCmd `cmd:"" help:"Delete an event."`
	} `cmd:"" help:"Manage calendar events."`
	Memo struct {
		Record voice.MemoRecordCmd `cmd:"" help:"Record a voice memo."`
		List   voice.MemoListCmd   `cmd:"" help:"List voice memos."`
		Play   voice.MemoPlayCmd   `cmd:"" help:"Play a voice memo."`
		Delete voice.MemoDeleteCmd `cmd:"" help:"Delete a voice memo."`
		Export voice.MemoExportCmd `cmd:"" help:"Write a memo's audio to a file."`
	} `cmd:"" help:"Manage voice memos."`
	Ics struct {
		Export events.IcsExportCmd `cmd:"" help:"Export events as iCalendar."`
		Import events.IcsImportCmd `cmd:"" help:"Import events from an iCalendar file."`
	} `cmd:"" help:"Exchange events with other calendars."`
	Doctor system.DoctorCmd `cmd:"" help:"Run diagnostics on storage and devices."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a backup now."`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage store backups."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show a stored secret, masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
		Status system.KeyringStatusCmd `cmd:"" help:"Show keyring availability and stored secrets."`
	} `cmd:"" help:"Manage secrets in the OS keyring."`
	ConfigCmd struct {
		Path system.ConfigPathCmd `cmd:"" help:"Print the config file path."`
		Show system.ConfigShowCmd `cmd:"" help:"Print the effective configuration."`
	} `cmd:"" name:"config" help:"Inspect configuration."`
}

// storeless commands run before or without a loaded store.
var storeless = []string{"init", "keyring", "config"}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Calendar alarm clock with dictation and voice memos"),
		kong.UsageOnError(),
		kong.Vars{
			"version":     constants.Version,
			"config_file": constants.DefaultConfigFile,
		},
	)
	command := ctx.Command()

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		daybellerrors.Fatal(err)
	}
	if CLI.Debug {
		cfg.Debug = true
	}

	// The headless watcher has no screen of its own, so it logs to stderr.
	console := strings.HasPrefix(command, "watch") || strings.HasPrefix(command, "tick")
	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug,
		ConfigDir: config.Dir(CLI.Config),
		Console:   console,
	}); err != nil {
		daybellerrors.Fatal(err)
	}

	if cfg.Speech.APIKey == "" {
		key, err := keyring.GetTranscriptionKey()
		switch {
		case err == nil:
			cfg.Speech.APIKey = key
		case !errors.Is(err, keyring.ErrNotFound):
			logger.Debug("Transcription key lookup failed", "error", err)
		}
	}

	selector := CLI.Store
	if selector == "" {
		selector = cfg.Store
	}
	store, err := cli.OpenBackend(cli.ResolveStore(selector))
	if err != nil {
		daybellerrors.Fatal(err)
	}

	appCtx := &cli.Context{
		Config:     cfg,
		ConfigPath: config.ExpandPath(CLI.Config),
		Store:      store,
	}
	if CLI.Now != "" {
		pinned, err := time.ParseInLocation("2006-01-02T15:04", CLI.Now, time.Local)
		if err != nil {
			daybellerrors.Fatal(fmt.Errorf("invalid --now %q: %w", CLI.Now, err))
		}
		appCtx.Now = func() time.Time { return pinned }
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Debug("Closing store", "error", err)
		}
	}()

	if needsStore(command) {
		if err := appCtx.LoadStore(); err != nil {
			daybellerrors.Fatal(err)
		}
	}

	daybellerrors.Fatal(ctx.Run(appCtx))
}

func needsStore(command string) bool {
	for _, name := range storeless {
		if command == name || strings.HasPrefix(command, name+" ") {
			return false
		}
	}
	return true
}
