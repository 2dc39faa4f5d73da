package system

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daybell/internal/alarm"
	"github.com/julianstephens/daybell/internal/audio"
	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/tui"
)

type TuiCmd struct {
	Quiet bool `help:"Do not play the alarm sound."`
}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	// Perform automatic backup on TUI startup (after successful load)
	ctx.PerformAutomaticBackup()

	cfg := ctx.Config
	// The terminal belongs to bubbletea, so the bell fallback stays silent.
	var sound alarm.Cue = cue(ctx, io.Discard)
	if c.Quiet {
		sound = alarm.NopCue{}
	}

	m := tui.NewModel(tui.Options{
		Config:   cfg,
		Calendar: ctx.Calendar(),
		Memos:    ctx.Memos(),
		Now:      ctx.Clock,
		Cue:      sound,
		Surfaces: tray(ctx),
		Speaker:  newSpeaker(cfg.Speech.TTSCommand, cfg.Language),
		Player:   audio.NewMemoPlayer(cfg.Alarm.Player),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	if err := ctx.Calendar().LastSaveError(); err != nil {
		logger.Warn("Some calendar changes were not saved", "error", err)
	}
	return nil
}
