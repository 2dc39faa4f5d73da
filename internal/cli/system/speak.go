package system

import (
	"context"

	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/speech"
)

// SpeakCmd reads a day's schedule aloud.
type SpeakCmd struct {
	Date  string `arg:"" optional:"" help:"Date to read (YYYY-MM-DD, today, tomorrow). Defaults to today."`
	Greet bool   `help:"Use the startup greeting."`
	Print bool   `help:"Only print the text."`
}

func (c *SpeakCmd) Run(ctx *cli.Context) error {
	d, err := cli.ParseDay(c.Date, ctx.Clock())
	if err != nil {
		return err
	}
	text := speech.Briefing(ctx.Config.Language, d, ctx.Calendar().EventsOn(d), c.Greet)
	ctx.Printf("%s\n", text)
	if c.Print {
		return nil
	}

	s := newSpeaker(ctx.Config.Speech.TTSCommand, ctx.Config.Language)
	if err := s.Available(); err != nil {
		ctx.Printf("⚠ %v\n", err)
		return nil
	}
	sigCtx, stop := interruptContext()
	defer stop()
	return s.Speak(sigCtx, text)
}

// speakDay reads d aloud without printing, for scheduled briefings.
func speakDay(runCtx context.Context, ctx *cli.Context, d models.Date, startup bool) error {
	s := newSpeaker(ctx.Config.Speech.TTSCommand, ctx.Config.Language)
	if err := s.Available(); err != nil {
		return err
	}
	text := speech.Briefing(ctx.Config.Language, d, ctx.Calendar().EventsOn(d), startup)
	logger.Debug("Speaking briefing", "date", d)
	return s.Speak(runCtx, text)
}
