package system

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/daybell/internal/alarm"
	"github.com/julianstephens/daybell/internal/audio"
	"github.com/julianstephens/daybell/internal/calendar"
	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/notifier"
	"github.com/julianstephens/daybell/internal/speech"
)

type speaker interface {
	speech.Speaker
	Available() error
}

// newSpeaker and trayAvailable are swapped in tests.
var (
	newSpeaker = func(command, lang string) speaker {
		return speech.NewCommandSpeaker(command, lang)
	}
	trayAvailable = func(n *notifier.Notifier) error { return n.Available() }
)

// surfaces shows alarms on the terminal and in the log, and forwards them
// to the tray app when enabled.
func surfaces(ctx *cli.Context) alarm.Surface {
	s := alarm.MultiSurface{alarm.ConsoleSurface{W: ctx.Stdout()}, alarm.LogSurface{}}
	return append(s, tray(ctx)...)
}

func tray(ctx *cli.Context) []alarm.Surface {
	if !ctx.Config.Alarm.Tray {
		return nil
	}
	n := notifier.New()
	if err := trayAvailable(n); err != nil {
		logger.Warn("Tray notifications enabled but unavailable", "error", err)
	}
	return []alarm.Surface{n}
}

// cue loops the configured sound and falls back to the terminal bell.
func cue(ctx *cli.Context, w io.Writer) alarm.Cue {
	return audio.FallbackCue{
		Primary:   audio.NewLoopPlayer(ctx.Config.Alarm.Player, ctx.Config.Alarm.SoundURL),
		Secondary: audio.Bell{W: w},
	}
}

func reconciler(ctx *cli.Context, c alarm.Cue) *alarm.Reconciler {
	return alarm.New(calendar.Shared{Store: ctx.Calendar()}, surfaces(ctx),
		alarm.WithClock(alarm.ClockFunc(ctx.Clock)),
		alarm.WithCue(c),
	)
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// TickCmd runs a single alarm check, for use from cron or a systemd timer.
type TickCmd struct{}

func (c *TickCmd) Run(ctx *cli.Context) error {
	rec := reconciler(ctx, audio.Bell{W: ctx.Stdout()})
	if _, ok := rec.Tick(); !ok {
		logger.Debug("No alarm due", "at", ctx.Clock().Format(constants.TimeFormat))
	}
	return ctx.Calendar().LastSaveError()
}

// WatchCmd keeps checking for due events until interrupted.
type WatchCmd struct {
	Interval time.Duration `help:"How often to check for due events." default:"1s"`
	Ring     time.Duration `help:"How long an alarm rings before it is dismissed. 0 rings until exit." default:"60s"`
	Quiet    bool          `help:"Do not play the alarm sound."`
}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	if err := alarm.ValidateSpec(ctx.Config.Alarm.BriefingCron); err != nil {
		return err
	}

	var sound alarm.Cue = cue(ctx, ctx.Stdout())
	if c.Quiet {
		sound = alarm.NopCue{}
	}
	rec := reconciler(ctx, sound)

	runner := alarm.NewRunner(rec, c.Interval).WithAutoDismiss(c.Ring)
	if spec := ctx.Config.Alarm.BriefingCron; spec != "" {
		runner.WithBriefing(spec, func(runCtx context.Context) {
			if err := speakDay(runCtx, ctx, ctx.Today(), false); err != nil {
				logger.Warn("Scheduled briefing failed", "error", err)
			}
		})
	}

	sigCtx, stop := interruptContext()
	defer stop()
	ctx.Printf("Watching for alarms (Ctrl+C to stop)...\n")
	return runner.Run(sigCtx)
}
