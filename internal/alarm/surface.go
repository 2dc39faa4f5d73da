package alarm

import (
	"fmt"
	"io"

	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/models"
)

// MultiSurface shows every alarm on each of its surfaces.
type MultiSurface []Surface

func (m MultiSurface) ShowAlarm(a models.Alarm) {
	for _, s := range m {
		s.ShowAlarm(a)
	}
}

func (m MultiSurface) DismissAlarm() {
	for _, s := range m {
		s.DismissAlarm()
	}
}

// LogSurface only records alarms in the log.
type LogSurface struct{}

func (LogSurface) ShowAlarm(a models.Alarm) {
	logger.Info("Alarm shown", "time", a.Time, "text", a.Text)
}

func (LogSurface) DismissAlarm() {
	logger.Debug("Alarm dismissed")
}

// ConsoleSurface prints alarms for the headless watcher.
type ConsoleSurface struct {
	W io.Writer
}

func (c ConsoleSurface) ShowAlarm(a models.Alarm) {
	fmt.Fprintf(c.W, "\a⏰ %s  %s\n", a.Time, a.Text)
}

func (c ConsoleSurface) DismissAlarm() {}

// NopCue is silent.
type NopCue struct{}

func (NopCue) Start() error { return nil }
func (NopCue) Stop()        {}
