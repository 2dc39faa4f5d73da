package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/speech"
)

type tickMsg time.Time

type spokenMsg struct {
	err error
}

func tick() tea.Cmd {
	return tea.Tick(constants.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listen delivers the next message sent by a background goroutine.
func listen(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

// bannerSurface is the alarm overlay. Only the update loop touches it.
type bannerSurface struct {
	alarm *models.Alarm
}

func (b *bannerSurface) ShowAlarm(a models.Alarm) {
	b.alarm = &a
}

func (b *bannerSurface) DismissAlarm() {
	b.alarm = nil
}

func (b *bannerSurface) active() bool {
	return b.alarm != nil
}

func (m Model) handleTick() (Model, tea.Cmd) {
	now := m.now()
	if today := models.DateOf(now); today != m.month.Today {
		m.month.Today = today
	}
	// The reconciler reloads the calendar, which may hold edits made by
	// other daybell processes.
	m.rec.Tick()
	m.refreshCalendar()
	if m.recorder != nil {
		m.memoList.SetRecording(true, m.recorder.Elapsed())
	}
	return m, tick()
}

// speakCmd reads the schedule of d in the background.
func (m Model) speakCmd(d models.Date, startup bool) tea.Cmd {
	if m.speaker == nil {
		return nil
	}
	s := m.speaker
	text := speech.Briefing(m.cfg.Language, d, m.cal.EventsOn(d), startup)
	return func() tea.Msg {
		logger.Debug("Speaking briefing", "date", d, "startup", startup)
		return spokenMsg{err: s.Speak(context.Background(), text)}
	}
}
