package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/tui/components/daylist"
	"github.com/julianstephens/daybell/internal/tui/components/month"
)

const tabCount = 3

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.month.SetSize(msg.Width-4, msg.Height-6)
		m.day.SetSize(msg.Width-4, msg.Height-6)
		m.memoList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tickMsg:
		return m.handleTick()

	case spokenMsg:
		if msg.err != nil {
			logger.Warn("Read-back failed", "error", msg.err)
			m.status = fmt.Sprintf("Read-back failed: %v", msg.err)
		}
		return m, nil

	case partialMsg, finalMsg, dictationStoppedMsg:
		return m.handleDictation(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && (msg.String() == "ctrl+c" || m.state != constants.StateAddEvent) {
			m.shutdown()
			m.quitting = true
			return m, tea.Quit
		}
		if m.banner.active() {
			if key.Matches(msg, m.keys.Dismiss) {
				m.rec.Dismiss()
			}
			return m, nil
		}
	}

	if next, cmd, ok := m.handleMemoMessages(msg); ok {
		return next, cmd
	}

	switch msg := msg.(type) {
	case month.SelectDateMsg:
		m.day.SetEvents(msg.Date, m.cal.EventsOn(msg.Date))
		m.state = constants.StateDay
		return m, nil
	case month.MonthChangedMsg:
		m.month.SetCounts(m.cal.CountsForMonth(msg.Year, msg.Month))
		return m, nil
	case daylist.AddEventMsg:
		return m, m.openAddForm(msg.Date)
	case daylist.DeleteEventMsg:
		d, id := msg.Date, msg.Event.ID
		m.confirm(fmt.Sprintf("Delete %s %s on %s?", msg.Event.Time, msg.Event.Text, d), func() error {
			return m.cal.Delete(d, id)
		})
		return m, nil
	case daylist.SpeakDayMsg:
		if m.speaker == nil {
			m.status = fmt.Sprintf("Read-back unavailable: %v", m.speakerErr)
			return m, nil
		}
		m.speaker.Cancel()
		return m, m.speakCmd(msg.Date, false)
	}

	switch m.state {
	case constants.StateAddEvent:
		return m.handleAddEventState(msg)
	case constants.StateConfirmDelete:
		return m.handleConfirmDeleteState(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(keyMsg, m.keys.Tab):
			m.switchTab((int(m.state) + 1) % tabCount)
			return m, nil
		case key.Matches(keyMsg, m.keys.ShiftTab):
			m.switchTab((int(m.state) - 1 + tabCount) % tabCount)
			return m, nil
		case m.state == constants.StateCalendar && key.Matches(keyMsg, m.keys.Add):
			return m, m.openAddForm(m.month.Cursor)
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case constants.StateCalendar:
		m.month, cmd = m.month.Update(msg)
	case constants.StateDay:
		m.day, cmd = m.day.Update(msg)
	case constants.StateMemos:
		m.memoList, cmd = m.memoList.Update(msg)
	}
	return m, cmd
}

func (m *Model) switchTab(i int) {
	m.state = constants.SessionState(i)
	m.status = ""
	if m.state == constants.StateDay && m.day.Date != m.month.Cursor {
		m.day.SetEvents(m.month.Cursor, m.cal.EventsOn(m.month.Cursor))
		return
	}
	m.refresh()
}

// confirm asks before running action, then returns to the current tab.
func (m *Model) confirm(prompt string, action func() error) {
	m.confirmPrompt = prompt
	m.pendingDelete = action
	m.previousState = m.state
	m.state = constants.StateConfirmDelete
}

func (m Model) handleConfirmDeleteState(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y":
		if m.pendingDelete != nil {
			if err := m.pendingDelete(); err != nil {
				m.status = fmt.Sprintf("Delete failed: %v", err)
			} else {
				m.status = "✓ Deleted"
			}
		}
		m.pendingDelete = nil
		m.state = m.previousState
		m.refresh()
	case "n", "N", "esc":
		m.pendingDelete = nil
		m.state = m.previousState
	}
	return m, nil
}

// shutdown silences everything that may still be running.
func (m *Model) shutdown() {
	if _, ok := m.rec.Active(); ok {
		m.rec.Dismiss()
	}
	if stop := m.abandonDictation(); stop != nil {
		go stop()
	}
	if m.recorder != nil {
		if _, err := m.recorder.Stop(); err != nil {
			logger.Debug("Discarding recording on exit", "error", err)
		}
		m.recorder = nil
	}
	if m.player != nil {
		m.player.Stop()
	}
	if m.speaker != nil {
		m.speaker.Cancel()
	}
}
