package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/speech"
)

type partialMsg struct {
	session int
	text    string
}

type finalMsg struct {
	session int
	text    string
}

type dictationStoppedMsg struct {
	session int
	err     error
}

// NewEventForm builds the add-event form. Times are limited to the
// half-hour slots.
func NewEventForm(fm *EventFormModel) *huh.Form {
	slots := models.Slots()
	options := make([]huh.Option[models.TimeOfDay], 0, len(slots))
	for _, s := range slots {
		options = append(options, huh.NewOption(s.String(), s))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("New event on %s", fm.Date)).
				Placeholder("What's happening? (ctrl+r to dictate)").
				Value(&fm.Text).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return models.ErrEmptyText
					}
					return nil
				}),
			huh.NewSelect[models.TimeOfDay]().
				Title("Time").
				Options(options...).
				Height(8).
				Value(&fm.Time),
		),
	).WithShowHelp(false)
}

// defaultSlot is the next half-hour slot on today, 09:00 on other days.
func defaultSlot(d models.Date, now time.Time) models.TimeOfDay {
	nine, _ := models.NewTimeOfDay(9, 0)
	if d != models.DateOf(now) {
		return nine
	}
	next := (int(models.TimeOfDayOf(now))/constants.SlotMinutes + 1) * constants.SlotMinutes
	if next >= 24*60 {
		return models.TimeOfDay(24*60 - constants.SlotMinutes)
	}
	return models.TimeOfDay(next)
}

func (m *Model) openAddForm(d models.Date) tea.Cmd {
	m.eventForm = &EventFormModel{Date: d, Time: defaultSlot(d, m.now())}
	m.form = NewEventForm(m.eventForm)
	m.previousState = m.state
	m.state = constants.StateAddEvent
	m.partial = ""
	m.status = ""
	return m.form.Init()
}

func (m *Model) closeForm() tea.Cmd {
	cmd := m.abandonDictation()
	m.form = nil
	m.eventForm = nil
	m.partial = ""
	m.state = m.previousState
	return cmd
}

func (m Model) handleAddEventState(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Cancel):
			return m, m.closeForm()
		case key.Matches(keyMsg, m.keys.Dictate):
			return m, m.toggleDictation()
		}
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		cmds = append(cmds, m.submitEvent())
	case huh.StateAborted:
		cmds = append(cmds, m.closeForm())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) submitEvent() tea.Cmd {
	fm := *m.eventForm
	e, err := m.cal.Add(fm.Date, fm.Time, fm.Text)
	if err != nil {
		// Keep the user in the form to correct the value
		m.status = fmt.Sprintf("Failed to add event: %v", err)
		m.form = NewEventForm(m.eventForm)
		return m.form.Init()
	}

	cmd := m.closeForm()
	if err := m.cal.LastSaveError(); err != nil {
		m.status = fmt.Sprintf("⚠ Event added but not saved: %v", err)
	} else {
		m.status = fmt.Sprintf("✓ Added %s %s %s", fm.Date, e.Time, e.Text)
	}
	m.month.Cursor = fm.Date
	m.day.SetEvents(fm.Date, m.cal.EventsOn(fm.Date))
	m.refresh()
	return cmd
}

// toggleDictation starts a recognizer for the form text, or stops the
// running one. Final results are appended once the stop completes.
func (m *Model) toggleDictation() tea.Cmd {
	if m.recognizer != nil {
		r := m.recognizer
		m.recognizer = nil
		m.status = "Transcribing..."
		return stopRecognizer(r, m.session)
	}

	r, err := m.newRecognizer()
	if err != nil {
		if !m.dictationWarned {
			m.status = fmt.Sprintf("Dictation unavailable: %v", err)
			m.dictationWarned = true
		}
		logger.Debug("Dictation unavailable", "error", err)
		return nil
	}

	m.session++
	session, ch := m.session, m.async
	r.OnPartial(func(text string) { ch <- partialMsg{session: session, text: text} })
	r.OnFinal(func(text string) { ch <- finalMsg{session: session, text: text} })
	if err := r.Start(context.Background()); err != nil {
		m.status = fmt.Sprintf("Dictation failed: %v", err)
		return nil
	}
	m.recognizer = r
	m.status = "🎙 Listening... (ctrl+r to stop)"
	return nil
}

// abandonDictation stops the recognizer and drops any late results.
func (m *Model) abandonDictation() tea.Cmd {
	stale := m.session
	m.session++
	if m.recognizer == nil {
		return nil
	}
	r := m.recognizer
	m.recognizer = nil
	return stopRecognizer(r, stale)
}

func stopRecognizer(r speech.Recognizer, session int) tea.Cmd {
	return func() tea.Msg {
		return dictationStoppedMsg{session: session, err: r.Stop()}
	}
}

func (m Model) handleDictation(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case partialMsg:
		if msg.session == m.session && m.eventForm != nil {
			m.partial = msg.text
		}
		return m, listen(m.async)

	case finalMsg:
		if msg.session != m.session || m.eventForm == nil {
			return m, listen(m.async)
		}
		m.eventForm.Text = speech.AppendTranscript(m.eventForm.Text, msg.text)
		m.partial = ""
		m.form = NewEventForm(m.eventForm)
		return m, tea.Batch(m.form.Init(), listen(m.async))

	case dictationStoppedMsg:
		if msg.session != m.session {
			return m, nil
		}
		if msg.err != nil {
			m.status = fmt.Sprintf("Dictation failed: %v", msg.err)
		} else if m.status == "Transcribing..." {
			m.status = ""
		}
	}
	return m, nil
}
