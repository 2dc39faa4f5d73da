package daylist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daybell/internal/models"
)

type AddEventMsg struct {
	Date models.Date
}

type DeleteEventMsg struct {
	Date  models.Date
	Event models.Event
}

type SpeakDayMsg struct {
	Date models.Date
}

type Item struct {
	Event models.Event
}

func (i Item) Title() string {
	return fmt.Sprintf("%s  %s", i.Event.Time, i.Event.Text)
}

func (i Item) Description() string {
	if i.Event.Alerted {
		return "✓ alerted"
	}
	return "pending"
}

func (i Item) FilterValue() string { return i.Event.Text }

type KeyMap struct {
	Add    key.Binding
	Delete key.Binding
	Speak  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Speak: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "read aloud"),
		),
	}
}

type Model struct {
	Date models.Date
	list list.Model
	keys KeyMap
}

func New(date models.Date, events []models.Event, width, height int) Model {
	l := list.New(items(events), list.NewDefaultDelegate(), width, height)
	l.SetShowTitle(false)
	l.SetShowHelp(false) // We handle help globally in the main model

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Delete, keys.Speak}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Delete, keys.Speak}
	}

	return Model{Date: date, list: l, keys: keys}
}

func items(events []models.Event) []list.Item {
	out := make([]list.Item, len(events))
	for i, e := range events {
		out[i] = Item{Event: e}
	}
	return out
}

func (m Model) Keys() KeyMap {
	return m.keys
}

// SetEvents shows events for date, keeping the cursor when the date is unchanged.
func (m *Model) SetEvents(date models.Date, events []models.Event) {
	if date != m.Date {
		m.list.ResetSelected()
	}
	m.Date = date
	m.list.SetItems(items(events))
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		d := m.Date
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddEventMsg{Date: d} }
		case key.Matches(msg, m.keys.Delete):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return DeleteEventMsg{Date: d, Event: i.Event} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Speak):
			return m, func() tea.Msg { return SpeakDayMsg{Date: d} }
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	header := fmt.Sprintf("%s (%s)\n\n", m.Date, m.Date.Weekday())
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return header + "  No events.\n  Press 'a' to add one."
	}
	return header + m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height-2)
}
