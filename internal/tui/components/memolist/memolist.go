package memolist

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daybell/internal/models"
)

var (
	recordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

type RecordMsg struct{}

type PlayMemoMsg struct {
	ID string
}

type DeleteMemoMsg struct {
	Memo models.VoiceMemo
}

type Item struct {
	Memo    models.VoiceMemo
	Playing bool
}

func (i Item) Title() string {
	prefix := "▶ "
	if i.Playing {
		prefix = "■ "
	}
	return prefix + i.Memo.DateStr + " " + i.Memo.TimeStr
}

func (i Item) Description() string {
	return fmt.Sprintf("%s | %s", i.Memo.DurationStr, i.Memo.ID)
}

func (i Item) FilterValue() string { return i.Memo.DateStr + " " + i.Memo.TimeStr }

type KeyMap struct {
	Record key.Binding
	Play   key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Record: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "record/stop"),
		),
		Play: key.NewBinding(
			key.WithKeys("enter", "p"),
			key.WithHelp("enter", "play/stop"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list      list.Model
	keys      KeyMap
	playing   string
	recording bool
	elapsed   time.Duration
}

func New(memos []models.VoiceMemo, width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Record, keys.Play, keys.Delete}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Record, keys.Play, keys.Delete}
	}

	m := Model{list: l, keys: keys}
	m.SetMemos(memos)
	return m
}

func (m Model) Keys() KeyMap {
	return m.keys
}

// SetMemos replaces the list; memos arrive newest first.
func (m *Model) SetMemos(memos []models.VoiceMemo) {
	items := make([]list.Item, len(memos))
	for i, memo := range memos {
		items[i] = Item{Memo: memo, Playing: memo.ID == m.playing}
	}
	m.list.SetItems(items)
}

// SetPlaying marks the memo being played; "" clears it.
func (m *Model) SetPlaying(id string) {
	m.playing = id
	items := m.list.Items()
	for i, it := range items {
		if item, ok := it.(Item); ok {
			item.Playing = item.Memo.ID == id
			items[i] = item
		}
	}
	m.list.SetItems(items)
}

func (m *Model) SetRecording(recording bool, elapsed time.Duration) {
	m.recording = recording
	m.elapsed = elapsed
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
		switch {
		case key.Matches(msg, m.keys.Record):
			return m, func() tea.Msg { return RecordMsg{} }
		case key.Matches(msg, m.keys.Play):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return PlayMemoMsg{ID: i.Memo.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return DeleteMemoMsg{Memo: i.Memo} }
			}
			return m, nil
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	if m.recording {
		b.WriteString(recordingStyle.Render("● REC " + models.FormatDuration(m.elapsed)))
		b.WriteString(statusStyle.Render("  press 'r' to stop"))
		b.WriteString("\n\n")
	}
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		b.WriteString("  No voice memos yet.\n  Press 'r' to record one.")
		return b.String()
	}
	b.WriteString(m.list.View())
	return b.String()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height-2)
}
