package month

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daybell/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(cellWidth).
			Align(lipgloss.Center)

	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Width(cellWidth).
			Align(lipgloss.Center)

	todayStyle = dayStyle.
			Foreground(lipgloss.Color("214")).
			Bold(true)

	cursorStyle = dayStyle.
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true)

	markerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Width(cellWidth).
			Align(lipgloss.Center)
)

const cellWidth = 6

// SelectDateMsg opens the day list for Date.
type SelectDateMsg struct {
	Date models.Date
}

// MonthChangedMsg asks the parent for fresh counts.
type MonthChangedMsg struct {
	Year  int
	Month time.Month
}

type KeyMap struct {
	Left      key.Binding
	Right     key.Binding
	Up        key.Binding
	Down      key.Binding
	PrevMonth key.Binding
	NextMonth key.Binding
	Today     key.Binding
	Select    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev day"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next day"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev week"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next week"),
		),
		PrevMonth: key.NewBinding(
			key.WithKeys("[", "pgup"),
			key.WithHelp("[", "prev month"),
		),
		NextMonth: key.NewBinding(
			key.WithKeys("]", "pgdown"),
			key.WithHelp("]", "next month"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "today"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open day"),
		),
	}
}

type Model struct {
	Cursor models.Date
	Today  models.Date
	// Counts maps day of month to the number of events on it.
	Counts map[int]int
	keys   KeyMap
	width  int
	height int
}

func New(today models.Date) Model {
	return Model{
		Cursor: today,
		Today:  today,
		Counts: map[int]int{},
		keys:   DefaultKeyMap(),
	}
}

func (m Model) Keys() KeyMap {
	return m.keys
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) SetCounts(counts map[int]int) {
	if counts == nil {
		counts = map[int]int{}
	}
	m.Counts = counts
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	prev := m.Cursor
	switch {
	case key.Matches(keyMsg, m.keys.Left):
		m.Cursor = m.Cursor.AddDays(-1)
	case key.Matches(keyMsg, m.keys.Right):
		m.Cursor = m.Cursor.AddDays(1)
	case key.Matches(keyMsg, m.keys.Up):
		m.Cursor = m.Cursor.AddDays(-7)
	case key.Matches(keyMsg, m.keys.Down):
		m.Cursor = m.Cursor.AddDays(7)
	case key.Matches(keyMsg, m.keys.PrevMonth):
		m.Cursor = m.Cursor.AddMonths(-1)
	case key.Matches(keyMsg, m.keys.NextMonth):
		m.Cursor = m.Cursor.AddMonths(1)
	case key.Matches(keyMsg, m.keys.Today):
		m.Cursor = m.Today
	case key.Matches(keyMsg, m.keys.Select):
		d := m.Cursor
		return m, func() tea.Msg { return SelectDateMsg{Date: d} }
	default:
		return m, nil
	}

	if prev.Year != m.Cursor.Year || prev.Month != m.Cursor.Month {
		y, mo := m.Cursor.Year, m.Cursor.Month
		return m, func() tea.Msg { return MonthChangedMsg{Year: y, Month: mo} }
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %d", m.Cursor.Month, m.Cursor.Year)))
	b.WriteString("\n\n")

	for _, wd := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		b.WriteString(headerStyle.Render(wd))
	}
	b.WriteString("\n")

	first := m.Cursor.FirstOfMonth()
	lead := int(first.Weekday())
	days := first.DaysInMonth()

	for week := 0; week*7 < lead+days; week++ {
		var nums, marks strings.Builder
		for col := 0; col < 7; col++ {
			day := week*7 + col - lead + 1
			if day < 1 || day > days {
				nums.WriteString(dayStyle.Render(""))
				marks.WriteString(markerStyle.Render(""))
				continue
			}
			d := models.Date{Year: first.Year, Month: first.Month, Day: day}
			style := dayStyle
			switch d {
			case m.Cursor:
				style = cursorStyle
			case m.Today:
				style = todayStyle
			}
			nums.WriteString(style.Render(fmt.Sprintf("%2d", day)))
			marks.WriteString(markerStyle.Render(marker(m.Counts[day])))
		}
		b.WriteString(nums.String())
		b.WriteString("\n")
		b.WriteString(marks.String())
		b.WriteString("\n")
	}
	return b.String()
}

func marker(n int) string {
	switch {
	case n == 0:
		return ""
	case n <= 3:
		return strings.Repeat("•", n)
	default:
		return fmt.Sprintf("•%d", n)
	}
}
