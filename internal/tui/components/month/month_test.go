package month

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daybell/internal/models"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNavigation(t *testing.T) {
	today := models.Date{Year: 2024, Month: time.May, Day: 31}

	tests := []struct {
		name        string
		keys        []string
		want        models.Date
		monthChange bool
	}{
		{"next day crosses month", []string{"l"}, models.Date{Year: 2024, Month: time.June, Day: 1}, true},
		{"prev day", []string{"left"}, models.Date{Year: 2024, Month: time.May, Day: 30}, false},
		{"prev week", []string{"k"}, models.Date{Year: 2024, Month: time.May, Day: 24}, false},
		{"next month starts on the first", []string{"]"}, models.Date{Year: 2024, Month: time.June, Day: 1}, true},
		{"back to today", []string{"j", "t"}, today, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(today)
			var cmd tea.Cmd
			for _, k := range tt.keys {
				m, cmd = m.Update(keyMsg(k))
			}
			if m.Cursor != tt.want {
				t.Errorf("Cursor = %s, want %s", m.Cursor, tt.want)
			}
			if tt.monthChange {
				if cmd == nil {
					t.Fatal("expected MonthChangedMsg")
				}
				msg, ok := cmd().(MonthChangedMsg)
				if !ok || msg.Year != m.Cursor.Year || msg.Month != m.Cursor.Month {
					t.Errorf("msg = %#v", msg)
				}
			} else if cmd != nil {
				t.Errorf("unexpected command for %v", tt.keys)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	m := New(models.Date{Year: 2024, Month: time.May, Day: 1})
	m, _ = m.Update(keyMsg("l"))
	_, cmd := m.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("enter should select")
	}
	msg, ok := cmd().(SelectDateMsg)
	if !ok || msg.Date.Day != 2 {
		t.Errorf("msg = %#v", msg)
	}
}

func TestViewMarksEvents(t *testing.T) {
	m := New(models.Date{Year: 2024, Month: time.May, Day: 1})
	m.SetCounts(map[int]int{3: 2, 10: 7})
	view := m.View()

	for _, want := range []string{"May 2024", "Sun", "31", "••", "•7"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m.SetCounts(nil)
	if strings.Contains(m.View(), "•") {
		t.Error("nil counts should clear markers")
	}
}

func TestMarker(t *testing.T) {
	tests := map[int]string{0: "", 1: "•", 3: "•••", 4: "•4"}
	for n, want := range tests {
		if got := marker(n); got != want {
			t.Errorf("marker(%d) = %q, want %q", n, got, want)
		}
	}
}
