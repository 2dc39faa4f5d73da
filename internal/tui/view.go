package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/models"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateCalendar:
		content = docStyle.Render(m.month.View())
	case constants.StateDay:
		content = docStyle.Render(m.day.View())
	case constants.StateMemos:
		content = docStyle.Render(m.memoList.View())
	case constants.StateAddEvent:
		content = m.viewForm()
	case constants.StateConfirmDelete:
		content = m.viewConfirmDelete()
	}

	if m.banner.active() {
		content = m.viewBanner(*m.banner.alarm)
	}

	var status string
	if m.status != "" {
		status = statusStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		status,
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	current := m.state
	if current >= constants.StateAddEvent {
		current = m.previousState
	}
	var tabs []string
	for i, title := range []string{"Calendar", "Day", "Memos"} {
		if current == constants.SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewForm() string {
	view := docStyle.Render(m.form.View())
	if m.partial != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, partialStyle.Render("  … "+m.partial))
	}
	return view
}

func (m Model) viewBanner(a models.Alarm) string {
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			bannerStyle.Render(fmt.Sprintf("⏰ %s  %s", a.Time, a.Text)),
			"",
			"[enter] Dismiss",
		),
	)
}

func (m Model) viewConfirmDelete() string {
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(m.confirmPrompt),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
