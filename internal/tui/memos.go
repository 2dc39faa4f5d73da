package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/recorder"
	"github.com/julianstephens/daybell/internal/tui/components/memolist"
)

type memoFinishedMsg struct {
	id string
}

func (m *Model) toggleRecording() {
	if m.recorder != nil {
		m.finishRecording()
		return
	}

	src, err := m.captureSource()
	if err != nil {
		m.status = fmt.Sprintf("⚠ %v", err)
		return
	}
	r := recorder.New(src, m.cfg.Recorder.Mime)
	if err := r.Start(context.Background()); err != nil {
		m.status = fmt.Sprintf("Recording failed: %v", err)
		return
	}
	if m.player != nil {
		m.player.Stop()
		m.memoList.SetPlaying("")
	}
	m.recorder = r
	m.memoList.SetRecording(true, 0)
	m.status = ""
}

func (m *Model) finishRecording() {
	memo, err := m.recorder.Stop()
	m.recorder = nil
	m.memoList.SetRecording(false, 0)

	switch {
	case errors.Is(err, recorder.ErrEmptyRecording):
		m.status = "Nothing was recorded"
		return
	case err != nil:
		m.status = fmt.Sprintf("Recording failed: %v", err)
		return
	}
	if err := m.lib.Add(memo); err != nil {
		m.status = fmt.Sprintf("Failed to save memo: %v", err)
		return
	}
	if err := m.lib.LastSaveError(); err != nil {
		m.status = fmt.Sprintf("⚠ Memo kept for this session but not saved: %v", err)
	} else {
		m.status = fmt.Sprintf("✓ Saved memo (%s)", memo.DurationStr)
	}
	m.memoList.SetMemos(m.lib.List())
}

func (m *Model) togglePlayback(id string) {
	if m.player == nil {
		m.status = "Playback is not available"
		return
	}
	mime, data, err := m.lib.Audio(id)
	if err != nil {
		m.status = fmt.Sprintf("Cannot play memo: %v", err)
		return
	}
	playing, err := m.player.Toggle(id, mime, data)
	if err != nil {
		m.status = fmt.Sprintf("⚠ %v", err)
		m.memoList.SetPlaying("")
		return
	}
	if playing {
		m.memoList.SetPlaying(id)
	} else {
		m.memoList.SetPlaying("")
	}
}

func (m Model) handleMemoMessages(msg tea.Msg) (Model, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case memolist.RecordMsg:
		m.toggleRecording()
		return m, nil, true

	case memolist.PlayMemoMsg:
		m.togglePlayback(msg.ID)
		return m, nil, true

	case memolist.DeleteMemoMsg:
		id := msg.Memo.ID
		m.confirm(fmt.Sprintf("Delete voice memo from %s %s?", msg.Memo.DateStr, msg.Memo.TimeStr), func() error {
			if m.player != nil && m.player.Current() == id {
				m.player.Stop()
			}
			return m.lib.Delete(id)
		})
		return m, nil, true

	case memoFinishedMsg:
		logger.Debug("Memo playback finished", "id", msg.id)
		m.memoList.SetPlaying("")
		return m, listen(m.async), true
	}
	return m, nil, false
}
