package audio

import (
	"context"
	"fmt"
	"mime"
	"os"
	"sync"

	"github.com/julianstephens/daybell/internal/logger"
)

// MemoPlayer plays one recording at a time. Toggling the playing memo
// stops it; toggling another switches to it.
type MemoPlayer struct {
	player *Player

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
	done    chan struct{}

	// OnFinish, when set, is called with the memo id after playback ends
	// on its own.
	OnFinish func(id string)
}

func NewMemoPlayer(command string) *MemoPlayer {
	return &MemoPlayer{player: NewPlayer(command)}
}

// Toggle starts or stops playback of the memo identified by id and reports
// whether it is now playing.
func (m *MemoPlayer) Toggle(id, mimeType string, data []byte) (bool, error) {
	if m.Current() == id {
		m.Stop()
		return false, nil
	}
	m.Stop()
	if err := m.player.Available(); err != nil {
		return false, err
	}

	path, err := writeTemp(mimeType, data)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.mu.Lock()
	m.current, m.cancel, m.done = id, cancel, done
	m.mu.Unlock()

	go func() {
		defer close(done)
		defer os.Remove(path)
		if err := m.player.Play(ctx, path); err != nil {
			logger.Warn("Memo playback failed", "id", id, "error", err)
		}
		m.mu.Lock()
		finished := m.current == id && ctx.Err() == nil
		if finished {
			m.current, m.cancel, m.done = "", nil, nil
		}
		m.mu.Unlock()
		cancel()
		if finished && m.OnFinish != nil {
			m.OnFinish(id)
		}
	}()
	return true, nil
}

// Current is the id of the memo playing now, or "".
func (m *MemoPlayer) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *MemoPlayer) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.current, m.cancel, m.done = "", nil, nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func writeTemp(mimeType string, data []byte) (string, error) {
	ext := ".webm"
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		ext = exts[0]
	}
	f, err := os.CreateTemp("", "daybell-memo-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to stage memo audio: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to stage memo audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to stage memo audio: %w", err)
	}
	return f.Name(), nil
}
