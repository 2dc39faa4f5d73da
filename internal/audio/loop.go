package audio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/julianstephens/daybell/internal/logger"
)

// maxQuickFailures stops the loop when the player keeps dying at once,
// e.g. because the sound URL is unreachable.
const maxQuickFailures = 3

var restartDelay = 100 * time.Millisecond

// LoopPlayer replays one source until stopped.
type LoopPlayer struct {
	player *Player
	src    string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLoopPlayer(command, src string) *LoopPlayer {
	return &LoopPlayer{player: NewPlayer(command), src: src}
}

// Start begins looping playback. It is a no-op while already playing.
func (l *LoopPlayer) Start() error {
	if err := l.player.Available(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		select {
		case <-l.done:
			// The previous loop gave up on its own.
			l.cancel()
		default:
			return nil
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.loop(ctx, l.done)
	return nil
}

func (l *LoopPlayer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	failures := 0
	for ctx.Err() == nil {
		started := time.Now()
		err := l.player.Play(ctx, l.src)
		if ctx.Err() != nil {
			return
		}
		if err != nil && time.Since(started) < time.Second {
			failures++
			if failures >= maxQuickFailures {
				logger.Warn("Giving up on alarm sound", "src", l.src, "error", err)
				return
			}
		} else {
			failures = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

// Stop kills the player and waits for it to exit. The next Start plays
// from the beginning.
func (l *LoopPlayer) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Playing reports whether the loop is active.
func (l *LoopPlayer) Playing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// Bell rings the terminal bell once per Start.
type Bell struct {
	W io.Writer
}

func (b Bell) Start() error {
	_, err := io.WriteString(b.W, "\a")
	return err
}

func (Bell) Stop() {}

// Cue matches alarm.Cue without importing it.
type Cue interface {
	Start() error
	Stop()
}

// FallbackCue tries Primary and rings Secondary when it fails.
type FallbackCue struct {
	Primary   Cue
	Secondary Cue
}

func (f FallbackCue) Start() error {
	if err := f.Primary.Start(); err != nil {
		logger.Debug("Primary alarm sound unavailable", "error", err)
		return f.Secondary.Start()
	}
	return nil
}

func (f FallbackCue) Stop() {
	f.Primary.Stop()
	f.Secondary.Stop()
}
