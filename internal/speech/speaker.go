package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// Speaker reads text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Cancel()
}

var runSpeech = func(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// CommandSpeaker shells out to a TTS program. A command ending in a voice
// flag (-v, --voice) gets the language's base code, e.g. "ko", appended.
// The text is always the last argument.
type CommandSpeaker struct {
	argv []string
	lang string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewCommandSpeaker(command, lang string) *CommandSpeaker {
	return &CommandSpeaker{argv: strings.Fields(command), lang: lang}
}

func (s *CommandSpeaker) Available() error {
	if len(s.argv) == 0 {
		return fmt.Errorf("speech output is not configured")
	}
	if _, err := lookPath(s.argv[0]); err != nil {
		return fmt.Errorf("speech output unavailable: %s not found", s.argv[0])
	}
	return nil
}

func (s *CommandSpeaker) args(text string) []string {
	args := append([]string(nil), s.argv[1:]...)
	if n := len(args); n > 0 && (args[n-1] == "-v" || args[n-1] == "--voice") {
		base, _ := language.Make(s.lang).Base()
		args = append(args, base.String())
	}
	return append(args, text)
}

// Speak interrupts any utterance in progress and blocks until text has
// been spoken or ctx ends.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	if err := s.Available(); err != nil {
		return err
	}
	s.Cancel()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	defer func() {
		cancel()
		close(done)
		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
	}()

	err := runSpeech(ctx, s.argv[0], s.args(text)...)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Cancel stops the current utterance, if any, and waits for it to end.
func (s *CommandSpeaker) Cancel() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}
