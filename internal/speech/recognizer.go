// Package speech turns dictation into text and reads schedules aloud.
package speech

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/daybell/internal/config"
	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/recorder"
)

var (
	ErrUnavailable    = errors.New("speech recognition is not available")
	ErrNotStarted     = errors.New("recognizer is not running")
	ErrAlreadyStarted = errors.New("recognizer is already running")
)

// Recognizer converts captured speech into text incrementally. Partial
// results may be revised; final results are settled text.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
	OnPartial(func(string))
	OnFinal(func(string))
}

// New picks a recognizer for the configured speech mode and checks that
// it can run here.
func New(cfg *config.Config) (Recognizer, error) {
	lang := cfg.Language
	switch cfg.Speech.Mode {
	case constants.SpeechDevice:
		r := NewDevice(cfg.Speech.DeviceCommand, lang)
		if err := r.Available(); err != nil {
			return nil, err
		}
		return r, nil
	case constants.SpeechBatch:
		src := recorder.NewCommandSource(cfg.Recorder.Command)
		if err := src.Available(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if cfg.Speech.Endpoint == "" {
			return nil, fmt.Errorf("%w: speech.endpoint is not set", ErrUnavailable)
		}
		return NewBatch(cfg.Speech.Endpoint, cfg.Speech.APIKey, lang, cfg.Recorder.Mime, src), nil
	case constants.SpeechStream:
		src := recorder.NewCommandSource(cfg.Recorder.Command)
		if err := src.Available(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if cfg.Speech.StreamURL == "" {
			return nil, fmt.Errorf("%w: speech.stream_url is not set", ErrUnavailable)
		}
		return NewStream(cfg.Speech.StreamURL, cfg.Speech.APIKey, lang, src), nil
	default:
		return nil, ErrUnavailable
	}
}

// AppendTranscript adds a final result to text the user already typed.
func AppendTranscript(existing, final string) string {
	final = strings.TrimSpace(final)
	if final == "" {
		return existing
	}
	existing = strings.TrimRight(existing, " ")
	if existing == "" {
		return final
	}
	return existing + " " + final
}

// callbacks is embedded by every recognizer.
type callbacks struct {
	mu        sync.Mutex
	onPartial func(string)
	onFinal   func(string)
}

func (c *callbacks) OnPartial(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPartial = fn
}

func (c *callbacks) OnFinal(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFinal = fn
}

func (c *callbacks) partial(text string) {
	c.mu.Lock()
	fn := c.onPartial
	c.mu.Unlock()
	if fn != nil && text != "" {
		fn(text)
	}
}

func (c *callbacks) final(text string) {
	c.mu.Lock()
	fn := c.onFinal
	c.mu.Unlock()
	if fn != nil && strings.TrimSpace(text) != "" {
		fn(text)
	}
}

var httpClient = &http.Client{Timeout: 60 * time.Second}
