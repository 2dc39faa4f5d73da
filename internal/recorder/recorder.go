// Package recorder captures voice memos.
package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/memos"
	"github.com/julianstephens/daybell/internal/models"
)

var (
	ErrEmptyRecording = memos.ErrEmptyAudio
	ErrNotRecording   = errors.New("not recording")
	ErrAlreadyRunning = errors.New("already recording")
)

var now = time.Now

type Recorder struct {
	source Source
	mime   string

	mu      sync.Mutex
	stream  io.ReadCloser
	buf     bytes.Buffer
	started time.Time
	done    chan error
	// stopping is set while Stop waits for the copy to drain.
	stopping bool
}

func New(source Source, mime string) *Recorder {
	return &Recorder{source: source, mime: mime}
}

func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream != nil || r.stopping {
		return ErrAlreadyRunning
	}

	stream, err := r.source.Open(ctx)
	if err != nil {
		return err
	}
	r.stream = stream
	r.buf.Reset()
	r.started = now()
	r.done = make(chan error, 1)

	go func(done chan<- error) {
		_, err := io.Copy(&lockedWriter{mu: &r.mu, buf: &r.buf}, stream)
		done <- err
	}(r.done)

	logger.Debug("Recording started")
	return nil
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// Elapsed is the whole seconds recorded so far.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return 0
	}
	return now().Sub(r.started).Truncate(time.Second)
}

// Stop ends the capture and returns the finished memo. A capture that
// produced no audio returns ErrEmptyRecording.
func (r *Recorder) Stop() (models.VoiceMemo, error) {
	r.mu.Lock()
	stream, done, started := r.stream, r.done, r.started
	if stream == nil {
		r.mu.Unlock()
		return models.VoiceMemo{}, ErrNotRecording
	}
	r.stream, r.done, r.stopping = nil, nil, true
	r.mu.Unlock()

	finished := now()
	if err := stream.Close(); err != nil {
		logger.Debug("Closing capture stream", "error", err)
	}
	copyErr := <-done

	r.mu.Lock()
	audio := append([]byte(nil), r.buf.Bytes()...)
	r.stopping = false
	r.buf.Reset()
	r.mu.Unlock()

	if copyErr != nil && len(audio) == 0 {
		return models.VoiceMemo{}, fmt.Errorf("recording failed: %w", copyErr)
	}
	memo, err := memos.NewMemo(finished, finished.Sub(started), r.mime, audio)
	if err != nil {
		return models.VoiceMemo{}, err
	}
	logger.Info("Recording finished", "bytes", len(audio), "duration", memo.DurationStr)
	return memo, nil
}

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
