package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/recorder"
)

type batchResponse struct {
	Text string `json:"text"`
}

// BatchRecognizer records until Stop and then uploads the whole clip for
// transcription. It produces a single final result and no partials.
type BatchRecognizer struct {
	callbacks
	endpoint string
	apiKey   string
	lang     string
	mime     string
	source   recorder.Source

	mu     sync.Mutex
	ctx    context.Context
	stream io.ReadCloser
	buf    *bytes.Buffer
	done   chan error
}

func NewBatch(endpoint, apiKey, lang, mimeType string, source recorder.Source) *BatchRecognizer {
	return &BatchRecognizer{
		endpoint: endpoint,
		apiKey:   apiKey,
		lang:     lang,
		mime:     mimeType,
		source:   source,
	}
}

func (b *BatchRecognizer) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream != nil {
		return ErrAlreadyStarted
	}
	stream, err := b.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	b.ctx = ctx
	b.stream = stream
	b.buf = &bytes.Buffer{}
	b.done = make(chan error, 1)
	go func(buf *bytes.Buffer, done chan<- error) {
		_, err := io.Copy(buf, stream)
		done <- err
	}(b.buf, b.done)
	return nil
}

// Stop finishes the capture and blocks while the clip is transcribed.
func (b *BatchRecognizer) Stop() error {
	b.mu.Lock()
	ctx, stream, buf, done := b.ctx, b.stream, b.buf, b.done
	b.stream, b.buf, b.done = nil, nil, nil
	b.mu.Unlock()
	if stream == nil {
		return ErrNotStarted
	}

	_ = stream.Close()
	if err := <-done; err != nil && buf.Len() == 0 {
		return fmt.Errorf("capture failed: %w", err)
	}
	if buf.Len() == 0 {
		return nil
	}

	text, err := b.transcribe(ctx, buf.Bytes())
	if err != nil {
		return err
	}
	b.final(text)
	return nil
}

func (b *BatchRecognizer) transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	ext := ".webm"
	if exts, _ := mime.ExtensionsByType(b.mime); len(exts) > 0 {
		ext = exts[0]
	}
	part, err := w.CreateFormFile("file", "dictation"+ext)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := w.WriteField("language", b.lang); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("invalid transcription endpoint: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	logger.Debug("Uploading dictation", "endpoint", b.endpoint, "bytes", len(audio))
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription failed: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("invalid transcription response: %w", err)
	}
	return out.Text, nil
}
