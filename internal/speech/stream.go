package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/recorder"
)

const (
	streamChunkSize = 4096
	// streamDrainTimeout bounds the wait for the last final result after
	// audio stops.
	streamDrainTimeout = 5 * time.Second
)

// streamFrame is a server message. Type is "partial", "final" or "error".
type streamFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type controlFrame struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
}

// StreamRecognizer sends live audio over a websocket and receives partial
// and final transcripts as they are produced.
type StreamRecognizer struct {
	callbacks
	endpoint string
	apiKey   string
	lang     string
	source   recorder.Source

	mu       sync.Mutex
	ws       *websocket.Conn
	stream   io.ReadCloser
	sendDone chan error
	recvDone chan error
}

func NewStream(endpoint, apiKey, lang string, source recorder.Source) *StreamRecognizer {
	return &StreamRecognizer{endpoint: endpoint, apiKey: apiKey, lang: lang, source: source}
}

func (s *StreamRecognizer) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid stream url: %w", err)
	}
	origin := &url.URL{Scheme: "http", Host: u.Host}
	if u.Scheme == "wss" {
		origin.Scheme = "https"
	}
	cfg, err := websocket.NewConfig(u.String(), origin.String())
	if err != nil {
		return nil, err
	}
	if s.apiKey != "" {
		cfg.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	return cfg.DialContext(ctx)
}

func (s *StreamRecognizer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws != nil {
		return ErrAlreadyStarted
	}

	ws, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to transcription service: %w", err)
	}
	if err := websocket.JSON.Send(ws, controlFrame{Type: "start", Language: s.lang}); err != nil {
		ws.Close()
		return fmt.Errorf("failed to start transcription: %w", err)
	}
	stream, err := s.source.Open(ctx)
	if err != nil {
		ws.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.ws = ws
	s.stream = stream
	s.sendDone = make(chan error, 1)
	s.recvDone = make(chan error, 1)
	go func(done chan<- error) { done <- s.send(ws, stream) }(s.sendDone)
	go func(done chan<- error) { done <- s.receive(ws) }(s.recvDone)
	return nil
}

// send forwards audio as binary frames and announces the end of input.
func (s *StreamRecognizer) send(ws *websocket.Conn, r io.Reader) error {
	buf := make([]byte, streamChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if serr := websocket.Message.Send(ws, buf[:n]); serr != nil {
				return serr
			}
		}
		if errors.Is(err, io.EOF) {
			return websocket.JSON.Send(ws, controlFrame{Type: "stop"})
		}
		if err != nil {
			return err
		}
	}
}

func (s *StreamRecognizer) receive(ws *websocket.Conn) error {
	for {
		var frame streamFrame
		if err := websocket.JSON.Receive(ws, &frame); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		switch frame.Type {
		case "partial":
			s.partial(frame.Text)
		case "final":
			s.final(frame.Text)
		case "error":
			return fmt.Errorf("transcription service: %s", frame.Text)
		default:
			logger.Debug("Ignoring transcription frame", "type", frame.Type)
		}
	}
}

// Stop ends capture, waits briefly for outstanding results, and closes
// the connection.
func (s *StreamRecognizer) Stop() error {
	s.mu.Lock()
	ws, stream, sendDone, recvDone := s.ws, s.stream, s.sendDone, s.recvDone
	s.ws, s.stream = nil, nil
	s.mu.Unlock()
	if ws == nil {
		return ErrNotStarted
	}

	_ = stream.Close()
	sendErr := <-sendDone

	var recvErr error
	select {
	case recvErr = <-recvDone:
	case <-time.After(streamDrainTimeout):
		logger.Warn("Transcription service did not finish in time")
	}
	ws.Close()

	if recvErr != nil {
		return recvErr
	}
	if sendErr != nil {
		return fmt.Errorf("failed to stream audio: %w", sendErr)
	}
	return nil
}
