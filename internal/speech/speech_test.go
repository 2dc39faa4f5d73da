package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/websocket"
	"golang.org/x/text/language"

	"github.com/julianstephens/daybell/internal/config"
	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/models"
)

type staticSource struct{ data string }

func (s staticSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.data)), nil
}

type results struct {
	mu       sync.Mutex
	partials []string
	finals   []string
}

func (r *results) attach(rec Recognizer) {
	rec.OnPartial(func(s string) { r.mu.Lock(); r.partials = append(r.partials, s); r.mu.Unlock() })
	rec.OnFinal(func(s string) { r.mu.Lock(); r.finals = append(r.finals, s); r.mu.Unlock() })
}

func TestAppendTranscript(t *testing.T) {
	tests := []struct {
		existing, final, want string
	}{
		{"", "buy milk", "buy milk"},
		{"Dentist", "at noon", "Dentist at noon"},
		{"Dentist ", " at noon ", "Dentist at noon"},
		{"Dentist", "   ", "Dentist"},
	}
	for _, tt := range tests {
		if got := AppendTranscript(tt.existing, tt.final); got != tt.want {
			t.Errorf("AppendTranscript(%q, %q) = %q, want %q", tt.existing, tt.final, got, tt.want)
		}
	}
}

func TestNewUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.Speech.Mode = constants.SpeechNone
	if _, err := New(cfg); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("New(none) = %v", err)
	}

	orig := lookPath
	t.Cleanup(func() { lookPath = orig })
	lookPath = func(string) (string, error) { return "", errors.New("missing") }
	cfg.Speech.Mode = constants.SpeechDevice
	cfg.Speech.DeviceCommand = "whisper-stream --json"
	if _, err := New(cfg); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("New(device) with missing binary = %v", err)
	}
}

func TestDeviceRecognizer(t *testing.T) {
	origLook, origStart := lookPath, startCommand
	t.Cleanup(func() { lookPath, startCommand = origLook, origStart })
	lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }

	var gotArgs []string
	startCommand = func(ctx context.Context, name string, args ...string) (io.ReadCloser, func() error, error) {
		gotArgs = append([]string{name}, args...)
		out := strings.Join([]string{
			`{"text":"buy","final":false}`,
			`not json`,
			`{"text":"buy milk","final":true}`,
			``,
		}, "\n")
		return io.NopCloser(strings.NewReader(out)), func() error { return nil }, nil
	}

	rec := NewDevice("vosk-stream --json", "ko-KR")
	var res results
	res.attach(rec)
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if strings.Join(gotArgs, " ") != "vosk-stream --json ko-KR" {
		t.Errorf("args = %v", gotArgs)
	}
	if len(res.partials) != 1 || res.partials[0] != "buy" {
		t.Errorf("partials = %v", res.partials)
	}
	if len(res.finals) != 1 || res.finals[0] != "buy milk" {
		t.Errorf("finals = %v", res.finals)
	}
	if err := rec.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("second Stop = %v", err)
	}
}

func TestBatchRecognizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		audio, _ := io.ReadAll(f)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"text": fmt.Sprintf("%s:%s", r.FormValue("language"), audio),
		})
	}))
	defer srv.Close()

	rec := NewBatch(srv.URL, "sk-test", "ko-KR", "audio/webm", staticSource{data: "OPUS"})
	var res results
	res.attach(rec)
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(res.finals) != 1 || res.finals[0] != "ko-KR:OPUS" {
		t.Fatalf("finals = %v", res.finals)
	}
	if len(res.partials) != 0 {
		t.Errorf("batch should not emit partials: %v", res.partials)
	}
}

func TestBatchRecognizerRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := NewBatch(srv.URL, "", "en-US", "audio/webm", staticSource{data: "OPUS"})
	var res results
	res.attach(rec)
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := rec.Stop()
	if err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("Stop = %v", err)
	}
	if len(res.finals) != 0 {
		t.Fatalf("failure must not deliver text: %v", res.finals)
	}
}

func TestStreamRecognizer(t *testing.T) {
	var gotLang, gotAuth string
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		gotAuth = ws.Request().Header.Get("Authorization")
		received := 0
		for {
			var data []byte
			if err := websocket.Message.Receive(ws, &data); err != nil {
				return
			}
			var ctl controlFrame
			if len(data) > 0 && data[0] == '{' && json.Unmarshal(data, &ctl) == nil {
				switch ctl.Type {
				case "start":
					gotLang = ctl.Language
				case "stop":
					_ = websocket.JSON.Send(ws, streamFrame{Type: "final", Text: fmt.Sprintf("heard %d bytes", received)})
					return
				}
				continue
			}
			received += len(data)
			_ = websocket.JSON.Send(ws, streamFrame{Type: "partial", Text: "…"})
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	rec := NewStream(url, "sk-live", "ko-KR", staticSource{data: "0123456789"})
	var res results
	res.attach(rec)
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if gotLang != "ko-KR" || gotAuth != "Bearer sk-live" {
		t.Errorf("handshake lang=%q auth=%q", gotLang, gotAuth)
	}
	if len(res.finals) != 1 || res.finals[0] != "heard 10 bytes" {
		t.Fatalf("finals = %v", res.finals)
	}
	if len(res.partials) == 0 {
		t.Error("expected partial results")
	}
}

func TestStreamRecognizerConnectFailure(t *testing.T) {
	rec := NewStream("ws://127.0.0.1:1/live", "", "ko-KR", staticSource{})
	if err := rec.Start(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
	if err := rec.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("Stop = %v", err)
	}
}

func TestPhrasebook(t *testing.T) {
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"", language.Korean},
		{"ko-KR", language.Korean},
		{"en-US", language.English},
		{"fr-FR", language.English},
		{"not a tag!", language.English},
	}
	for _, tt := range tests {
		if got := Phrasebook(tt.in); got != tt.want {
			t.Errorf("Phrasebook(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBriefing(t *testing.T) {
	d, _ := models.ParseDate("2024-05-01")
	nine, _ := models.ParseTimeOfDay("09:00")
	half, _ := models.ParseTimeOfDay("14:30")
	events := []models.Event{
		{ID: "1", Time: nine, Text: "회의"},
		{ID: "2", Time: half, Text: "병원"},
	}

	tests := []struct {
		name    string
		lang    string
		events  []models.Event
		startup bool
		want    string
	}{
		{"ko startup empty", "ko-KR", nil, true, "반갑습니다. 오늘 5월 1일, 예정된 일정이 없습니다. 즐거운 하루 보내세요."},
		{"ko empty", "ko-KR", nil, false, "5월 1일, 일정이 없습니다."},
		{"ko events", "ko-KR", events, false, "5월 1일, 총 2개의 일정이 있습니다. 09시, 회의. 14시 30분, 병원."},
		{"en startup", "en-US", events[:1], true, "Hello. Today is May 1, you have one event. 9 o'clock, 회의."},
		{"en events", "en", events, false, "May 1, you have 2 events. 9 o'clock, 회의. 14:30, 병원."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Briefing(tt.lang, d, tt.events, tt.startup); got != tt.want {
				t.Errorf("Briefing = %q\nwant      %q", got, tt.want)
			}
		})
	}
}

func TestCommandSpeaker(t *testing.T) {
	origLook, origRun := lookPath, runSpeech
	t.Cleanup(func() { lookPath, runSpeech = origLook, origRun })
	lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }

	var got []string
	runSpeech = func(ctx context.Context, name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}

	s := NewCommandSpeaker("espeak-ng -v", "ko-KR")
	if err := s.Speak(context.Background(), "안녕하세요"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if strings.Join(got, "|") != "espeak-ng|-v|ko|안녕하세요" {
		t.Errorf("argv = %v", got)
	}

	s = NewCommandSpeaker("say", "en-US")
	_ = s.Speak(context.Background(), "hi")
	if strings.Join(got, "|") != "say|hi" {
		t.Errorf("argv = %v", got)
	}
}

func TestCommandSpeakerCancel(t *testing.T) {
	origLook, origRun := lookPath, runSpeech
	t.Cleanup(func() { lookPath, runSpeech = origLook, origRun })
	lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }

	started := make(chan struct{})
	runSpeech = func(ctx context.Context, name string, args ...string) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}

	s := NewCommandSpeaker("espeak-ng", "ko-KR")
	errc := make(chan error, 1)
	go func() { errc <- s.Speak(context.Background(), "긴 문장") }()
	<-started
	s.Cancel()
	if err := <-errc; err != nil {
		t.Fatalf("cancelled Speak = %v, want nil", err)
	}
}
