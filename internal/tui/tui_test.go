package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daybell/internal/calendar"
	"github.com/julianstephens/daybell/internal/config"
	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/memos"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/recorder"
	"github.com/julianstephens/daybell/internal/speech"
	"github.com/julianstephens/daybell/internal/storage/memory"
)

type fakeCue struct {
	started, stopped int
}

func (c *fakeCue) Start() error { c.started++; return nil }
func (c *fakeCue) Stop()        { c.stopped++ }

type fakeRecognizer struct {
	partial, final func(string)
	started        bool
	finalOnStop    string
	stopErr        error
}

func (f *fakeRecognizer) Start(context.Context) error { f.started = true; return nil }
func (f *fakeRecognizer) OnPartial(fn func(string))   { f.partial = fn }
func (f *fakeRecognizer) OnFinal(fn func(string))     { f.final = fn }
func (f *fakeRecognizer) Stop() error {
	if f.finalOnStop != "" {
		f.final(f.finalOnStop)
	}
	return f.stopErr
}

type fakeSource struct{ data string }

func (s fakeSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.data)), nil
}

type fakeSpeaker struct {
	err    error
	spoken []string
}

func (s *fakeSpeaker) Speak(_ context.Context, text string) error {
	s.spoken = append(s.spoken, text)
	return nil
}
func (s *fakeSpeaker) Cancel()          {}
func (s *fakeSpeaker) Available() error { return s.err }

type fixture struct {
	backend *memory.Store
	cal     *calendar.Store
	lib     *memos.Library
	cue     *fakeCue
	now     time.Time
}

func newTestModel(t *testing.T, now time.Time, configure ...func(*Options)) (Model, *fixture) {
	t.Helper()
	store := memory.New()
	f := &fixture{
		backend: store,
		cal:     calendar.Open(store),
		lib:     memos.Open(store),
		cue:     &fakeCue{},
		now:     now,
	}
	opts := Options{
		Config:   config.Default(),
		Calendar: f.cal,
		Memos:    f.lib,
		Now:      func() time.Time { return f.now },
		Cue:      f.cue,
		NewRecognizer: func() (speech.Recognizer, error) {
			return nil, speech.ErrUnavailable
		},
		CaptureSource: func() (recorder.Source, error) {
			return nil, recorder.ErrCaptureUnavailable
		},
	}
	for _, c := range configure {
		c(&opts)
	}
	m := NewModel(opts)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, f
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

// press sends a key and feeds back the message of any command it returns.
// Form commands are cursor blinks and are not run.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	m, cmd := update(t, m, k)
	if cmd != nil && m.state != constants.StateAddEvent {
		if msg := cmd(); msg != nil {
			if _, isBatch := msg.(tea.BatchMsg); !isBatch {
				m, _ = update(t, m, msg)
			}
		}
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func mustAdd(t *testing.T, cal *calendar.Store, date, at, text string) models.Date {
	t.Helper()
	d, err := models.ParseDate(date)
	if err != nil {
		t.Fatal(err)
	}
	tod, err := models.ParseTimeOfDay(at)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cal.Add(d, tod, text); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestAlarmBannerAndDismiss(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 10, 0, time.Local)
	m, f := newTestModel(t, now)
	d := mustAdd(t, f.cal, "2024-05-01", "09:00", "Standup")

	m, cmd := update(t, m, tickMsg(now))
	if cmd == nil {
		t.Error("tick must schedule the next tick")
	}
	if !m.banner.active() {
		t.Fatal("expected alarm banner")
	}
	if !strings.Contains(m.View(), "Standup") {
		t.Errorf("banner not rendered:\n%s", m.View())
	}
	if f.cue.started != 1 {
		t.Errorf("cue started %d times", f.cue.started)
	}
	if !f.cal.EventsOn(d)[0].Alerted {
		t.Error("event not marked alerted")
	}

	// Other keys are blocked while the banner is up.
	m = press(t, m, runes("a"))
	if m.state != constants.StateCalendar {
		t.Errorf("state = %v", m.state)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.banner.active() {
		t.Fatal("enter should dismiss the banner")
	}
	if f.cue.stopped != 1 {
		t.Errorf("cue stopped %d times", f.cue.stopped)
	}

	m, _ = update(t, m, tickMsg(now))
	if m.banner.active() {
		t.Error("alerted event fired again")
	}
}

func TestTickShowsEventsAddedElsewhere(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	m, f := newTestModel(t, now)

	other := calendar.Open(f.backend)
	mustAdd(t, other, "2024-05-01", "10:00", "Dentist")

	m, _ = update(t, m, tickMsg(now))
	if m.month.Counts[1] != 1 {
		t.Errorf("month counts = %v", m.month.Counts)
	}
	if !strings.Contains(m.day.View(), "Dentist") {
		t.Errorf("day list missing the new event:\n%s", m.day.View())
	}
}

func TestSameTimeEventsFireOnSuccessiveTicks(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	m, f := newTestModel(t, now)
	mustAdd(t, f.cal, "2024-05-01", "09:00", "First")
	mustAdd(t, f.cal, "2024-05-01", "09:00", "Second")

	m, _ = update(t, m, tickMsg(now))
	if m.banner.alarm == nil || m.banner.alarm.Text != "First" {
		t.Fatalf("first tick banner = %+v", m.banner.alarm)
	}
	m, _ = update(t, m, tickMsg(now))
	if m.banner.alarm == nil || m.banner.alarm.Text != "Second" {
		t.Fatalf("second tick banner = %+v", m.banner.alarm)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.banner.active() {
		t.Error("esc should dismiss the banner")
	}
}

func TestAddEventForm(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 10, 0, 0, time.Local)
	m, f := newTestModel(t, now)

	m = press(t, m, runes("a"))
	if m.state != constants.StateAddEvent {
		t.Fatalf("state = %v, want add event", m.state)
	}
	if got := m.eventForm.Time.String(); got != "09:30" {
		t.Errorf("default slot = %s, want 09:30", got)
	}

	m.eventForm.Text = "   "
	m.submitEvent()
	if m.state != constants.StateAddEvent || !strings.Contains(m.status, "Failed to add event") {
		t.Fatalf("blank text: state=%v status=%q", m.state, m.status)
	}

	m.eventForm.Text = "Dentist"
	m.submitEvent()
	if m.state != constants.StateCalendar {
		t.Errorf("state after submit = %v", m.state)
	}
	today := models.DateOf(now)
	events := f.cal.EventsOn(today)
	if len(events) != 1 || events[0].Text != "Dentist" || events[0].Time.String() != "09:30" {
		t.Fatalf("events = %+v", events)
	}
	if m.month.Counts[1] != 1 {
		t.Errorf("month counts = %v", m.month.Counts)
	}

	m = press(t, m, runes("a"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.state != constants.StateCalendar || m.form != nil {
		t.Errorf("esc should close the form, state = %v", m.state)
	}
}

func TestDefaultSlot(t *testing.T) {
	d, _ := models.ParseDate("2024-05-01")
	tests := []struct {
		now  time.Time
		date models.Date
		want string
	}{
		{time.Date(2024, 5, 1, 9, 10, 0, 0, time.Local), d, "09:30"},
		{time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local), d, "10:00"},
		{time.Date(2024, 5, 1, 23, 45, 0, 0, time.Local), d, "23:30"},
		{time.Date(2024, 5, 1, 9, 10, 0, 0, time.Local), d.AddDays(1), "09:00"},
	}
	for _, tt := range tests {
		if got := defaultSlot(tt.date, tt.now).String(); got != tt.want {
			t.Errorf("defaultSlot(%s, %s) = %s, want %s", tt.date, tt.now.Format("15:04"), got, tt.want)
		}
	}
}

func TestDictationAppendsFinalText(t *testing.T) {
	rec := &fakeRecognizer{finalOnStop: "at noon"}
	m, _ := newTestModel(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local), func(o *Options) {
		o.NewRecognizer = func() (speech.Recognizer, error) { return rec, nil }
	})

	m = press(t, m, runes("a"))
	m.eventForm.Text = "Dentist"

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if !rec.started {
		t.Fatal("recognizer not started")
	}

	rec.partial("at")
	m, _ = update(t, m, <-m.async)
	if m.partial != "at" {
		t.Errorf("partial = %q", m.partial)
	}
	if m.eventForm.Text != "Dentist" {
		t.Errorf("partial results must not change the text: %q", m.eventForm.Text)
	}

	m, stop := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if stop == nil {
		t.Fatal("expected stop command")
	}
	stopped := stop()
	m, _ = update(t, m, <-m.async)
	m, _ = update(t, m, stopped)

	if m.eventForm.Text != "Dentist at noon" {
		t.Errorf("text = %q", m.eventForm.Text)
	}
	if m.partial != "" {
		t.Errorf("partial not cleared: %q", m.partial)
	}
}

func TestDictationFailureKeepsText(t *testing.T) {
	rec := &fakeRecognizer{stopErr: errors.New("model overloaded")}
	m, _ := newTestModel(t, time.Now(), func(o *Options) {
		o.NewRecognizer = func() (speech.Recognizer, error) { return rec, nil }
	})

	m = press(t, m, runes("a"))
	m.eventForm.Text = "Dentist"
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m, stop := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m, _ = update(t, m, stop())

	if !strings.Contains(m.status, "model overloaded") {
		t.Errorf("status = %q", m.status)
	}
	if m.eventForm.Text != "Dentist" {
		t.Errorf("text changed to %q", m.eventForm.Text)
	}
}

func TestDictationUnavailableWarnsOnce(t *testing.T) {
	m, _ := newTestModel(t, time.Now())
	m = press(t, m, runes("a"))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if !strings.Contains(m.status, "Dictation unavailable") {
		t.Fatalf("status = %q", m.status)
	}
	m.status = ""
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.status != "" {
		t.Errorf("second attempt warned again: %q", m.status)
	}
}

func TestAbandonedDictationDropsLateResults(t *testing.T) {
	rec := &fakeRecognizer{}
	m, _ := newTestModel(t, time.Now(), func(o *Options) {
		o.NewRecognizer = func() (speech.Recognizer, error) { return rec, nil }
	})
	m = press(t, m, runes("a"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})

	rec.final("too late")
	m, _ = update(t, m, <-m.async)
	m = press(t, m, runes("a"))
	if m.eventForm.Text != "" {
		t.Errorf("late result leaked into a new form: %q", m.eventForm.Text)
	}
}

func TestDeleteEventWithConfirmation(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	m, f := newTestModel(t, now)
	d := mustAdd(t, f.cal, "2024-05-01", "09:00", "Standup")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != constants.StateDay {
		t.Fatalf("enter on the calendar should open the day, state = %v", m.state)
	}

	m = press(t, m, runes("d"))
	if m.state != constants.StateConfirmDelete {
		t.Fatalf("state = %v, want confirm", m.state)
	}
	m = press(t, m, runes("n"))
	if len(f.cal.EventsOn(d)) != 1 || m.state != constants.StateDay {
		t.Fatal("declining must keep the event")
	}

	m = press(t, m, runes("d"))
	m = press(t, m, runes("y"))
	if len(f.cal.EventsOn(d)) != 0 {
		t.Error("event not deleted")
	}
	if m.state != constants.StateDay {
		t.Errorf("state = %v", m.state)
	}
}

func TestRecordMemo(t *testing.T) {
	m, f := newTestModel(t, time.Now(), func(o *Options) {
		o.CaptureSource = func() (recorder.Source, error) { return fakeSource{data: "OPUS"}, nil }
	})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.state != constants.StateMemos {
		t.Fatalf("state = %v", m.state)
	}

	m = press(t, m, runes("r"))
	if m.recorder == nil {
		t.Fatalf("not recording, status %q", m.status)
	}
	m = press(t, m, runes("r"))
	if m.recorder != nil {
		t.Fatal("still recording")
	}
	list := f.lib.List()
	if len(list) != 1 {
		t.Fatalf("memos = %d, status %q", len(list), m.status)
	}
	_, data, err := f.lib.Audio(list[0].ID)
	if err != nil || string(data) != "OPUS" {
		t.Errorf("audio = %q, %v", data, err)
	}

	m = press(t, m, runes("d"))
	m = press(t, m, runes("y"))
	if len(f.lib.List()) != 0 {
		t.Error("memo not deleted")
	}
}

func TestRecordMemoWithoutCapture(t *testing.T) {
	m, _ := newTestModel(t, time.Now())
	m.state = constants.StateMemos
	m = press(t, m, runes("r"))
	if m.recorder != nil {
		t.Fatal("recording without a capture source")
	}
	if !strings.Contains(m.status, "not available") {
		t.Errorf("status = %q", m.status)
	}
}

func TestSpeakDay(t *testing.T) {
	s := &fakeSpeaker{}
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	m, f := newTestModel(t, now, func(o *Options) { o.Speaker = s })
	d := mustAdd(t, f.cal, "2024-05-01", "09:00", "Standup")

	m.state = constants.StateDay
	m, cmd := update(t, m, runes("s"))
	m, speak := update(t, m, cmd())
	if speak == nil {
		t.Fatal("expected read-back command")
	}
	m, _ = update(t, m, speak())
	want := speech.Briefing(m.cfg.Language, d, f.cal.EventsOn(d), false)
	if len(s.spoken) != 1 || s.spoken[0] != want {
		t.Errorf("spoken = %q, want %q", s.spoken, want)
	}

	mute := &fakeSpeaker{err: errors.New("espeak-ng not found")}
	m, _ = newTestModel(t, now, func(o *Options) { o.Speaker = mute })
	if m.Init() == nil {
		t.Fatal("Init must start the tick loop")
	}
	m.state = constants.StateDay
	m = press(t, m, runes("s"))
	if !strings.Contains(m.status, "espeak-ng not found") || len(mute.spoken) != 0 {
		t.Errorf("status = %q spoken = %v", m.status, mute.spoken)
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, time.Now())
	m, cmd := update(t, m, runes("q"))
	if cmd == nil || !m.quitting {
		t.Fatal("q should quit")
	}
	if m.View() != "" {
		t.Error("view after quit should be empty")
	}

	m, _ = newTestModel(t, time.Now())
	m = press(t, m, runes("a"))
	m, _ = update(t, m, runes("q"))
	if m.quitting {
		t.Error("q inside the form must be typed, not quit")
	}
}
