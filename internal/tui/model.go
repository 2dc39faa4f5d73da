package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/daybell/internal/alarm"
	"github.com/julianstephens/daybell/internal/audio"
	"github.com/julianstephens/daybell/internal/calendar"
	"github.com/julianstephens/daybell/internal/config"
	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/memos"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/recorder"
	"github.com/julianstephens/daybell/internal/speech"
	"github.com/julianstephens/daybell/internal/tui/components/daylist"
	"github.com/julianstephens/daybell/internal/tui/components/memolist"
	"github.com/julianstephens/daybell/internal/tui/components/month"
)

// Options wires the TUI to its store and devices. Only Config, Calendar and
// Memos are required.
type Options struct {
	Config   *config.Config
	Calendar *calendar.Store
	Memos    *memos.Library
	// Now is the wall clock; nil means time.Now.
	Now func() time.Time
	// Cue plays while an alarm is on screen; nil is silent.
	Cue alarm.Cue
	// Surfaces also receive every alarm, e.g. the tray notifier.
	Surfaces []alarm.Surface
	// Speaker reads schedules aloud; nil disables read-back.
	Speaker speech.Speaker
	// NewRecognizer starts dictation; nil uses speech.New with Config.
	NewRecognizer func() (speech.Recognizer, error)
	// CaptureSource opens the microphone for memos; nil uses Config.Recorder.
	CaptureSource func() (recorder.Source, error)
	// Player plays memos; nil disables playback.
	Player *audio.MemoPlayer
}

type EventFormModel struct {
	Date models.Date
	Text string
	Time models.TimeOfDay
}

type Model struct {
	cfg           *config.Config
	cal           *calendar.Store
	lib           *memos.Library
	now           func() time.Time
	rec           *alarm.Reconciler
	banner        *bannerSurface
	speaker       speech.Speaker
	speakerErr    error
	newRecognizer func() (speech.Recognizer, error)
	captureSource func() (recorder.Source, error)
	player        *audio.MemoPlayer

	state         constants.SessionState
	previousState constants.SessionState
	keys          KeyMap
	help          help.Model
	month         month.Model
	day           daylist.Model
	memoList      memolist.Model
	form          *huh.Form
	eventForm     *EventFormModel

	// Dictation results are tagged with session so that late results from
	// an abandoned form are dropped.
	recognizer      speech.Recognizer
	session         int
	partial         string
	dictationWarned bool

	recorder *recorder.Recorder

	confirmPrompt string
	pendingDelete func() error

	// async carries results from recognizer and player goroutines.
	async    chan tea.Msg
	status   string
	quitting bool
	width    int
	height   int
}

type availability interface {
	Available() error
}

func NewModel(opts Options) Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	today := models.DateOf(now())

	m := Model{
		cfg:           opts.Config,
		cal:           opts.Calendar,
		lib:           opts.Memos,
		now:           now,
		banner:        &bannerSurface{},
		speaker:       opts.Speaker,
		newRecognizer: opts.NewRecognizer,
		captureSource: opts.CaptureSource,
		player:        opts.Player,
		state:         constants.StateCalendar,
		keys:          DefaultKeyMap(),
		help:          help.New(),
		month:         month.New(today),
		day:           daylist.New(today, opts.Calendar.EventsOn(today), 0, 0),
		memoList:      memolist.New(opts.Memos.List(), 0, 0),
		async:         make(chan tea.Msg, 32),
	}
	m.month.SetCounts(m.cal.CountsForMonth(today.Year, today.Month))

	if a, ok := m.speaker.(availability); ok {
		if err := a.Available(); err != nil {
			m.speaker, m.speakerErr = nil, err
		}
	}
	if m.newRecognizer == nil {
		cfg := opts.Config
		m.newRecognizer = func() (speech.Recognizer, error) { return speech.New(cfg) }
	}
	if m.captureSource == nil {
		command := opts.Config.Recorder.Command
		m.captureSource = func() (recorder.Source, error) {
			src := recorder.NewCommandSource(command)
			if err := src.Available(); err != nil {
				return nil, err
			}
			return src, nil
		}
	}
	if m.player != nil {
		ch := m.async
		m.player.OnFinish = func(id string) { ch <- memoFinishedMsg{id: id} }
	}

	cue := opts.Cue
	if cue == nil {
		cue = alarm.NopCue{}
	}
	surface := alarm.MultiSurface{m.banner, alarm.LogSurface{}}
	surface = append(surface, opts.Surfaces...)
	m.rec = alarm.New(calendar.Shared{Store: opts.Calendar}, surface,
		alarm.WithClock(alarm.ClockFunc(now)),
		alarm.WithCue(cue),
	)
	return m
}

func (m Model) ShortHelp() []key.Binding {
	if m.banner.active() {
		return []key.Binding{m.keys.Dismiss, m.keys.Quit}
	}
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case constants.StateCalendar:
		mk := m.month.Keys()
		keys = append(keys, mk.Select, mk.PrevMonth, mk.NextMonth, m.keys.Add)
	case constants.StateDay:
		dk := m.day.Keys()
		keys = append(keys, dk.Add, dk.Delete, dk.Speak)
	case constants.StateMemos:
		mk := m.memoList.Keys()
		keys = append(keys, mk.Record, mk.Play, mk.Delete)
	case constants.StateAddEvent:
		keys = []key.Binding{m.keys.Dictate, m.keys.Cancel}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}

	var actions []key.Binding
	switch m.state {
	case constants.StateCalendar:
		mk := m.month.Keys()
		actions = []key.Binding{mk.Left, mk.Right, mk.Up, mk.Down, mk.PrevMonth, mk.NextMonth, mk.Today, mk.Select, m.keys.Add}
	case constants.StateDay:
		dk := m.day.Keys()
		actions = []key.Binding{dk.Add, dk.Delete, dk.Speak}
	case constants.StateMemos:
		mk := m.memoList.Keys()
		actions = []key.Binding{mk.Record, mk.Play, mk.Delete}
	case constants.StateAddEvent:
		actions = []key.Binding{m.keys.Dictate, m.keys.Cancel}
	}
	return [][]key.Binding{global, actions, {m.keys.Dismiss}}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), listen(m.async), m.speakCmd(models.DateOf(m.now()), true))
}

// refresh reloads every view from the stores.
func (m *Model) refresh() {
	m.refreshCalendar()
	m.memoList.SetMemos(m.lib.List())
}

func (m *Model) refreshCalendar() {
	c := m.month.Cursor
	m.month.SetCounts(m.cal.CountsForMonth(c.Year, c.Month))
	m.day.SetEvents(m.day.Date, m.cal.EventsOn(m.day.Date))
}
