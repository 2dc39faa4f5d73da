// Package alarm fires due calendar events as alarms.
package alarm

import (
	"sync"
	"time"

	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/models"
)

// DefaultInterval is how often the reconciler looks for due events.
const DefaultInterval = constants.TickInterval

type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads local wall time.
var SystemClock Clock = ClockFunc(time.Now)

// Surface displays at most one alarm at a time. ShowAlarm replaces
// whatever is currently shown.
type Surface interface {
	ShowAlarm(models.Alarm)
	DismissAlarm()
}

// Cue is an audible signal that loops from Start until Stop. Stop rewinds.
type Cue interface {
	Start() error
	Stop()
}

// EventSource claims the first unalerted event due at t on d.
// *calendar.Store implements it.
type EventSource interface {
	Reconcile(d models.Date, t models.TimeOfDay) (models.Event, bool)
}

type Reconciler struct {
	events  EventSource
	clock   Clock
	surface Surface
	cue     Cue

	mu     sync.Mutex
	active *models.Alarm
}

type Option func(*Reconciler)

func WithClock(c Clock) Option {
	return func(r *Reconciler) { r.clock = c }
}

func WithCue(c Cue) Option {
	return func(r *Reconciler) { r.cue = c }
}

func New(events EventSource, surface Surface, opts ...Option) *Reconciler {
	r := &Reconciler{
		events:  events,
		clock:   SystemClock,
		surface: surface,
		cue:     NopCue{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.surface == nil {
		r.surface = LogSurface{}
	}
	return r
}

// Tick runs one reconciliation pass. At most one event fires per call.
func (r *Reconciler) Tick() (models.Alarm, bool) {
	now := r.clock.Now()
	today := models.DateOf(now)
	nowT := models.TimeOfDayOf(now)

	// The event is marked alerted and persisted before anything is shown,
	// so a concurrent tick can never fire it twice.
	e, ok := r.events.Reconcile(today, nowT)
	if !ok {
		return models.Alarm{}, false
	}

	a := models.AlarmFor(e)
	r.mu.Lock()
	r.active = &a
	r.mu.Unlock()

	logger.Info("Alarm", "date", today, "time", a.Time, "text", a.Text)
	r.surface.ShowAlarm(a)
	if err := r.cue.Start(); err != nil {
		logger.Warn("Alarm sound failed", "error", err)
	}
	return a, true
}

// Dismiss hides the current alarm and silences the cue. Events stay
// alerted.
func (r *Reconciler) Dismiss() {
	r.mu.Lock()
	r.active = nil
	r.mu.Unlock()

	r.surface.DismissAlarm()
	r.cue.Stop()
}

// Active returns the alarm currently on display.
func (r *Reconciler) Active() (models.Alarm, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return models.Alarm{}, false
	}
	return *r.active, true
}
