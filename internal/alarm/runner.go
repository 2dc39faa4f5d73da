package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/daybell/internal/logger"
)

// Runner drives a Reconciler on a cron schedule outside the TUI.
type Runner struct {
	rec      *Reconciler
	interval time.Duration

	briefingSpec string
	briefing     func(context.Context)

	ring  time.Duration
	mu    sync.Mutex
	timer *time.Timer
}

func NewRunner(rec *Reconciler, interval time.Duration) *Runner {
	if interval < time.Second {
		interval = DefaultInterval
	}
	return &Runner{rec: rec, interval: interval}
}

// WithBriefing schedules fn on a standard five-field cron spec.
func (r *Runner) WithBriefing(spec string, fn func(context.Context)) *Runner {
	r.briefingSpec = spec
	r.briefing = fn
	return r
}

// WithAutoDismiss dismisses each alarm after d. Zero leaves alarms up until
// shutdown.
func (r *Runner) WithAutoDismiss(d time.Duration) *Runner {
	r.ring = d
	return r
}

func (r *Runner) tick() {
	if _, ok := r.rec.Tick(); !ok || r.ring <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.ring, r.rec.Dismiss)
}

func (r *Runner) stopTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Run ticks until ctx is cancelled, then waits for running jobs and
// dismisses any alarm still showing.
func (r *Runner) Run(ctx context.Context) error {
	cl := cronLogger{}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl))

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.interval), r.tick); err != nil {
		return fmt.Errorf("failed to schedule alarm check: %w", err)
	}
	if r.briefingSpec != "" && r.briefing != nil {
		if _, err := c.AddFunc(r.briefingSpec, func() { r.briefing(ctx) }); err != nil {
			return fmt.Errorf("invalid briefing schedule %q: %w", r.briefingSpec, err)
		}
	}

	logger.Info("Alarm watcher started", "interval", r.interval)
	r.tick()
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	r.stopTimer()
	r.rec.Dismiss()
	logger.Info("Alarm watcher stopped")
	return nil
}

// ValidateSpec reports whether spec parses as a five-field cron spec.
func ValidateSpec(spec string) error {
	if spec == "" {
		return nil
	}
	_, err := cron.ParseStandard(spec)
	return err
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
