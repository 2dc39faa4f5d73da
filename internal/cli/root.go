package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/daybell/internal/backup"
	"github.com/julianstephens/daybell/internal/calendar"
	"github.com/julianstephens/daybell/internal/config"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/memos"
	"github.com/julianstephens/daybell/internal/models"
	"github.com/julianstephens/daybell/internal/storage"
)

type Context struct {
	Config     *config.Config
	ConfigPath string
	Store      storage.Backend
	// Out receives command output; nil means stdout.
	Out io.Writer
	// Now is the wall clock; nil means time.Now.
	Now func() time.Time

	calendar *calendar.Store
	memos    *memos.Library
}

func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Stdout(), format, args...)
}

func (c *Context) Clock() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Today is the local calendar date.
func (c *Context) Today() models.Date {
	return models.DateOf(c.Clock())
}

// LoadStore opens the store, creating it on first use.
func (c *Context) LoadStore() error {
	err := c.Store.Load()
	if errors.Is(err, storage.ErrNotInitialized) {
		logger.Info("Initializing storage", "path", c.Store.GetConfigPath())
		err = c.Store.Init()
	}
	return err
}

// Calendar returns the event store, opening it on first use.
func (c *Context) Calendar() *calendar.Store {
	if c.calendar == nil {
		c.calendar = calendar.Open(c.Store)
	}
	return c.calendar
}

// Memos returns the voice memo library, opening it on first use.
func (c *Context) Memos() *memos.Library {
	if c.memos == nil {
		c.memos = memos.Open(c.Store)
	}
	return c.memos
}

// PerformAutomaticBackup takes the daily backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	path := c.Store.GetConfigPath()
	if !backup.Supported(path) {
		return
	}
	if _, err := backup.NewManager(path).AutoBackup(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ParseDay accepts YYYY-MM-DD or one of today, tomorrow and yesterday.
// Empty means today.
func ParseDay(s string, now time.Time) (models.Date, error) {
	today := models.DateOf(now)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD, today, tomorrow or yesterday)", s)
	}
	return d, nil
}
