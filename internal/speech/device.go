package speech

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/julianstephens/daybell/internal/logger"
)

// Test seams.
var (
	lookPath     = exec.LookPath
	startCommand = func(ctx context.Context, name string, args ...string) (io.ReadCloser, func() error, error) {
		cmd := exec.CommandContext(ctx, name, args...)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, nil, err
		}
		return stdout, cmd.Wait, nil
	}
)

// deviceResult is one line printed by an on-device recognizer.
type deviceResult struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// DeviceRecognizer runs a local recognizer command that prints one JSON
// object per line. The language tag is passed as the last argument.
type DeviceRecognizer struct {
	callbacks
	argv []string
	lang string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

func NewDevice(command, lang string) *DeviceRecognizer {
	return &DeviceRecognizer{argv: strings.Fields(command), lang: lang}
}

func (d *DeviceRecognizer) Available() error {
	if len(d.argv) == 0 {
		return fmt.Errorf("%w: speech.device_command is not set", ErrUnavailable)
	}
	if _, err := lookPath(d.argv[0]); err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnavailable, d.argv[0])
	}
	return nil
}

func (d *DeviceRecognizer) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return ErrAlreadyStarted
	}
	if err := d.Available(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	args := append(append([]string(nil), d.argv[1:]...), d.lang)
	stdout, wait, err := startCommand(ctx, d.argv[0], args...)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start recognizer: %w", err)
	}

	d.cancel = cancel
	d.done = make(chan error, 1)
	go func(done chan<- error) {
		d.read(stdout)
		err := wait()
		if ctx.Err() != nil {
			err = nil
		}
		done <- err
	}(d.done)
	return nil
}

func (d *DeviceRecognizer) read(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var res deviceResult
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			logger.Debug("Ignoring recognizer output", "line", line)
			continue
		}
		if res.Final {
			d.final(res.Text)
		} else {
			d.partial(res.Text)
		}
	}
}

// Stop ends recognition and reports a recognizer that crashed.
func (d *DeviceRecognizer) Stop() error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()
	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	if err := <-done; err != nil {
		return fmt.Errorf("recognizer failed: %w", err)
	}
	return nil
}
