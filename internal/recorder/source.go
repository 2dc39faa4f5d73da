package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/daybell/internal/logger"
)

var ErrCaptureUnavailable = errors.New("audio capture is not available on this system")

// Source produces a stream of encoded audio. Closing the stream stops
// capture; readers drain it to EOF afterwards.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

var lookPath = exec.LookPath

// CommandSource captures audio from a command that writes to stdout, such
// as ffmpeg reading the default input device.
type CommandSource struct {
	argv []string
}

func NewCommandSource(command string) *CommandSource {
	return &CommandSource{argv: strings.Fields(command)}
}

func (c *CommandSource) Available() error {
	if len(c.argv) == 0 {
		return fmt.Errorf("%w: recorder command is empty", ErrCaptureUnavailable)
	}
	if _, err := lookPath(c.argv[0]); err != nil {
		return fmt.Errorf("%w: %s not found", ErrCaptureUnavailable, c.argv[0])
	}
	return nil
}

func (c *CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := c.Available(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	// An interrupt lets encoders flush a valid trailer before exiting.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 3 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to capture audio: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start %s: %w", c.argv[0], err)
	}
	return &commandStream{ReadCloser: stdout, cmd: cmd, cancel: cancel}, nil
}

type commandStream struct {
	io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
	once   sync.Once
}

// Read reaps the process once its output is exhausted.
func (s *commandStream) Read(p []byte) (int, error) {
	n, err := s.ReadCloser.Read(p)
	if err == io.EOF {
		s.once.Do(func() {
			if werr := s.cmd.Wait(); werr != nil {
				var exitErr *exec.ExitError
				// Interrupted encoders exit non-zero.
				if !errors.As(werr, &exitErr) {
					logger.Debug("Capture command exited", "error", werr)
				}
			}
			s.cancel()
		})
	}
	return n, err
}

// Close interrupts the capture command. Output already produced, including
// the encoder trailer, can still be read until EOF.
func (s *commandStream) Close() error {
	s.cancel()
	return nil
}
