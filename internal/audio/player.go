// Package audio plays alarm sounds and memo recordings through an external
// player command.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/julianstephens/daybell/internal/logger"
)

var ErrPlayerUnavailable = errors.New("no audio player available")

// Test seams.
var (
	lookPath   = exec.LookPath
	runCommand = func(ctx context.Context, name string, args ...string) error {
		return exec.CommandContext(ctx, name, args...).Run()
	}
)

// Player runs a command line such as "ffplay -nodisp -autoexit" with the
// source appended as the last argument.
type Player struct {
	argv []string
}

func NewPlayer(command string) *Player {
	return &Player{argv: strings.Fields(command)}
}

// Available reports whether the player binary can be found.
func (p *Player) Available() error {
	if len(p.argv) == 0 {
		return fmt.Errorf("%w: player command is empty", ErrPlayerUnavailable)
	}
	if _, err := lookPath(p.argv[0]); err != nil {
		return fmt.Errorf("%w: %s not found", ErrPlayerUnavailable, p.argv[0])
	}
	return nil
}

// Play blocks until src finishes or ctx is cancelled. Cancellation is not
// an error.
func (p *Player) Play(ctx context.Context, src string) error {
	if err := p.Available(); err != nil {
		return err
	}
	args := append(append([]string(nil), p.argv[1:]...), src)
	logger.Debug("Playing audio", "player", p.argv[0], "src", src)
	err := runCommand(ctx, p.argv[0], args...)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", p.argv[0], err)
	}
	return nil
}
