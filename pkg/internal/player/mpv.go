package player

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/tvloop/tvloop/pkg/configs"
)

// ExecPlayback renders clips by shelling out to an external player, mpv by
// default. Each Play spawns one process; canceling the context kills it.
type ExecPlayback struct {
	command string
}

// NewExecPlayback creates an ExecPlayback using the configured command.
func NewExecPlayback(cfg *configs.PlayerConfig) *ExecPlayback {
	return &ExecPlayback{command: cfg.Command}
}

// Play runs the player process to completion. Fullscreen, no terminal UI,
// and no held window after the clip ends, so the sequencer regains control
// the moment playback finishes.
func (p *ExecPlayback) Play(ctx context.Context, url string) error {
	cmd := exec.CommandContext(ctx, p.command, "--fs", "--no-terminal", "--keep-open=no", url)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("%s: %w", p.command, err)
	}

	return nil
}
