// Package audio plays the local alert sound. The console shells out to
// whatever system player is installed rather than linking an audio stack.
package audio

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// playbackTimeout bounds a single playback; a hung player must never pile
// up goroutines behind a burst of alerts.
const playbackTimeout = 10 * time.Second

// players are tried in order; the first one found on PATH wins.
var players = []string{"paplay", "aplay", "afplay", "ffplay"}

// Player plays one alert sound.
type Player interface {
	Play() error
}

// ExecPlayer plays a sound file through the first available system player.
type ExecPlayer struct {
	soundPath string
	command   string
}

// NewExecPlayer resolves a system player for the given sound file. Returns
// an error when no known player binary is on PATH.
func NewExecPlayer(soundPath string) (*ExecPlayer, error) {
	for _, name := range players {
		if _, err := exec.LookPath(name); err == nil {
			return &ExecPlayer{soundPath: soundPath, command: name}, nil
		}
	}
	return nil, fmt.Errorf("no audio player found on PATH (tried %v)", players)
}

// Play runs the player synchronously with a timeout.
func (p *ExecPlayer) Play() error {
	ctx, cancel := context.WithTimeout(context.Background(), playbackTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.command, p.args()...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playback via %s failed: %w", p.command, err)
	}
	return nil
}

// args builds the player invocation. ffplay needs flags to run headless
// and exit when the clip ends; the other players just take the file.
func (p *ExecPlayer) args() []string {
	if p.command == "ffplay" {
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", p.soundPath}
	}
	return []string{p.soundPath}
}

// NopPlayer discards playback requests. Used when no system player is
// available or audio is disabled at startup.
type NopPlayer struct{}

func (NopPlayer) Play() error { return nil }
