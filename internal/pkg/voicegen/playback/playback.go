// Package playback drives an audio player from the UI loop and detects the
// end of playback by polling.
package playback

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"voicegen/internal/pkg/voicegen/errs"
	"voicegen/internal/pkg/voicegen/output"
	"voicegen/internal/pkg/voicegen/ui"
)

const (
	DefaultPollInterval = 100 * time.Millisecond

	MsgPlaying  = "Playing audio..."
	MsgPaused   = "Playback paused"
	MsgFinished = "Playback finished"
	MsgStopped  = "Playback stopped"
)

type Player interface {
	Load(path string) error
	Play() error
	Pause() error
	Unpause() error
	Stop() error
	Unload() error
	Busy() bool
}

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Controller is the playback session. Every method except Release runs on the
// loop goroutine.
type Controller struct {
	loop     *ui.Loop
	surface  ui.Surface
	player   Player
	interval time.Duration

	artifact *output.Artifact
	state    State
	polling  bool
}

type Option func(*Controller)

func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

func NewController(loop *ui.Loop, surface ui.Surface, player Player, opts ...Option) *Controller {
	c := &Controller{
		loop:     loop,
		surface:  surface,
		player:   player,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Artifact() *output.Artifact {
	return c.artifact
}

// SetArtifact replaces the audio that Play starts. A nil artifact makes Play
// report that nothing has been generated yet.
func (c *Controller) SetArtifact(artifact *output.Artifact) {
	c.artifact = artifact
}

func (c *Controller) Play() error {
	switch c.state {
	case Playing:
		return nil
	case Paused:
		if err := c.player.Unpause(); err != nil {
			return c.failed("unpause", err)
		}
	default:
		if c.artifact == nil {
			c.surface.SetStatus(output.MsgNoArtifact)
			return output.ErrNoArtifact
		}
		if _, err := os.Stat(c.artifact.FinalPath); err != nil {
			c.surface.SetStatus(output.MsgNoArtifact)
			return output.ErrNoArtifact
		}
		if err := c.player.Load(c.artifact.FinalPath); err != nil {
			return c.failed("load", err)
		}
		if err := c.player.Play(); err != nil {
			return c.failed("play", err)
		}
	}

	c.state = Playing
	c.surface.SetEnabled(ui.ActionPlay, false)
	c.surface.SetEnabled(ui.ActionPause, true)
	c.surface.SetEnabled(ui.ActionStop, true)
	c.surface.SetStatus(MsgPlaying)
	c.schedulePoll()
	return nil
}

func (c *Controller) Pause() error {
	if c.state != Playing {
		return nil
	}
	if err := c.player.Pause(); err != nil {
		return c.failed("pause", err)
	}
	c.state = Paused
	c.surface.SetEnabled(ui.ActionPlay, true)
	c.surface.SetStatus(MsgPaused)
	return nil
}

func (c *Controller) Stop() error {
	if c.state == Stopped {
		return nil
	}
	if err := c.player.Stop(); err != nil {
		return c.failed("stop", err)
	}
	c.state = Stopped
	c.idleButtons()
	c.surface.SetStatus(MsgStopped)
	return nil
}

// Release stops playback and lets go of the file so it can be replaced. It
// hops onto the loop, so it must be called from another goroutine.
func (c *Controller) Release(ctx context.Context) error {
	var err error
	if callErr := c.loop.Call(ctx, func() { err = c.release() }); callErr != nil {
		return callErr
	}
	return err
}

func (c *Controller) release() error {
	var stopErr error
	if c.state != Stopped {
		stopErr = c.player.Stop()
		c.state = Stopped
	}
	return errors.Join(stopErr, c.player.Unload())
}

func (c *Controller) schedulePoll() {
	if c.polling {
		return
	}
	c.polling = true
	c.loop.After(c.interval, c.poll)
}

func (c *Controller) poll() {
	c.polling = false

	switch c.state {
	case Playing:
		if !c.player.Busy() {
			c.state = Stopped
			c.idleButtons()
			c.surface.SetStatus(MsgFinished)
			return
		}
	case Paused:
	default:
		return
	}
	c.schedulePoll()
}

func (c *Controller) idleButtons() {
	c.surface.SetEnabled(ui.ActionPlay, true)
	c.surface.SetEnabled(ui.ActionPause, false)
	c.surface.SetEnabled(ui.ActionStop, false)
}

func (c *Controller) failed(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("Playback failed")
	c.surface.SetStatus("Error playing audio: " + err.Error())
	return errs.Wrap(errs.KindPlayback, op, err)
}
