package playback

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"

	"voicegen/internal/pkg/voicegen/audio"
)

var (
	DefaultCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"}

	ErrNotLoaded = errors.New("no file loaded")
)

// ExecPlayer plays a file by running an external command with the file path
// as its last argument.
type ExecPlayer struct {
	command []string

	mu     sync.Mutex
	path   string
	cmd    *exec.Cmd
	done   chan struct{}
	paused bool
}

func NewExecPlayer(command []string) *ExecPlayer {
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &ExecPlayer{command: command}
}

func (p *ExecPlayer) Load(path string) error {
	if _, err := audio.Probe(path); err != nil {
		return err
	}
	if _, err := exec.LookPath(p.command[0]); err != nil {
		return fmt.Errorf("player %q not found: %w", p.command[0], err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = path
	return nil
}

func (p *ExecPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.path == "" {
		return ErrNotLoaded
	}
	p.stopLocked()

	args := append(append([]string{}, p.command[1:]...), p.path)
	// #nosec G204 -- the player command comes from local configuration
	cmd := exec.Command(p.command[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}

	done := make(chan struct{})
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug().Err(err).Msg("Player exited")
		}
		close(done)
	}()

	p.cmd = cmd
	p.done = done
	p.paused = false
	return nil
}

func (p *ExecPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.runningLocked() || p.paused {
		return nil
	}
	if err := suspend(p.cmd.Process); err != nil {
		return fmt.Errorf("failed to pause player: %w", err)
	}
	p.paused = true
	return nil
}

func (p *ExecPlayer) Unpause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.runningLocked() || !p.paused {
		return nil
	}
	if err := resume(p.cmd.Process); err != nil {
		return fmt.Errorf("failed to resume player: %w", err)
	}
	p.paused = false
	return nil
}

func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *ExecPlayer) Unload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.path = ""
	return nil
}

// Busy reports whether the player process is still alive, paused or not.
func (p *ExecPlayer) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

func (p *ExecPlayer) runningLocked() bool {
	if p.cmd == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *ExecPlayer) stopLocked() {
	if !p.runningLocked() {
		p.cmd = nil
		return
	}
	if p.paused {
		_ = resume(p.cmd.Process)
	}
	if err := p.cmd.Process.Kill(); err != nil {
		log.Debug().Err(err).Msg("Failed to kill player")
	}
	<-p.done
	p.cmd = nil
	p.paused = false
}
