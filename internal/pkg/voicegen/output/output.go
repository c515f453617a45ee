// Package output owns the on-disk lifecycle of generated audio files.
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"voicegen/internal/pkg/voicegen/errs"
)

const (
	DefaultFinalName    = "output.wav"
	DefaultRawName      = "original_output.wav"
	DefaultReleaseGrace = 200 * time.Millisecond

	filePermissions = 0o644
	dirPermissions  = 0o755
)

// MsgNoArtifact is shown when playback or saving is requested before any audio exists.
const MsgNoArtifact = "No audio file available. Generate speech first."

var ErrNoArtifact = errors.New("no audio file available")

// Releaser lets go of any open handle on the current output files.
type Releaser interface {
	Release(ctx context.Context) error
}

type ReleaserFunc func(ctx context.Context) error

func (f ReleaserFunc) Release(ctx context.Context) error {
	return f(ctx)
}

type Paths struct {
	Raw     string
	Final   string
	Renamed bool
}

type Artifact struct {
	RawPath   string
	FinalPath string
	CreatedAt time.Time
}

type Config struct {
	Dir          string
	FinalName    string
	RawName      string
	ReleaseGrace time.Duration
}

type Manager struct {
	cfg      Config
	releaser Releaser

	mu      sync.Mutex
	current Paths
	last    int64

	remove func(string) error
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

type Option func(*Manager)

func WithRemove(fn func(string) error) Option {
	return func(m *Manager) { m.remove = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(m *Manager) { m.now = fn }
}

func NewManager(cfg Config, releaser Releaser, opts ...Option) *Manager {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.FinalName == "" {
		cfg.FinalName = DefaultFinalName
	}
	if cfg.RawName == "" {
		cfg.RawName = DefaultRawName
	}
	if cfg.ReleaseGrace < 0 {
		cfg.ReleaseGrace = 0
	}

	m := &Manager{
		cfg:      cfg,
		releaser: releaser,
		current: Paths{
			Raw:   filepath.Join(cfg.Dir, cfg.RawName),
			Final: filepath.Join(cfg.Dir, cfg.FinalName),
		},
		remove: os.Remove,
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the paths the next Prepare starts from.
func (m *Manager) Current() Paths {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Prepare frees the output paths for a new generation. When a stale file cannot
// be deleted the manager moves to a fresh timestamped pair instead of failing.
func (m *Manager) Prepare(ctx context.Context) (Paths, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.cfg.Dir, dirPermissions); err != nil {
		return Paths{}, errs.Wrap(errs.KindPreparation, "create output dir", err)
	}

	if m.releaser != nil {
		if err := m.releaser.Release(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to release playback before overwrite")
		}
	}
	if err := m.sleep(ctx, m.cfg.ReleaseGrace); err != nil {
		return Paths{}, errs.Wrap(errs.KindPreparation, "release grace", err)
	}

	paths := Paths{Raw: m.current.Raw, Final: m.current.Final}

	var failed error
	for _, p := range []string{paths.Raw, paths.Final} {
		if err := m.remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			failed = err
			break
		}
	}

	if failed != nil {
		n := m.nextStamp()
		paths = Paths{
			Raw:     filepath.Join(m.cfg.Dir, fmt.Sprintf("original_output_%d.wav", n)),
			Final:   filepath.Join(m.cfg.Dir, fmt.Sprintf("output_%d.wav", n)),
			Renamed: true,
		}
		log.Warn().Err(failed).Str("final", paths.Final).Msg("Could not remove stale output, switching files")
	}

	m.current = Paths{Raw: paths.Raw, Final: paths.Final}
	return paths, nil
}

func (m *Manager) nextStamp() int64 {
	n := m.now().Unix()
	if n <= m.last {
		n = m.last + 1
	}
	m.last = n
	return n
}

// SaveAs copies the artifact's final file to dst.
func SaveAs(artifact *Artifact, dst string) error {
	if artifact == nil || artifact.FinalPath == "" {
		return ErrNoArtifact
	}
	if _, err := os.Stat(artifact.FinalPath); err != nil {
		return ErrNoArtifact
	}

	srcAbs, err := filepath.Abs(artifact.FinalPath)
	if err != nil {
		return err
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	if srcAbs == dstAbs {
		return nil
	}

	return CopyFile(artifact.FinalPath, dst)
}

// CopyFile copies src to dst byte for byte, replacing dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return out.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
