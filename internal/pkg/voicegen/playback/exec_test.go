//go:build !windows

package playback_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicegen/internal/pkg/voicegen/audio"
	"voicegen/internal/pkg/voicegen/playback"
)

func wavFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output.wav")
	require.NoError(t, audio.NewAudio(make([]float32, 1000)).SaveWAV(path))
	return path
}

func TestExecPlayerRunsToCompletion(t *testing.T) {
	t.Parallel()

	p := playback.NewExecPlayer([]string{"sh", "-c", "exec sleep 0.05", "player"})
	require.NoError(t, p.Load(wavFile(t)))
	require.NoError(t, p.Play())
	assert.True(t, p.Busy())

	require.Eventually(t, func() bool { return !p.Busy() }, 2*time.Second, 5*time.Millisecond)
}

func TestExecPlayerPauseAndStop(t *testing.T) {
	t.Parallel()

	p := playback.NewExecPlayer([]string{"sh", "-c", "exec sleep 5", "player"})
	require.NoError(t, p.Load(wavFile(t)))
	require.NoError(t, p.Play())

	require.NoError(t, p.Pause())
	assert.True(t, p.Busy())
	require.NoError(t, p.Unpause())

	require.NoError(t, p.Pause())
	require.NoError(t, p.Stop())
	assert.False(t, p.Busy())

	require.NoError(t, p.Unload())
	require.ErrorIs(t, p.Play(), playback.ErrNotLoaded)
}

func TestExecPlayerRejectsUndecodableFile(t *testing.T) {
	t.Parallel()

	p := playback.NewExecPlayer([]string{"sh"})
	err := p.Load(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
}

func TestExecPlayerMissingCommand(t *testing.T) {
	t.Parallel()

	p := playback.NewExecPlayer([]string{"definitely-not-a-player-binary"})
	require.Error(t, p.Load(wavFile(t)))
}
