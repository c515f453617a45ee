package output_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicegen/internal/pkg/voicegen/errs"
	"voicegen/internal/pkg/voicegen/output"
)

func TestPrepareKeepsPathsWhenFree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.wav"), []byte("old"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "original_output.wav"), []byte("old"), 0o600))

	released := 0
	m := output.NewManager(output.Config{Dir: dir}, output.ReleaserFunc(func(context.Context) error {
		released++
		return nil
	}))

	for range 2 {
		paths, err := m.Prepare(context.Background())
		require.NoError(t, err)
		assert.False(t, paths.Renamed)
		assert.Equal(t, filepath.Join(dir, "output.wav"), paths.Final)
		assert.Equal(t, filepath.Join(dir, "original_output.wav"), paths.Raw)
	}

	assert.Equal(t, 2, released)
	assert.NoFileExists(t, filepath.Join(dir, "output.wav"))
	assert.NoFileExists(t, filepath.Join(dir, "original_output.wav"))
}

func TestPrepareWaitsForReleaseGrace(t *testing.T) {
	t.Parallel()

	m := output.NewManager(output.Config{Dir: t.TempDir(), ReleaseGrace: 50 * time.Millisecond}, nil)

	start := time.Now()
	_, err := m.Prepare(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPrepareRenamesWhenLocked(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	locked := errors.New("file in use")
	now := time.Unix(1700000000, 0)

	m := output.NewManager(output.Config{Dir: dir}, nil,
		output.WithRemove(func(string) error { return locked }),
		output.WithClock(func() time.Time { return now }),
	)

	first, err := m.Prepare(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Renamed)
	assert.Equal(t, filepath.Join(dir, "output_1700000000.wav"), first.Final)
	assert.Equal(t, filepath.Join(dir, "original_output_1700000000.wav"), first.Raw)

	// Same second: the disambiguator still has to move forward.
	second, err := m.Prepare(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Renamed)
	assert.Equal(t, filepath.Join(dir, "output_1700000001.wav"), second.Final)
	assert.Equal(t, filepath.Join(dir, "original_output_1700000001.wav"), second.Raw)

	assert.Equal(t, output.Paths{Raw: second.Raw, Final: second.Final}, m.Current())
}

func TestPrepareRenamedPathsBecomeCurrent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fail := true
	var removed []string

	m := output.NewManager(output.Config{Dir: dir}, nil,
		output.WithRemove(func(p string) error {
			removed = append(removed, p)
			if fail {
				return os.ErrPermission
			}
			return nil
		}),
		output.WithClock(func() time.Time { return time.Unix(42, 0) }),
	)

	renamed, err := m.Prepare(context.Background())
	require.NoError(t, err)
	require.True(t, renamed.Renamed)

	fail = false
	removed = nil
	next, err := m.Prepare(context.Background())
	require.NoError(t, err)
	assert.False(t, next.Renamed)
	assert.Equal(t, renamed.Final, next.Final)
	assert.Equal(t, []string{renamed.Raw, renamed.Final}, removed)
}

func TestPrepareFailsWhenDirUnusable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	m := output.NewManager(output.Config{Dir: filepath.Join(blocker, "sub")}, nil)
	_, err := m.Prepare(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindPreparation))
}

func TestSaveAs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	final := filepath.Join(dir, "output.wav")
	require.NoError(t, os.WriteFile(final, []byte("RIFF-data"), 0o600))
	artifact := &output.Artifact{FinalPath: final}

	dst := filepath.Join(dir, "copy.wav")
	require.NoError(t, output.SaveAs(artifact, dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "RIFF-data", string(got))

	require.NoError(t, output.SaveAs(artifact, final))
	got, err = os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "RIFF-data", string(got))
}

func TestSaveAsWithoutArtifact(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, output.SaveAs(nil, "x.wav"), output.ErrNoArtifact)
	require.ErrorIs(t,
		output.SaveAs(&output.Artifact{FinalPath: filepath.Join(t.TempDir(), "gone.wav")}, "x.wav"),
		output.ErrNoArtifact)
}
