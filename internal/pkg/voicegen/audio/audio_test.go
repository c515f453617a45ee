package audio_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicegen/internal/pkg/voicegen/audio"
)

func sine(n, rate int, freq float64) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return samples
}

func TestSaveAndLoadWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tone.wav")
	original := audio.NewAudioWithSampleRate(sine(22050, 22050, 440), 22050)

	require.NoError(t, original.SaveWAV(path))

	loaded, err := audio.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 22050, loaded.SampleRate)
	require.Len(t, loaded.Samples, len(original.Samples))
	for i := 0; i < len(original.Samples); i += 997 {
		assert.InDelta(t, original.Samples[i], loaded.Samples[i], 1.0/math.MaxInt16*2)
	}
	assert.InDelta(t, 1.0, loaded.Duration(), 0.001)
}

func TestSaveWAVClampsOutOfRangeSamples(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "loud.wav")
	require.NoError(t, audio.NewAudio([]float32{2.0, -3.0, 0}).SaveWAV(path))

	loaded, err := audio.LoadWAV(path)
	require.NoError(t, err)
	require.Len(t, loaded.Samples, 3)
	assert.InDelta(t, 1.0, loaded.Samples[0], 0.001)
	assert.InDelta(t, -1.0, loaded.Samples[1], 0.001)
}

func TestProbe(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "half.wav")
	require.NoError(t, audio.NewAudioWithSampleRate(make([]float32, 11025), 22050).SaveWAV(path))

	info, err := audio.Probe(path)
	require.NoError(t, err)
	assert.Equal(t, audio.FormatWAV, info.Format)
	assert.Equal(t, 22050, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.InDelta(t, float64(500*time.Millisecond), float64(info.Duration), float64(5*time.Millisecond))

	_, err = audio.Probe(filepath.Join(dir, "missing.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.wav")

	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("not a riff file"), 0o600))
	_, err = audio.Probe(garbage)
	require.Error(t, err)
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	format, err := audio.FormatOf("Sample.MP3")
	require.NoError(t, err)
	assert.Equal(t, audio.FormatMP3, format)

	_, err = audio.FormatOf("notes.txt")
	assert.Error(t, err)
}
