package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	SampleRate    = 22050
	NumChannels   = 1
	BitsPerSample = 16
)

// Audio is a mono waveform with samples in [-1, 1].
type Audio struct {
	Samples    []float32
	SampleRate int
}

type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

type Info struct {
	Format     Format
	SampleRate int
	Channels   int
	Duration   time.Duration
}

func NewAudio(samples []float32) *Audio {
	return NewAudioWithSampleRate(samples, SampleRate)
}

func NewAudioWithSampleRate(samples []float32, sampleRate int) *Audio {
	return &Audio{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

func (a *Audio) Duration() float64 {
	if a.SampleRate == 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV, nil
	case ".mp3":
		return FormatMP3, nil
	default:
		return "", fmt.Errorf("unsupported audio format: %s", filepath.Base(path))
	}
}

// Load decodes a WAV or MP3 file into a mono waveform.
func Load(path string) (*Audio, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatMP3:
		return LoadMP3(path)
	default:
		return LoadWAV(path)
	}
}

// Probe validates that path is a decodable audio file without reading all samples.
func Probe(path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("audio file not found: %s: %w", path, err)
	}

	format, err := FormatOf(path)
	if err != nil {
		return Info{}, err
	}

	switch format {
	case FormatMP3:
		return probeMP3(path)
	default:
		return probeWAV(path)
	}
}

func clamp(sample float32) float32 {
	if sample > 1.0 {
		return 1.0
	}
	if sample < -1.0 {
		return -1.0
	}
	return sample
}
