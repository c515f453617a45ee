// Package dsp holds the signal processing used after synthesis.
package dsp

import (
	"context"
	"errors"
	"math"
	"time"

	"voicegen/internal/pkg/voicegen/audio"
)

const (
	defaultGrain   = 40 * time.Millisecond
	defaultOverlap = 4
	minGrain       = 64
	weightFloor    = 1e-6
)

var ErrEmptyAudio = errors.New("audio has no samples")

// PitchShifter shifts pitch without changing duration. Each output grain reads
// the input at the same position but at a resampled rate, and the Hann
// windowed grains are overlap-added.
type PitchShifter struct {
	Grain   time.Duration
	Overlap int
}

func NewPitchShifter() *PitchShifter {
	return &PitchShifter{Grain: defaultGrain, Overlap: defaultOverlap}
}

func (p *PitchShifter) Shift(ctx context.Context, in *audio.Audio, semitones float64) (*audio.Audio, error) {
	if in == nil || len(in.Samples) == 0 {
		return nil, ErrEmptyAudio
	}

	ratio := math.Pow(2, semitones/12)
	n := len(in.Samples)

	grain := int(float64(in.SampleRate) * p.grain().Seconds())
	if grain < minGrain {
		grain = minGrain
	}
	overlap := p.Overlap
	if overlap < 2 {
		overlap = defaultOverlap
	}
	hop := grain / overlap

	window := hann(grain)
	out := make([]float32, n)
	weights := make([]float32, n)

	for start := 0; start < n; start += hop {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := 0; i < grain; i++ {
			o := start + i
			if o >= n {
				break
			}
			w := window[i]
			out[o] += interpolate(in.Samples, float64(start)+float64(i)*ratio) * w
			weights[o] += w
		}
	}

	for i := range out {
		if weights[i] > weightFloor {
			out[i] /= weights[i]
		}
	}

	return audio.NewAudioWithSampleRate(out, in.SampleRate), nil
}

func (p *PitchShifter) grain() time.Duration {
	if p.Grain <= 0 {
		return defaultGrain
	}
	return p.Grain
}

func hann(size int) []float32 {
	window := make([]float32, size)
	for i := range window {
		window[i] = float32(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size)))
	}
	return window
}

func interpolate(samples []float32, pos float64) float32 {
	idx := int(pos)
	if idx < 0 || idx >= len(samples) {
		return 0
	}
	frac := float32(pos - float64(idx))
	next := float32(0)
	if idx+1 < len(samples) {
		next = samples[idx+1]
	}
	return samples[idx]*(1-frac) + next*frac
}
