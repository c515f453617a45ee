package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func (a *Audio) SaveWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	data := make([]int, len(a.Samples))
	for i, sample := range a.Samples {
		data[i] = int(clamp(sample) * math.MaxInt16)
	}

	encoder := wav.NewEncoder(f, a.SampleRate, BitsPerSample, NumChannels, 1)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: a.SampleRate, NumChannels: NumChannels},
		SourceBitDepth: BitsPerSample,
	}

	if err := encoder.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize wav: %w", err)
	}

	return f.Close()
}

func LoadWAV(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("wav has no channel information: %s", path)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(decoder.BitDepth)
	}

	channels := buf.Format.NumChannels
	scale := float32(int64(1) << (bitDepth - 1))
	frames := len(buf.Data) / channels
	samples := make([]float32, frames)

	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			v := buf.Data[i*channels+ch]
			if bitDepth == 8 {
				v -= 128
			}
			sum += float32(v) / scale
		}
		samples[i] = clamp(sum / float32(channels))
	}

	return NewAudioWithSampleRate(samples, buf.Format.SampleRate), nil
}

func probeWAV(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open wav: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return Info{}, fmt.Errorf("invalid wav file: %s", path)
	}

	duration, err := decoder.Duration()
	if err != nil {
		return Info{}, fmt.Errorf("failed to read wav duration: %w", err)
	}

	return Info{
		Format:     FormatWAV,
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		Duration:   duration,
	}, nil
}
