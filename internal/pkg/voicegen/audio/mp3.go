package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit little endian stereo.
const mp3FrameBytes = 4

func LoadMP3(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3: %w", err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read mp3 samples: %w", err)
	}

	frames := len(pcm) / mp3FrameBytes
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(pcm[i*mp3FrameBytes:]))
		right := int16(binary.LittleEndian.Uint16(pcm[i*mp3FrameBytes+2:]))
		samples[i] = clamp((float32(left) + float32(right)) / 2 / 32768)
	}

	return NewAudioWithSampleRate(samples, decoder.SampleRate()), nil
}

func probeMP3(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open mp3: %w", err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode mp3: %w", err)
	}

	var duration time.Duration
	if rate := decoder.SampleRate(); rate > 0 {
		frames := decoder.Length() / mp3FrameBytes
		duration = time.Duration(frames) * time.Second / time.Duration(rate)
	}

	return Info{
		Format:     FormatMP3,
		SampleRate: decoder.SampleRate(),
		Channels:   2,
		Duration:   duration,
	}, nil
}
