// Package postproc applies the optional pitch adjustment to a synthesized file.
package postproc

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"voicegen/internal/pkg/voicegen/audio"
	"voicegen/internal/pkg/voicegen/errs"
	"voicegen/internal/pkg/voicegen/output"
)

const (
	MinFactor = 0.5
	MaxFactor = 1.5

	// Factors this close to 1 are treated as no change.
	identityTolerance = 0.01
)

type Shifter interface {
	Shift(ctx context.Context, in *audio.Audio, semitones float64) (*audio.Audio, error)
}

type Processor struct {
	shifter Shifter
}

func NewProcessor(shifter Shifter) *Processor {
	return &Processor{shifter: shifter}
}

// Semitones converts a frequency factor into a pitch shift.
func Semitones(factor float64) float64 {
	return 12 * math.Log2(factor)
}

// IsIdentity reports whether factor leaves the audio untouched.
func IsIdentity(factor float64) bool {
	return math.Abs(factor-1.0) <= identityTolerance
}

// Adjust writes finalPath from rawPath. The raw file is never modified.
func (p *Processor) Adjust(ctx context.Context, rawPath, finalPath string, factor float64) error {
	if IsIdentity(factor) {
		if err := output.CopyFile(rawPath, finalPath); err != nil {
			return errs.Wrap(errs.KindPostProcess, "copy", err)
		}
		return nil
	}

	if factor <= 0 {
		return errs.Newf(errs.KindPostProcess, "", "invalid pitch factor %.2f", factor)
	}

	in, err := audio.LoadWAV(rawPath)
	if err != nil {
		return errs.Wrap(errs.KindPostProcess, "decode", err)
	}

	shift := Semitones(factor)
	log.Debug().Float64("factor", factor).Float64("semitones", shift).Msg("Applying pitch shift")

	out, err := p.shifter.Shift(ctx, in, shift)
	if err != nil {
		return errs.Wrap(errs.KindPostProcess, "pitch shift", err)
	}

	if err := out.SaveWAV(finalPath); err != nil {
		return errs.Wrap(errs.KindPostProcess, "encode", err)
	}
	return nil
}
