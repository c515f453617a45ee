package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"voicegen/internal/pkg/voicegen/engine"
	"voicegen/internal/pkg/voicegen/postproc"
	"voicegen/internal/pkg/voicegen/synth"
	"voicegen/internal/pkg/voicegen/voices"
)

type Mode int

const (
	Standard Mode = iota
	Cloned
)

func (m Mode) String() string {
	if m == Cloned {
		return "cloned"
	}
	return "standard"
}

const (
	MsgEmptyText = "Please enter some text to convert"
	MsgNoSample  = "Please select a voice sample for cloning"
	MsgBusy      = "Generation already in progress"
)

var MsgPitchRange = fmt.Sprintf("Pitch factor must be between %.1f and %.1f", postproc.MinFactor, postproc.MaxFactor)

var (
	ErrBusy       = errors.New("generation already in progress")
	ErrEmptyText  = errors.New("text is empty")
	ErrNoSample   = errors.New("no voice sample selected")
	ErrPitchRange = fmt.Errorf("pitch factor must be between %.1f and %.1f", postproc.MinFactor, postproc.MaxFactor)
)

type Request struct {
	Text           string
	Mode           Mode
	Voice          voices.VoiceType
	ReferenceAudio string
	Language       string
	PitchFactor    float64
	Device         engine.Device
}

// Validate checks the request without touching the engine or the file system.
// An unreadable reference sample surfaces later as a synthesis failure.
func (r Request) Validate() error {
	if r.Mode == Cloned && r.ReferenceAudio == "" {
		return ErrNoSample
	}
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if r.Mode == Standard && (r.PitchFactor < postproc.MinFactor || r.PitchFactor > postproc.MaxFactor) {
		return ErrPitchRange
	}
	return nil
}

// EffectivePitch is the factor handed to post-processing. Cloned voices are
// never shifted.
func (r Request) EffectivePitch() float64 {
	if r.Mode == Cloned {
		return 1.0
	}
	return r.PitchFactor
}

func (r Request) synthRequest() synth.Request {
	return synth.Request{
		Text:           strings.TrimSpace(r.Text),
		Voice:          r.Voice,
		Cloned:         r.Mode == Cloned,
		ReferenceAudio: r.ReferenceAudio,
		Language:       r.Language,
		Device:         r.Device,
	}
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, ErrEmptyText):
		return MsgEmptyText
	case errors.Is(err, ErrNoSample):
		return MsgNoSample
	case errors.Is(err, ErrBusy):
		return MsgBusy
	case errors.Is(err, ErrPitchRange):
		return MsgPitchRange
	default:
		return err.Error()
	}
}

// PitchLabel renders a pitch factor the way the pitch control shows it.
func PitchLabel(factor float64) string {
	label := fmt.Sprintf("%.1f", factor)
	switch {
	case factor < 0.9:
		return label + " (Lower)"
	case factor > 1.1:
		return label + " (Higher)"
	default:
		return label + " (Normal)"
	}
}
