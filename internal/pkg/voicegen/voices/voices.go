// Package voices maps the user facing voice choices onto concrete models.
package voices

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

type VoiceType string

const (
	Female   VoiceType = "female"
	Male     VoiceType = "male"
	Fallback VoiceType = "fallback"
)

var (
	ErrUnknownVoice    = errors.New("unknown voice")
	ErrUnsupportedLang = errors.New("unsupported language")
)

// CloneLanguages are the languages the multilingual cloning model accepts.
var CloneLanguages = []string{
	"en", "es", "fr", "de", "it", "pt", "pl", "tr", "ru", "nl", "cs", "ar", "zh-cn", "ko", "hi",
}

type Voice struct {
	Model   string
	Speaker string
}

type Catalog struct {
	Female    Voice
	Male      Voice
	Fallback  Voice
	Clone     Voice
	Languages []string
}

func DefaultCatalog() Catalog {
	return Catalog{
		Female:    Voice{Model: "tts_models/en/ljspeech/vits"},
		Male:      Voice{Model: "tts_models/en/vctk/vits", Speaker: "p226"},
		Fallback:  Voice{Model: "tts_models/en/ljspeech/fast_pitch"},
		Clone:     Voice{Model: "tts_models/multilingual/multi-dataset/xtts_v2"},
		Languages: CloneLanguages,
	}
}

func (c Catalog) Resolve(v VoiceType) (Voice, error) {
	switch v {
	case Female:
		return c.Female, nil
	case Male:
		return c.Male, nil
	case Fallback:
		return c.Fallback, nil
	default:
		return Voice{}, fmt.Errorf("%w: %q", ErrUnknownVoice, v)
	}
}

// ParseVoiceType accepts only the three named voices.
func ParseVoiceType(s string) (VoiceType, error) {
	v := VoiceType(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case Female, Male, Fallback:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVoice, s)
	}
}

// ParseChoice maps free-form input to a voice. Anything other than male or
// female selects the fallback voice; ok is false in that case.
func ParseChoice(s string) (v VoiceType, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Male):
		return Male, true
	case string(Female):
		return Female, true
	default:
		return Fallback, false
	}
}

// Language validates a clone language code and returns it in the form the
// cloning model expects, e.g. "zh-CN" becomes "zh-cn".
func (c Catalog) Language(code string) (string, error) {
	code = strings.TrimSpace(code)
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLang, code)
	}
	for _, supported := range c.Languages {
		if strings.EqualFold(tag.String(), supported) {
			return supported, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLang, code)
}
