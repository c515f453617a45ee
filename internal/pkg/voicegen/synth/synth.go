// Package synth turns a validated generation request into a raw waveform file
// by calling the configured synthesis engine.
package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"voicegen/internal/pkg/voicegen/audio"
	"voicegen/internal/pkg/voicegen/engine"
	"voicegen/internal/pkg/voicegen/errs"
	"voicegen/internal/pkg/voicegen/preprocess"
	"voicegen/internal/pkg/voicegen/voices"
)

var (
	ErrEmptyText       = errors.New("text is empty")
	ErrCloneNotSupport = errors.New("the selected backend cannot clone voices")
)

type Request struct {
	Text   string
	Voice  voices.VoiceType
	Cloned bool

	ReferenceAudio string
	Language       string
	Device         engine.Device
}

type Invoker struct {
	engine       engine.Engine
	catalog      voices.Catalog
	gpuAvailable func() bool
}

type Option func(*Invoker)

// WithGPUProbe replaces the accelerator detection used to resolve devices.
func WithGPUProbe(fn func() bool) Option {
	return func(inv *Invoker) { inv.gpuAvailable = fn }
}

func NewInvoker(e engine.Engine, catalog voices.Catalog, opts ...Option) *Invoker {
	inv := &Invoker{
		engine:       e,
		catalog:      catalog,
		gpuAvailable: engine.GPUAvailable,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Synthesize blocks until the engine has written rawPath. Every failure comes
// back as a synthesis error and leaves no partial file behind.
func (inv *Invoker) Synthesize(ctx context.Context, req Request, rawPath string) (err error) {
	start := time.Now()
	defer func() {
		if err == nil {
			log.Info().Str("path", rawPath).Dur("took", time.Since(start)).Bool("cloned", req.Cloned).Msg("Synthesis finished")
			return
		}
		if rmErr := os.Remove(rawPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn().Err(rmErr).Str("path", rawPath).Msg("Failed to remove partial output")
		}
		err = errs.Wrap(errs.KindSynthesis, "", err)
	}()

	text := preprocess.Clean(req.Text)
	if text == "" {
		return ErrEmptyText
	}

	if req.Cloned {
		return inv.cloned(ctx, text, req, rawPath)
	}
	return inv.standard(ctx, text, req, rawPath)
}

func (inv *Invoker) standard(ctx context.Context, text string, req Request, rawPath string) error {
	voice, err := inv.catalog.Resolve(req.Voice)
	if err != nil {
		return err
	}

	return inv.engine.Generate(ctx, engine.Request{
		Text:    text,
		Model:   voice.Model,
		Speaker: voice.Speaker,
		Device:  engine.DeviceAuto,
	}, rawPath)
}

func (inv *Invoker) cloned(ctx context.Context, text string, req Request, rawPath string) error {
	cloner, ok := inv.engine.(engine.VoiceCloningEngine)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCloneNotSupport, inv.engine.Info().Name)
	}

	if req.ReferenceAudio == "" {
		return fmt.Errorf("no reference audio selected")
	}
	if _, err := audio.Probe(req.ReferenceAudio); err != nil {
		return fmt.Errorf("invalid reference audio: %w", err)
	}

	lang, err := inv.catalog.Language(req.Language)
	if err != nil {
		return err
	}

	device := req.Device.Resolve(inv.gpuAvailable())
	log.Debug().Str("reference", req.ReferenceAudio).Str("language", lang).Str("device", string(device)).Msg("Cloning voice")

	return cloner.GenerateWithReference(ctx, engine.Request{
		Text:           text,
		Model:          inv.catalog.Clone.Model,
		Language:       lang,
		ReferenceAudio: req.ReferenceAudio,
		Device:         device,
		Load:           engine.LoadOptions{TrustCheckpoint: true},
	}, rawPath)
}
