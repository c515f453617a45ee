// Package coqui drives Coqui TTS models, either through the `tts` command line
// program or through a running `tts-server`.
package coqui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"voicegen/internal/pkg/voicegen/engine"
)

const (
	defaultBinary = "tts"

	// PyTorch honours this per process; it replaces patching torch.load.
	envTrustCheckpoint = "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD"

	maxOutputTail = 512
)

var (
	ErrNoReference = errors.New("reference audio is required for voice cloning")
	ErrNoOutput    = errors.New("synthesizer produced no audio")
)

func init() {
	engine.Register("coqui", NewEngine)
	engine.Register("coqui-server", NewServerEngine)
}

// Engine runs one `tts` process per request. Models are loaded by the child
// process, so nothing is shared between requests.
type Engine struct {
	binary string
}

func NewEngine(cfg engine.EngineConfig) (engine.Engine, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = defaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("coqui binary %q not found: %w", binary, err)
	}
	return &Engine{binary: path}, nil
}

func (e *Engine) Generate(ctx context.Context, req engine.Request, outPath string) error {
	return e.run(ctx, req, outPath, false)
}

func (e *Engine) GenerateWithReference(ctx context.Context, req engine.Request, outPath string) error {
	if req.ReferenceAudio == "" {
		return ErrNoReference
	}
	return e.run(ctx, req, outPath, true)
}

func (e *Engine) Info() engine.EngineInfo {
	return engine.EngineInfo{
		Name:      "coqui",
		Languages: []string{"en", "es", "fr", "de", "it", "pt", "pl", "tr", "ru", "nl", "cs", "ar", "zh-cn", "ko", "hi"},
		Cloning:   true,
	}
}

func (e *Engine) Close() error {
	return nil
}

func (e *Engine) run(ctx context.Context, req engine.Request, outPath string, clone bool) error {
	args := buildArgs(req, outPath, clone)

	// #nosec G204 -- the binary is fixed at construction, arguments are not shell interpreted
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Env = os.Environ()
	if req.Load.TrustCheckpoint {
		cmd.Env = append(cmd.Env, envTrustCheckpoint+"=1")
	}

	log.Debug().
		Str("model", req.Model).
		Str("speaker", req.Speaker).
		Bool("clone", clone).
		Str("device", string(req.Device)).
		Msg("Running coqui tts")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("coqui tts failed: %w: %s", err, tail(output))
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrNoOutput, outPath)
	}

	return nil
}

func buildArgs(req engine.Request, outPath string, clone bool) []string {
	args := []string{
		"--text", req.Text,
		"--model_name", req.Model,
		"--out_path", outPath,
		"--progress_bar", "False",
	}
	if req.Speaker != "" {
		args = append(args, "--speaker_idx", req.Speaker)
	}
	if clone {
		args = append(args, "--speaker_wav", req.ReferenceAudio)
		if req.Language != "" {
			args = append(args, "--language_idx", req.Language)
		}
	}
	if req.Device != "" && req.Device != engine.DeviceAuto {
		args = append(args, "--device", string(req.Device))
	}
	return args
}

func tail(output []byte) string {
	output = bytes.TrimSpace(output)
	if len(output) > maxOutputTail {
		output = output[len(output)-maxOutputTail:]
	}
	lines := strings.Split(string(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
