// Package onnx runs VITS voices exported to ONNX without a Python runtime.
//
// Models live under a root directory using the Coqui cache layout, e.g.
// tts_models/en/vctk/vits is read from <root>/tts_models--en--vctk--vits/ which
// holds model.onnx, vocab.json and an optional speakers.json.
package onnx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"

	"voicegen/internal/pkg/voicegen/audio"
	"voicegen/internal/pkg/voicegen/engine"
	"voicegen/internal/pkg/voicegen/preprocess"
)

const (
	modelFile    = "model.onnx"
	vocabFile    = "vocab.json"
	speakersFile = "speakers.json"

	noiseScale  = 0.667
	lengthScale = 1.0
	noiseW      = 0.8
)

var ErrUnknownSpeaker = errors.New("unknown speaker")

func init() {
	engine.Register("onnx", NewEngine)
}

type voiceModel struct {
	session   *ort.DynamicAdvancedSession
	tokenizer *Tokenizer
	speakers  map[string]int64
	rate      int
}

type Engine struct {
	root string

	mu     sync.Mutex
	models map[string]*voiceModel
}

func getOnnxRuntimeLibPath(configured string) string {
	if configured != "" {
		return configured
	}
	if envPath := os.Getenv("ONNXRUNTIME_LIB_PATH"); envPath != "" {
		return envPath
	}

	var candidates []string
	switch runtime.GOOS {
	case "windows":
		candidates = []string{"onnxruntime.dll", "./lib/onnxruntime.dll"}
	case "darwin":
		candidates = []string{"/usr/local/lib/libonnxruntime.dylib", "/opt/homebrew/lib/libonnxruntime.dylib", "./libonnxruntime.dylib"}
	default:
		candidates = []string{"/usr/lib/libonnxruntime.so", "/usr/local/lib/libonnxruntime.so", "./libonnxruntime.so", "./lib/libonnxruntime.so"}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return candidates[0]
}

func NewEngine(cfg engine.EngineConfig) (engine.Engine, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx backend needs a models directory")
	}
	if info, err := os.Stat(cfg.ModelPath); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("onnx models directory %q is not readable", cfg.ModelPath)
	}

	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(getOnnxRuntimeLibPath(cfg.LibraryPath))
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	return &Engine{root: cfg.ModelPath, models: make(map[string]*voiceModel)}, nil
}

// ModelDir maps a model name to its directory under root.
func ModelDir(root, model string) string {
	return filepath.Join(root, strings.ReplaceAll(strings.Trim(model, "/"), "/", "--"))
}

func (e *Engine) Generate(ctx context.Context, req engine.Request, outPath string) error {
	vm, err := e.model(req.Model)
	if err != nil {
		return err
	}

	tokens := vm.tokenizer.Encode(preprocess.Normalize(req.Text, req.Language))
	if len(tokens) == 0 {
		return fmt.Errorf("failed to tokenize text")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	samples, err := vm.infer(tokens, req.Speaker)
	if err != nil {
		return err
	}

	if err := audio.NewAudioWithSampleRate(samples, vm.rate).SaveWAV(outPath); err != nil {
		return fmt.Errorf("failed to save audio: %w", err)
	}
	return nil
}

func (e *Engine) Info() engine.EngineInfo {
	return engine.EngineInfo{Name: "onnx", Languages: []string{"en"}}
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for name, vm := range e.models {
		if err := vm.session.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		delete(e.models, name)
	}
	if err := ort.DestroyEnvironment(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) model(name string) (*voiceModel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if vm, ok := e.models[name]; ok {
		return vm, nil
	}

	dir := ModelDir(e.root, name)
	cfg, err := loadModelConfig(filepath.Join(dir, vocabFile))
	if err != nil {
		return nil, err
	}

	speakers, err := loadSpeakers(filepath.Join(dir, speakersFile))
	if err != nil {
		return nil, err
	}

	inputNames := []string{"input", "input_lengths", "scales"}
	if len(speakers) > 0 {
		inputNames = append(inputNames, "sid")
	}

	session, err := ort.NewDynamicAdvancedSession(filepath.Join(dir, modelFile), inputNames, []string{"output"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", name, err)
	}

	vm := &voiceModel{
		session:   session,
		tokenizer: NewTokenizer(cfg.Symbols, cfg.AddBlank, cfg.BlankID),
		speakers:  speakers,
		rate:      cfg.SampleRate,
	}
	e.models[name] = vm

	log.Info().Str("model", name).Int("speakers", len(speakers)).Msg("Loaded ONNX voice")
	return vm, nil
}

func loadSpeakers(path string) (map[string]int64, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read speakers: %w", err)
	}

	var speakers map[string]int64
	if err := json.Unmarshal(data, &speakers); err != nil {
		return nil, fmt.Errorf("failed to parse speakers %s: %w", path, err)
	}
	return speakers, nil
}

func (vm *voiceModel) speakerID(name string) (int64, error) {
	if name == "" {
		return 0, nil
	}
	id, ok := vm.speakers[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSpeaker, name)
	}
	return id, nil
}

func (vm *voiceModel) infer(tokens []int64, speaker string) ([]float32, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(tokens))), tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	lengthsTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(len(tokens))})
	if err != nil {
		return nil, fmt.Errorf("failed to create input_lengths tensor: %w", err)
	}
	defer lengthsTensor.Destroy()

	scalesTensor, err := ort.NewTensor(ort.NewShape(3), []float32{noiseScale, lengthScale, noiseW})
	if err != nil {
		return nil, fmt.Errorf("failed to create scales tensor: %w", err)
	}
	defer scalesTensor.Destroy()

	inputs := []ort.Value{inputTensor, lengthsTensor, scalesTensor}

	if len(vm.speakers) > 0 {
		id, err := vm.speakerID(speaker)
		if err != nil {
			return nil, err
		}
		sidTensor, err := ort.NewTensor(ort.NewShape(1), []int64{id})
		if err != nil {
			return nil, fmt.Errorf("failed to create sid tensor: %w", err)
		}
		defer sidTensor.Destroy()
		inputs = append(inputs, sidTensor)
	}

	outputs := make([]ort.Value, 1)
	if err := vm.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output from model")
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	data := outputTensor.GetData()
	samples := make([]float32, len(data))
	copy(samples, data)
	return samples, nil
}
