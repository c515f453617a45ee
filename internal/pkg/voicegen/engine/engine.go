package engine

import (
	"context"
	"time"
)

// Engine synthesizes speech from a pretrained voice and writes a WAV file.
type Engine interface {
	Generate(ctx context.Context, req Request, outPath string) error
	Info() EngineInfo
	Close() error
}

// VoiceCloningEngine additionally speaks in the timbre of a reference sample.
type VoiceCloningEngine interface {
	Engine
	GenerateWithReference(ctx context.Context, req Request, outPath string) error
}

type EngineInfo struct {
	Name      string
	Languages []string
	Cloning   bool
}

// LoadOptions is scoped to a single request. Backends must not let it leak
// into other requests.
type LoadOptions struct {
	// TrustCheckpoint allows full (non weights-only) checkpoint deserialization,
	// which the multilingual cloning model needs.
	TrustCheckpoint bool
}

type Request struct {
	Text           string
	Model          string
	Speaker        string
	Language       string
	ReferenceAudio string
	Device         Device
	Load           LoadOptions
}

type EngineConfig struct {
	Backend     string
	Binary      string
	ServerURL   string
	Timeout     time.Duration
	ModelPath   string
	LibraryPath string
}
