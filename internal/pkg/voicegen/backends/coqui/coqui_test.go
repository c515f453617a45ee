package coqui_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicegen/internal/pkg/voicegen/backends/coqui"
	"voicegen/internal/pkg/voicegen/engine"
)

// fakeTTS writes a shell script that records its arguments and the checkpoint
// environment, then writes a small payload to --out_path.
func fakeTTS(t *testing.T, exitCode int) (binary, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a unix shell")
	}

	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args.txt")
	binary = filepath.Join(dir, "tts")

	script := fmt.Sprintf(`#!/bin/sh
printf '%%s\n' "$@" > %q
echo "trust=${TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD:-}" >> %q
if [ %d -ne 0 ]; then
  echo "Traceback (most recent call last):" >&2
  echo "ValueError: Language tlh is not supported." >&2
  exit %d
fi
while [ $# -gt 0 ]; do
  if [ "$1" = "--out_path" ]; then printf 'RIFFfake' > "$2"; fi
  shift
done
`, argsFile, argsFile, exitCode, exitCode)

	require.NoError(t, os.WriteFile(binary, []byte(script), 0o700))
	return binary, argsFile
}

func readArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestEngineGenerateStandard(t *testing.T) {
	t.Parallel()

	binary, argsFile := fakeTTS(t, 0)
	eng, err := coqui.NewEngine(engine.EngineConfig{Binary: binary})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "original_output.wav")
	err = eng.Generate(context.Background(), engine.Request{
		Text:    "Hello world",
		Model:   "tts_models/en/vctk/vits",
		Speaker: "p226",
		Device:  engine.DeviceCPU,
	}, out)
	require.NoError(t, err)

	args := readArgs(t, argsFile)
	assert.Equal(t, []string{
		"--text", "Hello world",
		"--model_name", "tts_models/en/vctk/vits",
		"--out_path", out,
		"--progress_bar", "False",
		"--speaker_idx", "p226",
		"--device", "cpu",
		"trust=",
	}, args)
	assert.FileExists(t, out)
}

func TestEngineCloneScopesCheckpointTrust(t *testing.T) {
	t.Parallel()

	binary, argsFile := fakeTTS(t, 0)
	eng, err := coqui.NewEngine(engine.EngineConfig{Binary: binary})
	require.NoError(t, err)

	cloner, ok := eng.(engine.VoiceCloningEngine)
	require.True(t, ok)

	out := filepath.Join(t.TempDir(), "clone.wav")
	err = cloner.GenerateWithReference(context.Background(), engine.Request{
		Text:           "Hi",
		Model:          "tts_models/multilingual/multi-dataset/xtts_v2",
		ReferenceAudio: "/samples/me.wav",
		Language:       "en",
		Device:         engine.DeviceGPU,
		Load:           engine.LoadOptions{TrustCheckpoint: true},
	}, out)
	require.NoError(t, err)

	args := readArgs(t, argsFile)
	assert.Contains(t, args, "--speaker_wav")
	assert.Contains(t, args, "/samples/me.wav")
	assert.Contains(t, args, "--language_idx")
	assert.Equal(t, "trust=1", args[len(args)-1])
	_, set := os.LookupEnv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD")
	assert.False(t, set, "override must not leak into this process")

	// A following standard request runs without the override.
	require.NoError(t, eng.Generate(context.Background(), engine.Request{Text: "x", Model: "m"}, out))
	args = readArgs(t, argsFile)
	assert.Equal(t, "trust=", args[len(args)-1])
}

func TestEngineCloneRequiresReference(t *testing.T) {
	t.Parallel()

	binary, _ := fakeTTS(t, 0)
	eng, err := coqui.NewEngine(engine.EngineConfig{Binary: binary})
	require.NoError(t, err)

	err = eng.(engine.VoiceCloningEngine).GenerateWithReference(context.Background(), engine.Request{Text: "Hi"}, "out.wav")
	require.ErrorIs(t, err, coqui.ErrNoReference)
}

func TestEngineReportsProcessFailure(t *testing.T) {
	t.Parallel()

	binary, _ := fakeTTS(t, 3)
	eng, err := coqui.NewEngine(engine.EngineConfig{Binary: binary})
	require.NoError(t, err)

	err = eng.Generate(context.Background(), engine.Request{Text: "Hi", Model: "m"}, filepath.Join(t.TempDir(), "o.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Language tlh is not supported")
}

func TestNewEngineMissingBinary(t *testing.T) {
	t.Parallel()

	_, err := coqui.NewEngine(engine.EngineConfig{Binary: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
}

func TestServerEngineGenerate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tts", r.URL.Path)
		assert.Equal(t, "Hello world", r.URL.Query().Get("text"))
		assert.Equal(t, "p226", r.URL.Query().Get("speaker_id"))
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFFdata"))
	}))
	defer server.Close()

	eng, err := coqui.NewServerEngine(engine.EngineConfig{ServerURL: server.URL + "/"})
	require.NoError(t, err)
	defer eng.Close()

	_, cloning := eng.(engine.VoiceCloningEngine)
	assert.False(t, cloning)

	out := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, eng.Generate(context.Background(), engine.Request{Text: "Hello world", Speaker: "p226"}, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(data))
}

func TestServerEngineErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	eng, err := coqui.NewServerEngine(engine.EngineConfig{ServerURL: server.URL})
	require.NoError(t, err)

	err = eng.Generate(context.Background(), engine.Request{Text: "x"}, filepath.Join(t.TempDir(), "o.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}
