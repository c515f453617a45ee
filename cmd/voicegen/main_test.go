package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicegen/internal/pkg/voicegen/errs"
	"voicegen/internal/pkg/voicegen/synth"
	"voicegen/internal/pkg/voicegen/voices"
)

type scriptedPrompter struct {
	answers []string
	labels  []string
}

func (s *scriptedPrompter) Prompt(label string) (string, error) {
	s.labels = append(s.labels, label)
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

type recordingSynth struct {
	reqs  []synth.Request
	paths []string
	err   error
}

func (r *recordingSynth) Synthesize(_ context.Context, req synth.Request, path string) error {
	r.reqs = append(r.reqs, req)
	r.paths = append(r.paths, path)
	return r.err
}

func factory(s synthesizer) synthFactory {
	return func() (synthesizer, func(), error) { return s, func() {}, nil }
}

func TestSpeakInteractiveMale(t *testing.T) {
	t.Parallel()

	rec := &recordingSynth{}
	p := &scriptedPrompter{answers: []string{"Hello there", "greeting", " Male "}}
	var out bytes.Buffer

	file, err := speakInteractive(context.Background(), p, &out, factory(rec))
	require.NoError(t, err)
	assert.Equal(t, "greeting.wav", file)

	require.Len(t, rec.reqs, 1)
	assert.Equal(t, voices.Male, rec.reqs[0].Voice)
	assert.Equal(t, "Hello there", rec.reqs[0].Text)
	assert.False(t, rec.reqs[0].Cloned)
	assert.Equal(t, []string{"greeting.wav"}, rec.paths)
	assert.Contains(t, out.String(), "Audio successfully saved to greeting.wav")
	assert.Len(t, p.labels, 3)
}

func TestSpeakInteractiveFallsBackOnUnknownChoice(t *testing.T) {
	t.Parallel()

	rec := &recordingSynth{}
	p := &scriptedPrompter{answers: []string{"Hi", "out", "robot"}}
	var out bytes.Buffer

	_, err := speakInteractive(context.Background(), p, &out, factory(rec))
	require.NoError(t, err)
	assert.Equal(t, voices.Fallback, rec.reqs[0].Voice)
	assert.Contains(t, out.String(), "Invalid choice")
}

func TestSpeakInteractiveReportsErrors(t *testing.T) {
	t.Parallel()

	rec := &recordingSynth{err: errs.Wrap(errs.KindSynthesis, "", errors.New("model not found"))}
	p := &scriptedPrompter{answers: []string{"Hi", "out", "female"}}

	_, err := speakInteractive(context.Background(), p, io.Discard, factory(rec))
	require.Error(t, err)
	assert.Equal(t, "model not found", errs.Reason(err))

	_, err = speakInteractive(context.Background(), &scriptedPrompter{}, io.Discard, factory(rec))
	require.ErrorIs(t, err, io.EOF)
}

func TestCloneDemo(t *testing.T) {
	t.Parallel()

	rec := &recordingSynth{}
	var out bytes.Buffer
	assert.True(t, cloneDemo(context.Background(), &out, rec, "me.wav", "Hello"))

	require.Len(t, rec.reqs, 1)
	req := rec.reqs[0]
	assert.True(t, req.Cloned)
	assert.Equal(t, "me.wav", req.ReferenceAudio)
	assert.Equal(t, "en", req.Language)
	assert.Equal(t, []string{cloneDemoOutput}, rec.paths)

	failing := &recordingSynth{err: errors.New("reference audio not found")}
	out.Reset()
	assert.False(t, cloneDemo(context.Background(), &out, failing, "missing.wav", "Hello"))
	assert.Contains(t, out.String(), "Error occurred: reference audio not found")
}

func runRoot(t *testing.T, args ...string) string {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "voicegen.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backend = \"onnx\"\n"), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	require.NoError(t, root.Execute())
	return out.String()
}

func TestBackendsCommand(t *testing.T) {
	out := runRoot(t, "backends")
	assert.Contains(t, out, "  coqui\n")
	assert.Contains(t, out, "  coqui-server\n")
	assert.Contains(t, out, "* onnx\n")
}

func TestConfigCommand(t *testing.T) {
	out := runRoot(t, "config", "--device", "cpu")
	assert.Contains(t, out, "# loaded from")
	assert.Regexp(t, `backend = ['"]onnx['"]`, out)
	assert.Regexp(t, `device = ['"]cpu['"]`, out)
}

func TestVersionCommand(t *testing.T) {
	out := runRoot(t, "version")
	assert.Contains(t, out, "voicegen dev")
}

func TestScriptCommandsExitCleanlyOnBadConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")

	for _, name := range []string{"speak", "clone-demo"} {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			root := newRootCmd()
			root.SetOut(&out)
			root.SetArgs([]string{"--config", missing, name})

			require.NoError(t, root.Execute())
			assert.Contains(t, out.String(), "Error occurred: ")
			assert.Contains(t, out.String(), "absent.toml")
		})
	}
}

func TestNonScriptCommandFailsOnBadConfig(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.toml"), "backends"})

	require.Error(t, root.Execute())
}
