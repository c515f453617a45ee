// Package console is the interactive front end: a line editor whose commands
// are executed on the UI loop.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"voicegen/internal/pkg/voicegen/engine"
	"voicegen/internal/pkg/voicegen/output"
	"voicegen/internal/pkg/voicegen/pipeline"
	"voicegen/internal/pkg/voicegen/playback"
	"voicegen/internal/pkg/voicegen/postproc"
	"voicegen/internal/pkg/voicegen/ui"
	"voicegen/internal/pkg/voicegen/voices"
)

const (
	maxSampleName = 40
	barWidth      = 20
)

var errQuit = errors.New("quit")

// Settings are the controls that persist between requests.
type Settings struct {
	Voice    voices.VoiceType
	Pitch    float64
	Sample   string
	Language string
	Device   engine.Device
}

type Options struct {
	Loop     *ui.Loop
	State    *ui.State
	Pipeline *pipeline.Orchestrator
	Playback *playback.Controller
	Catalog  voices.Catalog
	Defaults Settings
	GPUInfo  string
}

type Console struct {
	loop     *ui.Loop
	state    *ui.State
	pipeline *pipeline.Orchestrator
	player   *playback.Controller
	catalog  voices.Catalog
	gpuInfo  string

	// Owned by the loop goroutine.
	settings   Settings
	out        io.Writer
	lastStatus string
	prompt     func(string)
}

func New(opts Options) *Console {
	settings := opts.Defaults
	if settings.Voice == "" {
		settings.Voice = voices.Female
	}
	if settings.Pitch == 0 {
		settings.Pitch = 1.0
	}
	if settings.Language == "" {
		settings.Language = "en"
	}
	if settings.Device == "" {
		settings.Device = engine.DeviceAuto
	}

	c := &Console{
		loop:     opts.Loop,
		state:    opts.State,
		pipeline: opts.Pipeline,
		player:   opts.Playback,
		catalog:  opts.Catalog,
		gpuInfo:  opts.GPUInfo,
		settings: settings,
		out:      io.Discard,
	}
	opts.State.OnChange(c.stateChanged)
	return c
}

// SetOutput redirects command output. Call it before the loop starts.
func (c *Console) SetOutput(w io.Writer) {
	c.out = w
}

// Run starts the UI loop and reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.promptText(),
		HistoryFile:     historyFile,
		HistoryLimit:    200,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}

	var closeOnce sync.Once
	closeRL := func() { closeOnce.Do(func() { _ = rl.Close() }) }
	defer closeRL()

	c.out = rl.Stdout()
	c.prompt = func(p string) {
		rl.SetPrompt(p)
		rl.Refresh()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.loop.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return c.read(gctx, rl)
	})
	g.Go(func() error {
		<-gctx.Done()
		closeRL()
		return nil
	})

	fmt.Fprintln(rl.Stdout(), "voicegen interactive mode. Type 'help' for commands.")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Console) read(ctx context.Context, rl *readline.Instance) error {
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		if err := c.Execute(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			if errors.Is(err, ui.ErrStopped) || errors.Is(err, context.Canceled) {
				return nil
			}
			log.Debug().Err(err).Str("line", line).Msg("Command failed")
		}
	}
}

// Execute runs one command line on the UI loop and waits for it.
func (c *Console) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var cmdErr error
	if err := c.loop.Call(ctx, func() { cmdErr = c.dispatch(strings.ToLower(name), arg) }); err != nil {
		return err
	}
	return cmdErr
}

func (c *Console) dispatch(name, arg string) error {
	switch name {
	case "speak", "say":
		return c.submit(pipeline.Standard, arg)
	case "clone":
		return c.submit(pipeline.Cloned, arg)
	case "sample":
		return c.selectSample(arg)
	case "voice":
		return c.setVoice(arg)
	case "pitch":
		return c.setPitch(arg)
	case "lang", "language":
		return c.setLanguage(arg)
	case "device":
		return c.setDevice(arg)
	case "play":
		return c.player.Play()
	case "pause":
		return c.player.Pause()
	case "stop":
		return c.player.Stop()
	case "save":
		return c.save(arg)
	case "status":
		c.printStatus()
		return nil
	case "help", "?":
		c.printHelp()
		return nil
	case "quit", "exit":
		return errQuit
	default:
		c.printf("Unknown command %q. Type 'help' for commands.\n", name)
		return fmt.Errorf("unknown command %q", name)
	}
}

func (c *Console) submit(mode pipeline.Mode, text string) error {
	return c.pipeline.Submit(pipeline.Request{
		Text:           text,
		Mode:           mode,
		Voice:          c.settings.Voice,
		ReferenceAudio: c.settings.Sample,
		Language:       c.settings.Language,
		PitchFactor:    c.settings.Pitch,
		Device:         c.settings.Device,
	})
}

// selectSample accepts .wav, .mp3 or any other existing file.
func (c *Console) selectSample(path string) error {
	if path == "" {
		c.printf("Usage: sample <path to .wav or .mp3>\n")
		return fmt.Errorf("missing sample path")
	}
	path = expandHome(path)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.printf("No such file: %s\n", path)
		return fmt.Errorf("sample %s not found", path)
	}

	c.settings.Sample = path
	c.state.SetStatus("Voice sample selected: " + truncateName(filepath.Base(path)))
	return nil
}

func (c *Console) setVoice(arg string) error {
	v, err := voices.ParseVoiceType(arg)
	if err != nil {
		c.printf("Voice must be male, female or fallback\n")
		return err
	}
	c.settings.Voice = v
	c.printf("Voice: %s\n", v)
	return nil
}

func (c *Console) setPitch(arg string) error {
	f, err := strconv.ParseFloat(arg, 64)
	if err != nil || f < postproc.MinFactor || f > postproc.MaxFactor {
		c.printf("%s\n", pipeline.MsgPitchRange)
		return pipeline.ErrPitchRange
	}
	c.settings.Pitch = f
	c.printf("Pitch: %s\n", pipeline.PitchLabel(f))
	return nil
}

func (c *Console) setLanguage(arg string) error {
	lang, err := c.catalog.Language(arg)
	if err != nil {
		c.printf("Supported languages: %s\n", strings.Join(c.catalog.Languages, ", "))
		return err
	}
	c.settings.Language = lang
	c.printf("Language: %s\n", lang)
	return nil
}

func (c *Console) setDevice(arg string) error {
	switch strings.ToLower(arg) {
	case "auto", "cpu", "gpu", "cuda":
	default:
		c.printf("Device must be auto, cpu or gpu\n")
		return fmt.Errorf("unknown device %q", arg)
	}
	c.settings.Device = engine.ParseDevice(arg)
	c.printf("Device: %s\n", c.settings.Device)
	return nil
}

func (c *Console) save(dst string) error {
	if dst == "" {
		c.printf("Usage: save <path>\n")
		return fmt.Errorf("missing destination")
	}
	dst = expandHome(dst)
	if filepath.Ext(dst) == "" {
		dst += ".wav"
	}

	if err := output.SaveAs(c.player.Artifact(), dst); err != nil {
		if errors.Is(err, output.ErrNoArtifact) {
			c.state.SetStatus(output.MsgNoArtifact)
		} else {
			c.state.SetStatus("Error saving file: " + err.Error())
		}
		return err
	}
	c.state.SetStatus("Audio saved to: " + filepath.Base(dst))
	return nil
}

func (c *Console) stateChanged() {
	if c.state.Status != c.lastStatus {
		c.lastStatus = c.state.Status
		c.printf("» %s\n", c.state.Status)
	}
	if c.prompt != nil {
		c.prompt(c.promptText())
	}
}

func (c *Console) promptText() string {
	if c.pipeline != nil && c.pipeline.Busy() {
		return fmt.Sprintf("voicegen %s> ", c.state.ProgressBar(barWidth))
	}
	return "voicegen> "
}

func (c *Console) printStatus() {
	s := c.settings
	c.printf("Status:   %s\n", c.state.Status)
	c.printf("Progress: %s\n", c.state.ProgressBar(barWidth))
	if job, ok := c.pipeline.Current(); ok {
		c.printf("Job:      %s (%s)\n", job.ID, job.State)
	}
	c.printf("Playback: %s\n", c.player.State())
	if a := c.player.Artifact(); a != nil {
		c.printf("Output:   %s\n", a.FinalPath)
	}
	c.printf("Voice:    %s, pitch %s\n", s.Voice, pipeline.PitchLabel(s.Pitch))
	sample := s.Sample
	if sample == "" {
		sample = "(none)"
	}
	c.printf("Clone:    sample %s, language %s, device %s\n", sample, s.Language, s.Device)
	c.printf("GPU:      %s\n", c.gpuInfo)

	var actions []string
	for _, a := range c.state.EnabledActions() {
		actions = append(actions, string(a))
	}
	c.printf("Enabled:  %s\n", strings.Join(actions, ", "))
}

func (c *Console) printHelp() {
	c.printf(`Commands:
  speak <text>      generate speech with the selected voice and pitch
  clone <text>      generate speech in the voice of the selected sample
  sample <path>     select the voice sample used for cloning
  voice <name>      male, female or fallback
  pitch <factor>    0.5 to 1.5, 1.0 is unchanged
  lang <code>       cloning language (%s)
  device <name>     auto, cpu or gpu
  play | pause | stop
  save <path>       copy the generated audio to path
  status            show the current state
  quit
`, strings.Join(c.catalog.Languages, ", "))
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("speak"),
		readline.PcItem("clone"),
		readline.PcItem("sample"),
		readline.PcItem("voice",
			readline.PcItem("male"),
			readline.PcItem("female"),
			readline.PcItem("fallback"),
		),
		readline.PcItem("pitch"),
		readline.PcItem("lang"),
		readline.PcItem("device",
			readline.PcItem("auto"),
			readline.PcItem("cpu"),
			readline.PcItem("gpu"),
		),
		readline.PcItem("play"),
		readline.PcItem("pause"),
		readline.PcItem("stop"),
		readline.PcItem("save"),
		readline.PcItem("status"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) > maxSampleName {
		return string(runes[:maxSampleName-3]) + "..."
	}
	return name
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
