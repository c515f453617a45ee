package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"voicegen/internal/pkg/voicegen/config"
	"voicegen/internal/pkg/voicegen/console"
	"voicegen/internal/pkg/voicegen/dsp"
	"voicegen/internal/pkg/voicegen/engine"
	"voicegen/internal/pkg/voicegen/notify"
	"voicegen/internal/pkg/voicegen/output"
	"voicegen/internal/pkg/voicegen/pipeline"
	"voicegen/internal/pkg/voicegen/playback"
	"voicegen/internal/pkg/voicegen/postproc"
	"voicegen/internal/pkg/voicegen/synth"
	"voicegen/internal/pkg/voicegen/ui"
	"voicegen/internal/pkg/voicegen/voices"
)

func newAppCmd(rt *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "app",
		Short: "Interactive console with generation, cloning and playback (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd.Context(), rt.cfg)
		},
	}
}

func runApp(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("backend", cfg.Backend).Msg("Loading TTS engine...")
	eng, err := engine.New(cfg.Backend, cfg.EngineConfig())
	if err != nil {
		return fmt.Errorf("failed to load engine %q: %w", cfg.Backend, err)
	}
	defer eng.Close()

	info := eng.Info()
	log.Debug().Str("engine", info.Name).Strs("languages", info.Languages).Bool("cloning", info.Cloning).Msg("Engine loaded")

	catalog := cfg.Catalog()
	loop := ui.NewLoop()
	state := ui.NewState()

	device := playback.NewExecPlayer(cfg.PlayerCommand())
	defer device.Unload()

	player := playback.NewController(loop, state, device,
		playback.WithPollInterval(cfg.Playback.PollInterval),
	)
	files := output.NewManager(cfg.OutputConfig(), player)

	opts := []pipeline.Option{
		pipeline.WithProgressInterval(cfg.Progress.Interval),
		pipeline.WithObserver(pipeline.ObserverFunc(journal)),
	}
	if cfg.Nats.URL != "" {
		notifier, err := notify.Connect(cfg.Nats.URL, cfg.Nats.Subject)
		if err != nil {
			log.Warn().Err(err).Msg("Job events disabled")
		} else {
			defer notifier.Close()
			opts = append(opts, pipeline.WithObserver(notifier))
			log.Info().Str("url", cfg.Nats.URL).Str("subject", cfg.Nats.Subject).Msg("Publishing job events")
		}
	}

	orch := pipeline.New(ctx, loop, state, pipeline.Deps{
		Files:    files,
		Synth:    synth.NewInvoker(eng, catalog),
		Post:     postproc.NewProcessor(dsp.NewPitchShifter()),
		Playback: player,
	}, opts...)

	con := console.New(console.Options{
		Loop:     loop,
		State:    state,
		Pipeline: orch,
		Playback: player,
		Catalog:  catalog,
		Defaults: console.Settings{
			Voice:    voices.Female,
			Pitch:    1.0,
			Language: cfg.Language,
			Device:   cfg.DeviceValue(),
		},
		GPUInfo: gpuInfo(),
	})

	return con.Run(ctx, historyFile())
}

func journal(job pipeline.Job) {
	ev := log.Debug().Str("job", job.ID.String()).Str("state", job.State.String()).Str("mode", job.Request.Mode.String())
	if job.Err != nil {
		ev = ev.Err(job.Err)
	}
	ev.Msg("Job state changed")
}

func gpuInfo() string {
	if name := engine.GPUName(); name != "" {
		return "GPU detected: " + name
	}
	return "No GPU detected, using CPU"
}

func historyFile() string {
	return filepath.Join(os.TempDir(), ".voicegen_history")
}
