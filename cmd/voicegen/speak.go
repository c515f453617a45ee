package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"voicegen/internal/pkg/voicegen/config"
	"voicegen/internal/pkg/voicegen/engine"
	"voicegen/internal/pkg/voicegen/errs"
	"voicegen/internal/pkg/voicegen/synth"
	"voicegen/internal/pkg/voicegen/voices"
)

const scriptMaleSpeaker = "p232"

type prompter interface {
	Prompt(label string) (string, error)
}

type synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request, rawPath string) error
}

type readlinePrompter struct {
	rl *readline.Instance
}

func (p *readlinePrompter) Prompt(label string) (string, error) {
	p.rl.SetPrompt(label)
	line, err := p.rl.Readline()
	if err != nil {
		return "", err
	}
	return line, nil
}

func newSpeakCmd(rt *runtimeConfig) *cobra.Command {
	var speaker string

	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Prompt for text, file name and voice, then write one WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.scriptSetupFailed(cmd) {
				return nil
			}
			out := cmd.OutOrStdout()

			rl, err := readline.NewEx(&readline.Config{
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          out,
			})
			if err != nil {
				fmt.Fprintf(out, "Error occurred: failed to initialize readline: %s\n", err)
				return nil
			}
			defer rl.Close()

			fmt.Fprintln(out, "Text-to-Speech Generator (Male and Female Voices)")
			fmt.Fprintln(out, "-------------------------------------------------")

			file, err := speakInteractive(cmd.Context(), &readlinePrompter{rl: rl}, out, func() (synthesizer, func(), error) {
				return openSynthesizer(rt.cfg, speaker)
			})
			if err != nil {
				fmt.Fprintf(out, "\nError occurred: %s\n", errs.Reason(err))
				fmt.Fprintln(out, "\nFailed to create the audio file.")
				return nil
			}
			fmt.Fprintf(out, "\nAudio file created: %s\n", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&speaker, "speaker", scriptMaleSpeaker, "Speaker id used for the male voice")
	return cmd
}

type synthFactory func() (synthesizer, func(), error)

// speakInteractive asks for the text, the file name and the voice and writes
// the file. Any choice other than male or female uses the fallback voice.
func speakInteractive(ctx context.Context, p prompter, out io.Writer, open synthFactory) (string, error) {
	text, err := p.Prompt("Enter the text you want to convert to speech: ")
	if err != nil {
		return "", err
	}
	name, err := p.Prompt("Enter the output file name (without extension): ")
	if err != nil {
		return "", err
	}
	file := strings.TrimSpace(name) + ".wav"

	fmt.Fprintln(out, "\nChoose a voice:")
	fmt.Fprintln(out, "1. Male Voice (VCTK/VITS)")
	fmt.Fprintln(out, "2. Female Voice (LJ Speech/VITS)")
	choice, err := p.Prompt("Enter your choice (male or female): ")
	if err != nil {
		return "", err
	}

	voice, ok := voices.ParseChoice(choice)
	if !ok {
		fmt.Fprintln(out, "\nInvalid choice. Using default female voice (LJ Speech/FastPitch).")
	} else {
		fmt.Fprintf(out, "\nGenerating speech with %s voice...\n", voice)
	}

	s, closeFn, err := open()
	if err != nil {
		return "", err
	}
	defer closeFn()

	if err := s.Synthesize(ctx, synth.Request{Text: text, Voice: voice}, file); err != nil {
		return "", err
	}

	fmt.Fprintf(out, "\nAudio successfully saved to %s\n", file)
	return file, nil
}

func openSynthesizer(cfg *config.Config, maleSpeaker string) (synthesizer, func(), error) {
	eng, err := engine.New(cfg.Backend, cfg.EngineConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load engine %q: %w", cfg.Backend, err)
	}

	catalog := cfg.Catalog()
	if maleSpeaker != "" {
		catalog.Male.Speaker = maleSpeaker
	}

	closeFn := func() {
		if err := eng.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close engine")
		}
	}
	return synth.NewInvoker(eng, catalog), closeFn, nil
}
