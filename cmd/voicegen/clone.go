package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"voicegen/internal/pkg/voicegen/engine"
	"voicegen/internal/pkg/voicegen/errs"
	"voicegen/internal/pkg/voicegen/synth"
)

const cloneDemoOutput = "output_xtts3.wav"

func newCloneDemoCmd(rt *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "clone-demo",
		Short: "Clone the configured reference voice speaking a fixed sentence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.scriptSetupFailed(cmd) {
				return nil
			}
			out := cmd.OutOrStdout()
			s, closeFn, err := openSynthesizer(rt.cfg, "")
			if err != nil {
				fmt.Fprintf(out, "Error occurred: %s\n", err)
				return nil
			}
			defer closeFn()

			cloneDemo(cmd.Context(), out, s, rt.cfg.CloneDemo.Reference, rt.cfg.CloneDemo.Text)
			return nil
		},
	}
}

// cloneDemo never fails the process; the outcome is reported on out.
func cloneDemo(ctx context.Context, out io.Writer, s synthesizer, reference, text string) bool {
	req := synth.Request{
		Text:           text,
		Cloned:         true,
		ReferenceAudio: reference,
		Language:       "en",
		Device:         engine.DeviceAuto,
	}

	fmt.Fprintf(out, "Cloning voice from %s...\n", reference)
	if err := s.Synthesize(ctx, req, cloneDemoOutput); err != nil {
		fmt.Fprintf(out, "Error occurred: %s\n", errs.Reason(err))
		return false
	}
	fmt.Fprintf(out, "Audio saved to %s\n", cloneDemoOutput)
	return true
}
