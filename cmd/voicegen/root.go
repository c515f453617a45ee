package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"voicegen/internal/pkg/voicegen/config"
)

// scriptAnnotation marks commands that report every failure on stdout and
// still exit 0.
const scriptAnnotation = "voicegen/script"

type runtimeConfig struct {
	cfg   *config.Config
	viper *viper.Viper

	// setupErr is set instead of failing when a script command cannot start.
	setupErr error
}

func scriptCommand(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[scriptAnnotation] = "true"
	return cmd
}

// scriptSetupFailed reports a setup error for a script command and tells the
// caller to stop without failing.
func (rt *runtimeConfig) scriptSetupFailed(cmd *cobra.Command) bool {
	if rt.setupErr == nil {
		return false
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Error occurred: %s\n", rt.setupErr)
	return true
}

func newRootCmd() *cobra.Command {
	rt := &runtimeConfig{}
	var configFile string

	root := &cobra.Command{
		Use:           "voicegen",
		Short:         "Text to speech and voice cloning with playback and pitch control",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, v, err := config.Load(configFile, cmd.Flags())
			if err == nil {
				err = setupLogging(cfg)
			}
			if err != nil {
				if cmd.Annotations[scriptAnnotation] != "" {
					rt.setupErr = err
					return nil
				}
				return err
			}
			rt.cfg, rt.viper = cfg, v

			log.Debug().
				Str("config", cfg.File).
				Str("backend", cfg.Backend).
				Str("device", cfg.Device).
				Str("output_dir", cfg.Output.Dir).
				Msg("Configuration loaded")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd.Context(), rt.cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to config file")
	flags.StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Log file path")
	flags.StringP("backend", "b", "", "Synthesis backend (see 'voicegen backends')")
	flags.String("device", "", "Device for voice cloning (auto, cpu, gpu)")
	flags.String("language", "", "Default cloning language")
	flags.StringP("output-dir", "o", "", "Directory for generated audio")
	flags.String("nats-url", "", "Publish job events to this NATS server")

	root.AddCommand(
		newAppCmd(rt),
		scriptCommand(newSpeakCmd(rt)),
		scriptCommand(newCloneDemoCmd(rt)),
		newBackendsCmd(rt),
		newConfigCmd(rt),
		newVersionCmd(),
	)
	return root
}
