package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voicegen/internal/pkg/voicegen/config"
	"voicegen/internal/pkg/voicegen/engine"
)

func newBackendsCmd(rt *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered synthesis backends",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			for _, name := range engine.ListBackends() {
				marker := " "
				if name == rt.cfg.Backend {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, name)
			}
		},
	}
}

func newConfigCmd(rt *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Dump(rt.viper)
			if err != nil {
				return err
			}
			if rt.cfg.File != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", rt.cfg.File)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
