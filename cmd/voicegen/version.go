package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	gitCommit string
)

func formatVersion() string {
	if gitCommit != "" {
		return fmt.Sprintf("%s (git: %s)", Version, gitCommit)
	}
	return Version
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "voicegen %s (%s)\n", formatVersion(), runtime.Version())
		},
	}
}
