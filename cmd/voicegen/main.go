package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"voicegen/internal/pkg/voicegen/config"

	_ "voicegen/internal/pkg/voicegen/backends/coqui"
	_ "voicegen/internal/pkg/voicegen/backends/onnx"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	}

	return nil
}
