package coqui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"voicegen/internal/pkg/voicegen/engine"
)

const (
	apiTTS          = "/api/tts"
	contentTypeWAV  = "audio/wav"
	defaultServer   = "http://localhost:5002"
	filePermissions = 0o600
)

var errEmptyText = errors.New("text cannot be empty")

// ServerEngine talks to a `tts-server` process. The server is started with a
// single model, so Request.Model is informational only.
type ServerEngine struct {
	baseURL    string
	httpClient *http.Client
}

func NewServerEngine(cfg engine.EngineConfig) (engine.Engine, error) {
	base := cfg.ServerURL
	if base == "" {
		base = defaultServer
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid coqui server url %q: %w", base, err)
	}
	return &ServerEngine{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (s *ServerEngine) Generate(ctx context.Context, req engine.Request, outPath string) error {
	if req.Text == "" {
		return errEmptyText
	}

	query := url.Values{}
	query.Set("text", req.Text)
	if req.Speaker != "" {
		query.Set("speaker_id", req.Speaker)
	}
	if req.Language != "" {
		query.Set("language_id", req.Language)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+apiTTS+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", contentTypeWAV)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reach tts server at %s: %w", s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxOutputTail))
		return fmt.Errorf("tts server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read audio data: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty response body", ErrNoOutput)
	}

	if err := os.WriteFile(outPath, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	log.Debug().Str("server", s.baseURL).Int("bytes", len(data)).Msg("Received audio from tts server")
	return nil
}

func (s *ServerEngine) Info() engine.EngineInfo {
	return engine.EngineInfo{Name: "coqui-server", Languages: []string{"en"}}
}

func (s *ServerEngine) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
