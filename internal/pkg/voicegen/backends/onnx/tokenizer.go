package onnx

import (
	"encoding/json"
	"fmt"
	"os"
)

const defaultSampleRate = 22050

// modelConfig mirrors the vocab.json written next to an exported model.
type modelConfig struct {
	Symbols    map[string]int64 `json:"symbols"`
	AddBlank   bool             `json:"add_blank"`
	BlankID    int64            `json:"blank_id"`
	SampleRate int              `json:"sample_rate"`
}

type Tokenizer struct {
	ids      map[rune]int64
	addBlank bool
	blank    int64
}

func loadModelConfig(path string) (*modelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	var cfg modelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary %s: %w", path, err)
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("vocabulary %s has no symbols", path)
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = defaultSampleRate
	}
	return &cfg, nil
}

func NewTokenizer(symbols map[string]int64, addBlank bool, blank int64) *Tokenizer {
	ids := make(map[rune]int64, len(symbols))
	for s, id := range symbols {
		for _, r := range s {
			ids[r] = id
			break
		}
	}
	return &Tokenizer{ids: ids, addBlank: addBlank, blank: blank}
}

// Encode maps characters to ids, dropping unknown ones. With blanks enabled the
// sequence is interspersed with the blank id, as VITS models expect.
func (t *Tokenizer) Encode(text string) []int64 {
	tokens := make([]int64, 0, 2*len(text)+1)
	if t.addBlank {
		tokens = append(tokens, t.blank)
	}
	for _, r := range text {
		id, ok := t.ids[r]
		if !ok {
			continue
		}
		tokens = append(tokens, id)
		if t.addBlank {
			tokens = append(tokens, t.blank)
		}
	}
	if t.addBlank && len(tokens) == 1 {
		return nil
	}
	return tokens
}
