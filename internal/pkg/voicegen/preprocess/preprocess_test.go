package preprocess_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"voicegen/internal/pkg/voicegen/preprocess"
)

func TestClean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hello world", preprocess.Clean("  Hello \n\t world\x00 "))
	assert.Empty(t, preprocess.Clean(" \n "))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		language string
		want     string
	}{
		{"numbers", "I have 21 cats", "en", "I have twenty-one cats"},
		{"quotes and dashes", "“Hi” — there", "en", "\"Hi\" , there"},
		{"url dropped", "see https://example.com now", "en", "see now"},
		{"non english keeps digits", "tengo 3 gatos", "es", "tengo 3 gatos"},
		{"percent", "50% off", "", "fifty percent off"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, preprocess.Normalize(tc.text, tc.language))
		})
	}
}

func TestNumberToWords(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "zero", preprocess.NumberToWords(0))
	assert.Equal(t, "one hundred", preprocess.NumberToWords(100))
	assert.Equal(t, "two thousand twenty-five", preprocess.NumberToWords(2025))
	assert.Equal(t, "one million three hundred forty", preprocess.NumberToWords(1000340))
	assert.Equal(t, "minus seven", preprocess.NumberToWords(-7))
}
