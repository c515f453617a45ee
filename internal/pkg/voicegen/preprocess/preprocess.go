// Package preprocess normalizes user text before it reaches a synthesis backend.
package preprocess

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	urlRe        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	numberRe     = regexp.MustCompile(`\b\d{1,12}\b`)
)

var replacer = strings.NewReplacer(
	"“", "\"", "”", "\"", "‘", "'", "’", "'",
	"«", "\"", "»", "\"",
	"—", ", ", "–", ", ", "…", "...",
	"&", " and ", "%", " percent",
)

// Clean trims and collapses whitespace and drops control characters. It is
// applied to every request regardless of backend.
func Clean(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// Normalize prepares text for character-level acoustic models. Numbers are
// spelled out only for English.
func Normalize(text, language string) string {
	text = norm.NFC.String(text)
	text = urlRe.ReplaceAllString(text, "")
	text = replacer.Replace(text)
	if language == "" || strings.HasPrefix(strings.ToLower(language), "en") {
		text = numberRe.ReplaceAllStringFunc(text, func(match string) string {
			n, err := strconv.ParseInt(match, 10, 64)
			if err != nil {
				return match
			}
			return NumberToWords(n)
		})
	}
	return Clean(text)
}

var small = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
	"seventeen", "eighteen", "nineteen",
}

var tens = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
}

var scales = []string{"", "thousand", "million", "billion"}

func NumberToWords(n int64) string {
	if n < 0 {
		return "minus " + NumberToWords(-n)
	}
	if n < 20 {
		return small[n]
	}

	var groups []string
	for scale := 0; n > 0 && scale < len(scales); scale++ {
		if chunk := int(n % 1000); chunk > 0 {
			words := hundreds(chunk)
			if scales[scale] != "" {
				words += " " + scales[scale]
			}
			groups = append([]string{words}, groups...)
		}
		n /= 1000
	}
	return strings.Join(groups, " ")
}

func hundreds(n int) string {
	var parts []string
	if n >= 100 {
		parts = append(parts, small[n/100], "hundred")
		n %= 100
	}
	switch {
	case n == 0:
	case n < 20:
		parts = append(parts, small[n])
	case n%10 == 0:
		parts = append(parts, tens[n/10])
	default:
		parts = append(parts, tens[n/10]+"-"+small[n%10])
	}
	return strings.Join(parts, " ")
}
