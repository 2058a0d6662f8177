// Package text provides Russian text normalization for TTS input.
//
// The accent-placement model expects plain running text: no markup, no bare
// digits, no exotic whitespace. The normalizer runs before accentuation and
// mirrors the cleanup the reference-text path applies to downloaded files.
package text

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Regex patterns for text normalization.
const (
	htmlTagRegexPattern    = `<[^>]+>`
	numberRegexPattern     = `\d+`
	whitespaceRegexPattern = `\s+`
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

// MaxNumberForWords is the largest integer expanded into words; larger
// numbers are left as digits for the accentizer to deal with.
const MaxNumberForWords = 999999

// Normalizer provides text normalization for TTS input and reference text.
type Normalizer struct {
	htmlTagPattern    *regexp.Regexp
	numberPattern     *regexp.Regexp
	whitespacePattern *regexp.Regexp
}

// NewNormalizer creates a normalizer with compiled patterns.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		htmlTagPattern:    regexp.MustCompile(htmlTagRegexPattern),
		numberPattern:     regexp.MustCompile(numberRegexPattern),
		whitespacePattern: regexp.MustCompile(whitespaceRegexPattern),
	}
}

// NormalizeInput prepares request text for accentuation and synthesis.
func (n *Normalizer) NormalizeInput(text string) string {
	if text == "" {
		return text
	}

	normalized := n.expandNumbers(text)
	normalized = n.normalizeDashes(normalized)
	normalized = n.normalizeWhitespace(normalized)

	return n.ensureSentenceEnding(normalized)
}

// NormalizeRefText cleans reference text, which may come from an arbitrary
// URL: HTML tags and NUL bytes are stripped, whitespace is collapsed.
func (n *Normalizer) NormalizeRefText(text string) string {
	cleaned := n.htmlTagPattern.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, "\x00", "")

	return n.normalizeWhitespace(cleaned)
}

// expandNumbers converts every integer in the text to Russian words.
func (n *Normalizer) expandNumbers(text string) string {
	return n.numberPattern.ReplaceAllStringFunc(text, func(s string) string {
		num, err := strconv.Atoi(s)
		if err != nil {
			return s
		}

		return IntegerToWords(num)
	})
}

func (n *Normalizer) normalizeDashes(text string) string {
	replacer := strings.NewReplacer(
		emDash, "-",
		enDash, "-",
		figureDash, "-",
		ellipsisChar, ellipsis,
	)

	return replacer.Replace(text)
}

func (n *Normalizer) normalizeWhitespace(text string) string {
	return strings.TrimSpace(n.whitespacePattern.ReplaceAllString(text, " "))
}

// ensureSentenceEnding appends a final period when the text ends mid-sentence.
// The model tends to clip the last word otherwise.
func (n *Normalizer) ensureSentenceEnding(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(trimmed)

	switch lastChar {
	case '.', '!', '?':
		return trimmed
	default:
		if unicode.IsPunct(lastChar) {
			return trimmed
		}

		return trimmed + "."
	}
}
