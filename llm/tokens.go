package llm

import (
	"strings"
	"unicode/utf8"
)

// maxInputTokens caps the report sent for a summary. Large runs keep their
// statistics, which come first in the report, and lose trailing rows.
const maxInputTokens = 12000

const truncatedNote = "\n\n(report truncated)"

// EstimateTokens provides a fast token count estimate without a tokenizer.
//
// Heuristic: utf8 rune count / 3. English averages ~4 chars/token and
// Hangul ~1.5, so this over-estimates mixed reports slightly.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 3
	if est < 1 {
		return 1
	}
	return est
}

// truncateToTokens cuts text to roughly maxTokens, at the last line break
// inside the budget.
func truncateToTokens(text string, maxTokens int) string {
	if EstimateTokens(text) <= maxTokens {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:maxTokens*3])
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	return cut + truncatedNote
}
