package agent

import (
	"strings"
	"unicode/utf8"
)

// charsPerToken is the usual ratio for English text across providers.
const charsPerToken = 4

const truncationMarker = "\n[... truncated ...]\n"

// EstimateTokenCount approximates the number of tokens in text.
func EstimateTokenCount(text string) int {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n == 0 {
		return 0
	}
	return n/charsPerToken + 1
}

// TruncateToTokenLimit removes the middle of text until its estimate fits
// maxTokens. Two thirds of the budget go to the head, where prompts carry
// the instructions and the finding, and the rest to the tail, where they
// carry the answer format.
func TruncateToTokenLimit(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if EstimateTokenCount(text) <= maxTokens {
		return text
	}

	runes := []rune(text)
	budget := (maxTokens - 1) * charsPerToken
	keep := budget - utf8.RuneCountInString(truncationMarker)
	if keep <= 0 {
		return string(runes[:budget])
	}
	head := keep * 2 / 3
	tail := keep - head
	return string(runes[:head]) + truncationMarker + string(runes[len(runes)-tail:])
}
