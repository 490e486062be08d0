// Package budget estimates prompt sizes. Providers use different tokenizers,
// so the estimate is a character heuristic: 1 token ≈ 4 characters.
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxPromptTokens is the prompt size above which callers warn.
	// Ten 1000-character chunks plus the template stay well below it.
	DefaultMaxPromptTokens = 8000
)

// Estimate returns a rough token count for s.
func Estimate(s string) int {
	runes := utf8.RuneCountInString(s)
	n := runes / charsPerToken
	if n == 0 && runes > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for msgs,
// summing role + content plus a small per-message overhead.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// Exceeds reports the estimate for msgs and whether it is above limit.
// A non-positive limit falls back to DefaultMaxPromptTokens.
func Exceeds(msgs []*schema.Message, limit int) (int, bool) {
	if limit <= 0 {
		limit = DefaultMaxPromptTokens
	}
	n := EstimateMessages(msgs)
	return n, n > limit
}
