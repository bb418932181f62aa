package compaction

import (
	"unicode/utf8"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/model"
)

// runesPerToken approximates the tokenizer ratio for Spanish and English text.
const runesPerToken = 4

// Estimator estimates the prompt size of a history and its running summary.
type Estimator func(msgs []core.Message, summary *core.Summary) int

// EstimateTokens counts message text, tool arguments, tool results and the
// summary text at roughly four runes per token.
func EstimateTokens(msgs []core.Message, summary *core.Summary) int {
	runes := 0

	if summary != nil {
		runes += utf8.RuneCountInString(summary.Text)
	}

	for _, m := range msgs {
		runes += utf8.RuneCountInString(m.Text())

		for _, fc := range m.FunctionCalls() {
			runes += utf8.RuneCountInString(fc.Name) + utf8.RuneCountInString(fc.Arguments)
		}

		for _, fr := range m.FunctionResponses() {
			runes += utf8.RuneCountInString(model.RenderToolResult(fr))
		}
	}

	return (runes + runesPerToken - 1) / runesPerToken
}

// truncateTokens cuts text to roughly max tokens.
func truncateTokens(text string, max int) string {
	if max <= 0 {
		return text
	}

	limit := max * runesPerToken
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	return string([]rune(text)[:limit])
}
