// Package windowing bounds what is replayed to the model.
//
// Two concerns:
//   - BuildWindow: the session's recent turns, converted to Messages API
//     params. Prior turns are replayed text-only; tool_use/tool_result
//     blocks stay transient within the in-flight turn, which keeps pairs
//     trivially adjacent and the window cheap to rebuild.
//   - ClampResult: deterministic caps on tool output so a single oversized
//     search result cannot blow up the request.
package windowing

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/docsbot/internal/session"
)

// BuildWindow renders at most maxTurns of the newest history oldest-first.
// Turns without a final answer are skipped; an aborted turn leaves no
// assistant text and must not strand an unanswered user message in the
// replayed context.
func BuildWindow(turns []session.Turn, maxTurns int) []anthropic.MessageParam {
	if maxTurns >= 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	out := make([]anthropic.MessageParam, 0, 2*len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.AssistantText) == "" {
			continue
		}
		out = append(out,
			anthropic.NewUserMessage(anthropic.NewTextBlock(t.UserText)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.AssistantText)),
		)
	}
	return out
}

const maxResultRunes = 12_000
const truncationSentinel = "\n-- truncated; refine the query to narrow results --"

// ClampResult caps a tool result at a fixed rune budget, appending a
// sentinel so the model knows content was dropped.
func ClampResult(s string) string {
	r := []rune(s)
	if len(r) <= maxResultRunes {
		return s
	}
	return string(r[:maxResultRunes]) + truncationSentinel
}
