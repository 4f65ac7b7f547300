// Package session holds per-user conversational state for the lifetime of
// the process.
//
// Model:
//   - Session: ordered, bounded sequence of Turns; oldest evicted past the cap.
//   - Turn: one user utterance, its tool calls, and the final answer;
//     immutable once appended.
//   - ToolCall: one tool invocation with either a result or a failure
//     descriptor, sequenced within its turn.
//
// Turns are text-only records; live tool_use blocks stay transient inside
// the in-flight turn and are not replayed across turns.
package session

import (
	"encoding/json"
	"time"
)

// ToolCall records one tool invocation within a turn. Seq is the request
// order within the round; results are reassembled in this order before
// being fed back to the model.
type ToolCall struct {
	Seq       int             `json:"seq"`
	ID        string          `json:"id"` // provider tool_use id
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    string          `json:"result"`
	IsError   bool            `json:"is_error,omitempty"`
}

// Turn is one user utterance plus the full exchange required to answer it.
type Turn struct {
	ID            string     `json:"id"`
	UserText      string     `json:"user_text"`
	ToolCalls     []ToolCall `json:"tool_calls,omitempty"`
	AssistantText string     `json:"assistant_text"`
	At            time.Time  `json:"at"`
}

func cloneTurn(t Turn) Turn {
	cloned := t
	cloned.ToolCalls = cloneToolCalls(t.ToolCalls)
	return cloned
}

func cloneToolCalls(calls []ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	dst := make([]ToolCall, len(calls))
	for i, c := range calls {
		dst[i] = c
		if c.Arguments != nil {
			dst[i].Arguments = append(json.RawMessage(nil), c.Arguments...)
		}
	}
	return dst
}
