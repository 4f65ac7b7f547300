// Package orchestrator drives one user utterance through the model,
// executing tool-call rounds until a final answer.
//
// Invariants:
//   - tool_use and the corresponding tool_result stay adjacent within a
//     turn, with results reassembled in request order.
//   - every requested tool call carries a result or a failure descriptor
//     before the turn finalizes; "no response yet" is never terminal.
//   - the loop always terminates: a final answer, the configured round
//     limit, or an aborted turn that leaves session history untouched.
//
// Flow:
//
//	user(text) -> assistant(tool_use*) -> user(tool_result*) -> ... -> assistant(text)
package orchestrator
