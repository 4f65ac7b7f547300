package orchestrator

// State enumerates the turn state machine:
//
//	AwaitingModel -> (ToolRequested -> ToolExecuting -> ToolResultReady)* -> Finalizing -> Done
//
// Aborted is terminal and reachable from any state on unrecoverable failure.
type State int

const (
	StateAwaitingModel State = iota
	StateToolRequested
	StateToolExecuting
	StateToolResultReady
	StateFinalizing
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateToolRequested:
		return "tool_requested"
	case StateToolExecuting:
		return "tool_executing"
	case StateToolResultReady:
		return "tool_result_ready"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}
