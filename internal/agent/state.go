package agent

// State is the loop controller's lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePrompting
	StateAwaitingModel
	StateExecutingActions
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrompting:
		return "prompting"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingActions:
		return "executing_actions"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
