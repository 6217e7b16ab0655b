package tools

import (
	"errors"
	"fmt"
)

// ErrorKind classifies dispatch and execution failures. The set is
// closed: callers switch on it to decide whether a failure is fed back
// to the model or ends the run.
type ErrorKind int

const (
	// ErrToolNotFound means no local or remote tool matched the name.
	ErrToolNotFound ErrorKind = iota

	// ErrToolExecution means a matched tool failed while running.
	ErrToolExecution

	// ErrWriteWithoutRead means a mutation targeted an existing file
	// that was never read in this session.
	ErrWriteWithoutRead

	// ErrContextLoad means a supplied context document could not be read.
	ErrContextLoad

	// ErrIterationBudget means the loop hit its iteration cap while the
	// model still requested actions. This is the only terminal kind.
	ErrIterationBudget
)

func (k ErrorKind) String() string {
	switch k {
	case ErrToolNotFound:
		return "tool_not_found"
	case ErrToolExecution:
		return "tool_execution"
	case ErrWriteWithoutRead:
		return "write_without_read"
	case ErrContextLoad:
		return "context_load"
	case ErrIterationBudget:
		return "iteration_budget"
	default:
		return "unknown"
	}
}

// Terminal reports whether the kind ends the run instead of being fed
// back to the model as an action result.
func (k ErrorKind) Terminal() bool {
	return k == ErrIterationBudget
}

// ToolError is the classified error type flowing out of the dispatcher
// and the loop controller.
type ToolError struct {
	Kind ErrorKind
	Tool string
	Path string
	Err  error
}

func (e *ToolError) Error() string {
	switch e.Kind {
	case ErrToolNotFound:
		return fmt.Sprintf("tool not found: %s", e.Tool)
	case ErrWriteWithoutRead:
		return fmt.Sprintf("%s: refusing to modify %s: file exists but was not read in this session", e.Tool, e.Path)
	case ErrIterationBudget:
		return "iteration budget exhausted"
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s", e.Tool, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Tool, e.Kind)
	}
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// NotFoundError builds a tool-not-found error.
func NotFoundError(tool string) *ToolError {
	return &ToolError{Kind: ErrToolNotFound, Tool: tool}
}

// ExecutionError wraps a failure from a running tool.
func ExecutionError(tool string, err error) *ToolError {
	return &ToolError{Kind: ErrToolExecution, Tool: tool, Err: err}
}

// WriteGuardError builds a write-without-read refusal for path.
func WriteGuardError(tool, path string) *ToolError {
	return &ToolError{Kind: ErrWriteWithoutRead, Tool: tool, Path: path}
}

// ContextLoadError wraps a context document read failure.
func ContextLoadError(path string, err error) *ToolError {
	return &ToolError{Kind: ErrContextLoad, Path: path, Err: err}
}

// BudgetError builds the terminal iteration-budget error.
func BudgetError() *ToolError {
	return &ToolError{Kind: ErrIterationBudget}
}

// AsToolError unwraps err into a *ToolError if there is one in the chain.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
