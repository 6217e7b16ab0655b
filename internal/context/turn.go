package context

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"gofer/internal/tools"
)

// Turn captures one completed exchange with the model: the request, the
// messages that went back and forth, the actions the model invoked and
// their results, and the final answer.
type Turn struct {
	ID         string
	Request    string
	Response   string
	Messages   []*genai.Content
	Actions    []tools.ActionCall
	Results    map[string]map[string]any
	Iterations int
	Timestamp  time.Time

	// Summary optionally replaces the derived one-line rendering of this
	// turn in history and synopsis output.
	Summary string
}

// NewTurn creates an empty turn for a request.
func NewTurn(request string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Request:   request,
		Results:   make(map[string]map[string]any),
		Timestamp: time.Now(),
	}
}

// AddAction records a requested action and its result slot.
func (t *Turn) AddAction(call tools.ActionCall, result map[string]any) {
	t.Actions = append(t.Actions, call)
	t.Results[call.Name] = result
}

// ActionNames returns the distinct action names invoked in this turn,
// in first-use order.
func (t *Turn) ActionNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, call := range t.Actions {
		if !seen[call.Name] {
			seen[call.Name] = true
			names = append(names, call.Name)
		}
	}
	return names
}
