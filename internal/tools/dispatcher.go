package tools

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"gofer/internal/logging"
)

// RemoteSeparator joins a provider name and a tool name in the
// fully-qualified names remote tools are registered under.
const RemoteSeparator = "__"

// Remote resolves tools exposed by connected providers. Remote tool
// names carry a "<provider>__<tool>" prefix so they never collide with
// local names.
type Remote interface {
	// Tool returns the remote tool registered under the given
	// fully-qualified name.
	Tool(name string) (Tool, bool)

	// Declarations returns the function declarations of all remote tools.
	Declarations() []*genai.FunctionDeclaration
}

// ActionCall is one action requested by the model.
type ActionCall struct {
	Name string
	Args map[string]any
}

// Dispatcher routes action calls to local tools first, then to remote
// providers. It validates arguments against the tool's declared schema
// and classifies every failure; it never retries.
type Dispatcher struct {
	registry *Registry
	remote   Remote
}

// NewDispatcher creates a dispatcher over the local registry and an
// optional remote provider. remote may be nil.
func NewDispatcher(registry *Registry, remote Remote) *Dispatcher {
	return &Dispatcher{registry: registry, remote: remote}
}

// Resolve finds the tool for an action name. Local tools win on exact
// match; names carrying the provider separator then fall through to the
// remote provider.
func (d *Dispatcher) Resolve(name string) (Tool, error) {
	if tool, ok := d.registry.Get(name); ok {
		return tool, nil
	}
	if d.remote != nil && strings.Contains(name, RemoteSeparator) {
		if tool, ok := d.remote.Tool(name); ok {
			return tool, nil
		}
	}
	return nil, NotFoundError(name)
}

// Dispatch resolves and executes one action call. Failures come back as
// *ToolError so callers can switch on the kind.
func (d *Dispatcher) Dispatch(ctx context.Context, call ActionCall) (ToolResult, error) {
	tool, err := d.Resolve(call.Name)
	if err != nil {
		logging.Warn("action not found", "action", call.Name)
		return ToolResult{}, err
	}

	if err := tool.Validate(call.Args); err != nil {
		return ToolResult{}, ExecutionError(call.Name, err)
	}
	if err := ValidateArgs(tool.Declaration(), call.Args); err != nil {
		return ToolResult{}, ExecutionError(call.Name, err)
	}

	logging.Debug("dispatching action", "action", call.Name)
	result, err := tool.Execute(ctx, call.Args)
	if err != nil {
		if te, ok := AsToolError(err); ok {
			return ToolResult{}, te
		}
		return ToolResult{}, ExecutionError(call.Name, err)
	}
	return result, nil
}

// LocalCount returns how many local tools are registered.
func (d *Dispatcher) LocalCount() int {
	return d.registry.Count()
}

// RemoteCount returns how many remote provider tools are reachable.
func (d *Dispatcher) RemoteCount() int {
	if d.remote == nil {
		return 0
	}
	return len(d.remote.Declarations())
}

// Declarations returns the merged local and remote declarations
// advertised to the model.
func (d *Dispatcher) Declarations() []*genai.FunctionDeclaration {
	decls := d.registry.Declarations()
	if d.remote != nil {
		decls = append(decls, d.remote.Declarations()...)
	}
	return decls
}
