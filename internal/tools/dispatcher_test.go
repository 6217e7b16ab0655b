package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeTool struct {
	name    string
	execErr error
	calls   int
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "test tool" }

func (f *fakeTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name: f.name,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"value": {Type: genai.TypeString},
			},
			Required: []string{"value"},
		},
	}
}

func (f *fakeTool) Validate(args map[string]any) error { return nil }

func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	f.calls++
	if f.execErr != nil {
		return ToolResult{}, f.execErr
	}
	return NewSuccessResult("ok"), nil
}

type fakeRemote struct {
	tools map[string]Tool
}

func (r *fakeRemote) Tool(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *fakeRemote) Declarations() []*genai.FunctionDeclaration {
	var decls []*genai.FunctionDeclaration
	for _, t := range r.tools {
		decls = append(decls, t.Declaration())
	}
	return decls
}

func TestDispatchLocalTool(t *testing.T) {
	reg := NewRegistry()
	local := &fakeTool{name: "echo"}
	require.NoError(t, reg.Register(local))

	d := NewDispatcher(reg, nil)
	result, err := d.Dispatch(context.Background(), ActionCall{Name: "echo", Args: map[string]any{"value": "hi"}})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, local.calls)
}

func TestDispatchNotFound(t *testing.T) {
	d := NewDispatcher(NewRegistry(), nil)
	_, err := d.Dispatch(context.Background(), ActionCall{Name: "nope", Args: map[string]any{}})

	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrToolNotFound, te.Kind)
	assert.False(t, te.Kind.Terminal())
}

func TestDispatchLocalWinsOverRemote(t *testing.T) {
	reg := NewRegistry()
	local := &fakeTool{name: "files__read"}
	require.NoError(t, reg.Register(local))

	remoteTool := &fakeTool{name: "files__read"}
	d := NewDispatcher(reg, &fakeRemote{tools: map[string]Tool{"files__read": remoteTool}})

	_, err := d.Dispatch(context.Background(), ActionCall{Name: "files__read", Args: map[string]any{"value": "x"}})
	require.NoError(t, err)
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, 0, remoteTool.calls)
}

func TestDispatchRemoteByPrefix(t *testing.T) {
	remoteTool := &fakeTool{name: "files__read"}
	d := NewDispatcher(NewRegistry(), &fakeRemote{tools: map[string]Tool{"files__read": remoteTool}})

	_, err := d.Dispatch(context.Background(), ActionCall{Name: "files__read", Args: map[string]any{"value": "x"}})
	require.NoError(t, err)
	assert.Equal(t, 1, remoteTool.calls)

	// Unprefixed names never reach the remote provider.
	_, err = d.Dispatch(context.Background(), ActionCall{Name: "read", Args: map[string]any{}})
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrToolNotFound, te.Kind)
}

func TestDispatchSchemaValidation(t *testing.T) {
	reg := NewRegistry()
	local := &fakeTool{name: "echo"}
	require.NoError(t, reg.Register(local))
	d := NewDispatcher(reg, nil)

	// Missing required argument.
	_, err := d.Dispatch(context.Background(), ActionCall{Name: "echo", Args: map[string]any{}})
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrToolExecution, te.Kind)
	assert.Equal(t, 0, local.calls)

	// Wrong argument type.
	_, err = d.Dispatch(context.Background(), ActionCall{Name: "echo", Args: map[string]any{"value": 42}})
	_, ok = AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, 0, local.calls)
}

func TestDispatchExecutionFailureClassified(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, reg.Register(&fakeTool{name: "echo", execErr: boom}))
	d := NewDispatcher(reg, nil)

	_, err := d.Dispatch(context.Background(), ActionCall{Name: "echo", Args: map[string]any{"value": "x"}})
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrToolExecution, te.Kind)
	assert.ErrorIs(t, err, boom)
}

func TestDispatchPreservesGuardKind(t *testing.T) {
	reg := NewRegistry()
	guarded := &fakeTool{name: "echo", execErr: WriteGuardError("echo", "/tmp/x")}
	require.NoError(t, reg.Register(guarded))
	d := NewDispatcher(reg, nil)

	_, err := d.Dispatch(context.Background(), ActionCall{Name: "echo", Args: map[string]any{"value": "x"}})
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrWriteWithoutRead, te.Kind)
}
