package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"gofer/internal/client"
	ctxmgr "gofer/internal/context"
	"gofer/internal/tools"
)

// scriptedClient replays a fixed sequence of responses and records the
// histories it was called with.
type scriptedClient struct {
	responses []*client.Response
	calls     int
	histories [][]*genai.Content
}

func (s *scriptedClient) Chat(_ context.Context, history []*genai.Content, _ []*genai.FunctionDeclaration) (*client.Response, error) {
	s.histories = append(s.histories, history)
	if s.calls >= len(s.responses) {
		return nil, errors.New("script exhausted")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedClient) Model() string { return "scripted" }
func (s *scriptedClient) Close() error  { return nil }

func textResponse(text string) *client.Response {
	return &client.Response{Text: text}
}

func actionResponse(name string, args map[string]any) *client.Response {
	return &client.Response{
		FunctionCalls: []*genai.FunctionCall{{Name: name, Args: args}},
	}
}

type countingTool struct {
	name     string
	execs    int
	result   tools.ToolResult
	execErr  error
	lastArgs map[string]any
}

func (t *countingTool) Name() string        { return t.name }
func (t *countingTool) Description() string { return "counting test tool" }

func (t *countingTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:       t.name,
		Parameters: &genai.Schema{Type: genai.TypeObject},
	}
}

func (t *countingTool) Validate(args map[string]any) error { return nil }

func (t *countingTool) Execute(_ context.Context, args map[string]any) (tools.ToolResult, error) {
	t.execs++
	t.lastArgs = args
	if t.execErr != nil {
		return tools.ToolResult{}, t.execErr
	}
	return t.result, nil
}

func newTestRunner(t *testing.T, sc *scriptedClient, tool tools.Tool, maxIterations int) (*Runner, *ctxmgr.Manager) {
	t.Helper()
	reg := tools.NewRegistry()
	if tool != nil {
		require.NoError(t, reg.Register(tool))
	}
	turns := ctxmgr.NewManager(ctxmgr.DefaultMaxTurns, ctxmgr.DefaultSummarizeAfter)
	r := NewRunner(sc, tools.NewDispatcher(reg, nil), turns, Config{MaxIterations: maxIterations})
	return r, turns
}

func TestImmediateAnswerRecordsEmptyTurn(t *testing.T) {
	sc := &scriptedClient{responses: []*client.Response{textResponse("all done")}}
	r, turns := newTestRunner(t, sc, nil, 3)

	result, err := r.Run(context.Background(), "say hi")
	require.NoError(t, err)

	assert.Equal(t, "all done", result.Text)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, StateDone, r.State())

	require.Equal(t, 1, turns.Len())
	recorded := turns.Turns()[0]
	assert.Empty(t, recorded.Actions)
	assert.Equal(t, "say hi", recorded.Request)
}

func TestActionsExecutedThenAnswer(t *testing.T) {
	tool := &countingTool{name: "probe", result: tools.NewSuccessResult("probed")}
	sc := &scriptedClient{responses: []*client.Response{
		actionResponse("probe", map[string]any{"target": "a"}),
		actionResponse("probe", map[string]any{"target": "b"}),
		textResponse("finished"),
	}}
	r, turns := newTestRunner(t, sc, tool, 5)

	result, err := r.Run(context.Background(), "probe things")
	require.NoError(t, err)

	assert.Equal(t, "finished", result.Text)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 2, tool.execs)
	assert.Equal(t, map[string]any{"target": "b"}, tool.lastArgs)

	recorded := turns.Turns()[0]
	require.Len(t, recorded.Actions, 2)
	assert.Equal(t, []string{"probe"}, recorded.ActionNames())
}

func TestIterationBudgetStopsWithoutFinalBatch(t *testing.T) {
	tool := &countingTool{name: "probe", result: tools.NewSuccessResult("ok")}
	sc := &scriptedClient{responses: []*client.Response{
		actionResponse("probe", nil),
		actionResponse("probe", nil),
		actionResponse("probe", nil),
		actionResponse("probe", nil),
	}}
	r, turns := newTestRunner(t, sc, tool, 3)

	_, err := r.Run(context.Background(), "never stop")
	require.Error(t, err)

	te, ok := tools.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, tools.ErrIterationBudget, te.Kind)
	assert.True(t, te.Kind.Terminal())
	assert.Equal(t, StateFailed, r.State())

	// Exactly the budgeted number of model calls, and the last batch of
	// requested actions is never executed.
	assert.Equal(t, 3, sc.calls)
	assert.Equal(t, 2, tool.execs)
	assert.Equal(t, 0, turns.Len())
}

func TestActionFailureFedBackToModel(t *testing.T) {
	tool := &countingTool{name: "probe", execErr: errors.New("disk on fire")}
	sc := &scriptedClient{responses: []*client.Response{
		actionResponse("probe", nil),
		textResponse("recovered"),
	}}
	r, _ := newTestRunner(t, sc, tool, 5)

	result, err := r.Run(context.Background(), "try anyway")
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Text)

	// The second model call must see the failure as a function response.
	require.Len(t, sc.histories, 2)
	last := sc.histories[1][len(sc.histories[1])-1]
	require.NotEmpty(t, last.Parts)
	fr := last.Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "probe", fr.Name)
	assert.Equal(t, false, fr.Response["success"])
	assert.Equal(t, "tool_execution", fr.Response["error_kind"])
	assert.Contains(t, fr.Response["error"], "disk on fire")
}

func TestUnknownToolFailureIsRecoverable(t *testing.T) {
	sc := &scriptedClient{responses: []*client.Response{
		actionResponse("nonesuch", nil),
		textResponse("gave up on that tool"),
	}}
	r, _ := newTestRunner(t, sc, nil, 5)

	result, err := r.Run(context.Background(), "use a ghost tool")
	require.NoError(t, err)
	assert.Equal(t, "gave up on that tool", result.Text)

	last := sc.histories[1][len(sc.histories[1])-1]
	fr := last.Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "tool_not_found", fr.Response["error_kind"])
}

func TestMissingContextDocumentIsRecoverable(t *testing.T) {
	sc := &scriptedClient{responses: []*client.Response{textResponse("done")}}
	r, _ := newTestRunner(t, sc, nil, 3)
	r.cfg.ContextDocs = []string{"/nonexistent/notes.md"}

	_, err := r.Run(context.Background(), "task")
	require.NoError(t, err)

	// The seed prompt carries the load failure so the model can see it.
	seed := sc.histories[0][0].Parts[0].Text
	assert.Contains(t, seed, "could not be loaded")
	assert.Contains(t, seed, "/nonexistent/notes.md")
}

func TestCancelledContextFailsRun(t *testing.T) {
	sc := &scriptedClient{responses: []*client.Response{textResponse("never reached")}}
	r, _ := newTestRunner(t, sc, nil, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, "task")
	require.Error(t, err)
	assert.Equal(t, StateFailed, r.State())
	assert.Equal(t, 0, sc.calls)
}
