package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"

	"gofer/internal/client"
	ctxmgr "gofer/internal/context"
	"gofer/internal/logging"
	"gofer/internal/tools"
)

// DefaultMaxIterations bounds the model-call loop for a single run.
const DefaultMaxIterations = 25

const defaultPersona = `You are Gofer, an autonomous coding agent. You complete tasks by
calling the tools available to you. Read files before modifying them, keep
changes minimal, and answer with a short summary when the task is done.`

// Config carries the per-runner settings.
type Config struct {
	Persona       string
	MaxIterations int
	ContextDocs   []string
}

// RunResult is the outcome of a completed run.
type RunResult struct {
	Text       string
	Iterations int
	Turn       *ctxmgr.Turn
}

// Runner drives the prompt/respond/act loop against a model client.
type Runner struct {
	client     client.Client
	dispatcher *tools.Dispatcher
	turns      *ctxmgr.Manager
	cfg        Config

	mu    sync.Mutex
	state State
}

// NewRunner wires a runner from its collaborators.
func NewRunner(c client.Client, d *tools.Dispatcher, turns *ctxmgr.Manager, cfg Config) *Runner {
	if cfg.Persona == "" {
		cfg.Persona = defaultPersona
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Runner{
		client:     c,
		dispatcher: d,
		turns:      turns,
		cfg:        cfg,
		state:      StateIdle,
	}
}

// State returns the current loop state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	logging.Debug("runner state", "state", s.String())
}

// Run executes one task to completion. The model is called at most
// cfg.MaxIterations times; if it still requests actions on the final
// iteration the run fails without executing that batch.
func (r *Runner) Run(ctx context.Context, request string) (*RunResult, error) {
	r.setState(StatePrompting)

	turn := ctxmgr.NewTurn(request)
	history := r.seedHistory(request)
	decls := r.dispatcher.Declarations()

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			r.setState(StateFailed)
			return nil, err
		}

		r.setState(StateAwaitingModel)
		resp, err := r.client.Chat(ctx, history, decls)
		if err != nil {
			r.setState(StateFailed)
			return nil, fmt.Errorf("model response error: %w", err)
		}

		history = append(history, &genai.Content{
			Role:  genai.RoleModel,
			Parts: responseParts(resp),
		})

		if !resp.HasActions() {
			turn.Response = resp.Text
			turn.Iterations = iteration
			turn.Messages = history
			r.turns.Add(turn)
			r.setState(StateDone)
			return &RunResult{Text: resp.Text, Iterations: iteration, Turn: turn}, nil
		}

		if iteration >= r.cfg.MaxIterations {
			logging.Warn("iteration budget exhausted",
				"max_iterations", r.cfg.MaxIterations,
				"pending_actions", len(resp.FunctionCalls))
			r.setState(StateFailed)
			return nil, tools.BudgetError()
		}

		r.setState(StateExecutingActions)
		funcParts := make([]*genai.Part, 0, len(resp.FunctionCalls))
		for _, fc := range resp.FunctionCalls {
			call := tools.ActionCall{Name: fc.Name, Args: fc.Args}
			respMap := r.executeAction(ctx, turn, call)
			funcParts = append(funcParts, genai.NewPartFromFunctionResponse(fc.Name, respMap))
		}
		history = append(history, &genai.Content{
			Role:  genai.RoleUser,
			Parts: funcParts,
		})
		r.setState(StatePrompting)
	}
}

// executeAction dispatches one call and folds any failure into a result
// map the model can react to.
func (r *Runner) executeAction(ctx context.Context, turn *ctxmgr.Turn, call tools.ActionCall) map[string]any {
	result, err := r.dispatcher.Dispatch(ctx, call)

	var respMap map[string]any
	if err != nil {
		kind := tools.ErrToolExecution
		if te, ok := tools.AsToolError(err); ok {
			kind = te.Kind
		}
		logging.Warn("action failed", "tool", call.Name, "kind", kind.String(), "error", err)
		respMap = map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_kind": kind.String(),
		}
	} else {
		respMap = result.ToMap()
	}

	turn.AddAction(call, respMap)
	return respMap
}

// seedHistory builds the opening exchange: persona, prior-turn context and
// any context documents, followed by the user's request.
func (r *Runner) seedHistory(request string) []*genai.Content {
	var b strings.Builder
	b.WriteString(r.cfg.Persona)

	if remote := r.dispatcher.RemoteCount(); remote > 0 {
		b.WriteString(fmt.Sprintf("\n\nBeyond the %d built-in tools, %d additional tools from connected providers are available.",
			r.dispatcher.LocalCount(), remote))
	}

	if prior := r.turns.BuildContext(); prior != "" {
		b.WriteString("\n\n")
		b.WriteString(prior)
	}

	for _, doc := range r.cfg.ContextDocs {
		data, err := os.ReadFile(doc)
		if err != nil {
			cerr := tools.ContextLoadError(doc, err)
			logging.Warn("context document unavailable", "path", doc, "error", err)
			b.WriteString(fmt.Sprintf("\n\n[context document %s could not be loaded: %v]", doc, cerr.Err))
			continue
		}
		b.WriteString(fmt.Sprintf("\n\n--- %s ---\n%s", doc, string(data)))
	}

	return []*genai.Content{
		genai.NewContentFromText(b.String(), genai.RoleUser),
		genai.NewContentFromText("Understood. I'll work on the task with the tools available.", genai.RoleModel),
		genai.NewContentFromText(request, genai.RoleUser),
	}
}

func responseParts(resp *client.Response) []*genai.Part {
	if len(resp.Parts) > 0 {
		return resp.Parts
	}
	parts := make([]*genai.Part, 0, 1+len(resp.FunctionCalls))
	if resp.Text != "" {
		parts = append(parts, genai.NewPartFromText(resp.Text))
	}
	for _, fc := range resp.FunctionCalls {
		parts = append(parts, &genai.Part{FunctionCall: fc})
	}
	return parts
}
