package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gofer/internal/agent"
	"gofer/internal/checkpoint"
	"gofer/internal/client"
	"gofer/internal/config"
	ctxmgr "gofer/internal/context"
	"gofer/internal/ledger"
	"gofer/internal/logging"
	"gofer/internal/mcp"
	"gofer/internal/tools"
	"gofer/internal/undo"
)

// App wires the agent loop and its collaborators for one process.
type App struct {
	cfg         *config.Config
	workDir     string
	out         io.Writer
	client      client.Client
	runner      *agent.Runner
	recorder    *undo.Recorder
	checkpoints *checkpoint.Store
	mcpManager  *mcp.Manager

	// UndoOnFail rolls the workspace back to the pre-run checkpoint when
	// a run ends in failure.
	UndoOnFail bool

	// ShowDiffs includes a patch for each change in the run summary.
	ShowDiffs bool
}

// New assembles an application from config.
func New(ctx context.Context, cfg *config.Config, workDir string, out io.Writer) (*App, error) {
	if out == nil {
		out = os.Stdout
	}

	if cfg.Logging.File {
		if dir := config.ConfigDir(); dir != "" {
			if err := logging.EnableFileLogging(dir, logging.ParseLevel(cfg.Logging.Level)); err != nil {
				fmt.Fprintf(out, "warning: file logging disabled: %v\n", err)
			}
		}
	}

	led := ledger.New()
	recorder, err := undo.NewRecorder(cfg.Undo.BackupDir, cfg.Undo.MaxChanges)
	if err != nil {
		return nil, fmt.Errorf("failed to create change recorder: %w", err)
	}
	checkpoints := checkpoint.NewStore(recorder)

	registry := tools.NewRegistry()
	registry.MustRegister(tools.NewReadTool(led))
	registry.MustRegister(tools.NewWriteTool(led, recorder))
	registry.MustRegister(tools.NewEditTool(led, recorder))
	registry.MustRegister(tools.NewDeleteTool(led, recorder))
	registry.MustRegister(tools.NewListDirTool(workDir))
	registry.MustRegister(tools.NewGlobTool(workDir))

	var remote tools.Remote
	var manager *mcp.Manager
	if len(cfg.MCP.Servers) > 0 {
		manager = mcp.NewManager(cfg.MCP.Servers)
		manager.SetConnectTimeout(cfg.MCP.ConnectTimeout)
		if err := manager.ConnectAll(ctx); err != nil {
			// Unreachable servers are not fatal; their tools are simply
			// absent this session.
			logging.Warn("some MCP servers failed to connect", "error", err)
		}
		remote = manager
	}

	dispatcher := tools.NewDispatcher(registry, remote)
	turns := ctxmgr.NewManager(cfg.Agent.MaxTurns, cfg.Agent.SummarizeAfter)

	gc, err := client.NewGeminiClient(ctx, client.GeminiOptions{
		APIKey:      cfg.API.APIKey,
		Model:       cfg.API.Model,
		Temperature: cfg.API.Temperature,
	})
	if err != nil {
		return nil, err
	}

	runner := agent.NewRunner(gc, dispatcher, turns, agent.Config{
		Persona:       cfg.Agent.Persona,
		MaxIterations: cfg.Agent.MaxIterations,
		ContextDocs:   cfg.Agent.ContextDocs,
	})

	return &App{
		cfg:         cfg,
		workDir:     workDir,
		out:         out,
		client:      gc,
		runner:      runner,
		recorder:    recorder,
		checkpoints: checkpoints,
		mcpManager:  manager,
	}, nil
}

// Run executes one task. A checkpoint is taken before the run so a
// failed run can be rolled back.
func (a *App) Run(ctx context.Context, request string) error {
	pre := a.checkpoints.Create("pre-run", "state before: "+truncate(request, 60))

	result, runErr := a.runner.Run(ctx, request)
	if runErr != nil {
		fmt.Fprintf(a.out, "run failed: %v\n", runErr)
		if a.UndoOnFail {
			a.rollback(pre.ID)
		}
		return runErr
	}

	fmt.Fprintln(a.out, result.Text)
	a.printChangeSummary()
	return nil
}

// Close shuts down remote connections and the model client.
func (a *App) Close() {
	if a.mcpManager != nil {
		a.mcpManager.Shutdown()
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			logging.Warn("client close failed", "error", err)
		}
	}
	logging.Close()
}

func (a *App) rollback(checkpointID string) {
	res, err := a.checkpoints.Rollback(checkpointID)
	if err != nil {
		fmt.Fprintf(a.out, "rollback failed: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "rolled back %d change(s)\n", res.Reverted)
	for _, id := range res.Failed {
		fmt.Fprintf(a.out, "  could not revert %s\n", id)
	}
}

// printChangeSummary lists the files touched by the run, newest last.
func (a *App) printChangeSummary() {
	history := a.recorder.History(0)
	if len(history) == 0 {
		return
	}

	fmt.Fprintf(a.out, "\n%d file change(s):\n", len(history))
	for i := len(history) - 1; i >= 0; i-- {
		ch := history[i]
		fmt.Fprintf(a.out, "  %s\n", ch.Summary())
		if a.ShowDiffs && !ch.Evicted() {
			if patch := ch.Diff(); patch != "" {
				fmt.Fprintln(a.out, indent(patch, "    "))
			}
		}
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
