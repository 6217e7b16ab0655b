package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gofer/internal/app"
	"gofer/internal/config"
	"gofer/internal/logging"

	"github.com/spf13/cobra"
)

var (
	version       = "0.1.0"
	cfgFile       string
	model         string
	maxIterations int
	contextDocs   []string
	undoOnFail    bool
	showDiffs     bool
	logLevel      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gofer [task]",
		Short: "Autonomous coding agent for your terminal",
		Long: `Gofer runs a single coding task through an autonomous agent loop.
The agent reads, writes and edits files with a read-before-write guard,
records every change for undo, and rolls back to a pre-run checkpoint
when a failed run asks for it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runTask,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/gofer/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model to use (default is gemini-2.5-flash)")
	rootCmd.PersistentFlags().IntVar(&maxIterations, "max-iterations", 0, "cap on model calls per run")
	rootCmd.PersistentFlags().StringSliceVar(&contextDocs, "context", nil, "context documents loaded into the prompt")
	rootCmd.PersistentFlags().BoolVar(&undoOnFail, "undo-on-fail", false, "roll back recorded changes when the run fails")
	rootCmd.PersistentFlags().BoolVar(&showDiffs, "diffs", false, "show patches in the change summary")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gofer version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTask(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Version = version

	if model != "" {
		cfg.API.Model = model
	}
	if maxIterations > 0 {
		cfg.Agent.MaxIterations = maxIterations
	}
	if len(contextDocs) > 0 {
		cfg.Agent.ContextDocs = append(cfg.Agent.ContextDocs, contextDocs...)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Configure(logging.ParseLevel(cfg.Logging.Level), os.Stderr)

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, workDir, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Close()
	application.UndoOnFail = undoOnFail
	application.ShowDiffs = showDiffs

	return application.Run(ctx, strings.Join(args, " "))
}
