package config

import (
	"time"

	"gofer/internal/mcp"
)

// Config represents the main application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Agent   AgentConfig   `yaml:"agent"`
	Undo    UndoConfig    `yaml:"undo"`
	MCP     MCPConfig     `yaml:"mcp"`
	Logging LoggingConfig `yaml:"logging"`

	// Runtime version information
	Version string `yaml:"-"`
}

// APIConfig holds model API settings.
type APIConfig struct {
	APIKey      string  `yaml:"api_key,omitempty"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// AgentConfig holds loop and history settings.
type AgentConfig struct {
	// MaxIterations caps model calls per run.
	MaxIterations int `yaml:"max_iterations"`

	// MaxTurns is the rolling window of past turns kept verbatim.
	MaxTurns int `yaml:"max_turns"`

	// SummarizeAfter is the turn count that triggers one-time compression.
	SummarizeAfter int `yaml:"summarize_after"`

	// Persona overrides the built-in system prompt.
	Persona string `yaml:"persona,omitempty"`

	// ContextDocs are files loaded into the seed prompt of every run.
	ContextDocs []string `yaml:"context_docs,omitempty"`
}

// UndoConfig holds change-recorder settings.
type UndoConfig struct {
	// MaxChanges bounds in-memory content snapshots; older changes fall
	// back to their on-disk backups.
	MaxChanges int `yaml:"max_changes"`

	// BackupDir overrides the default backup location.
	BackupDir string `yaml:"backup_dir,omitempty"`
}

// MCPConfig holds remote tool provider settings.
type MCPConfig struct {
	Servers []*mcp.ServerConfig `yaml:"servers,omitempty"`

	// ConnectTimeout bounds each server's connect-and-list handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`

	// File enables logging to <config dir>/gofer.log.
	File bool `yaml:"file"`
}
