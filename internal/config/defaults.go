package config

import "time"

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
		},
		Agent: AgentConfig{
			MaxIterations:  25,
			MaxTurns:       10,
			SummarizeAfter: 16,
		},
		Undo: UndoConfig{
			MaxChanges: 100,
		},
		MCP: MCPConfig{
			ConnectTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}
