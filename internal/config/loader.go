package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from the given file, falling back to the
// default location when path is empty, then applies environment
// overrides. A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = configFilePath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	loadFromEnv(cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigDir returns the directory holding the config file, backups and
// logs.
func ConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "gofer")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "gofer")
}

func configFilePath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Expand environment variables in the config file
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv applies environment variable overrides.
func loadFromEnv(cfg *Config) {
	if apiKey := os.Getenv("GOFER_API_KEY"); apiKey != "" {
		cfg.API.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		cfg.API.APIKey = apiKey
	}
	if model := os.Getenv("GOFER_MODEL"); model != "" {
		cfg.API.Model = model
	}
}

// normalize fills gaps left by a sparse config file.
func (c *Config) normalize() error {
	d := DefaultConfig()
	if c.API.Model == "" {
		c.API.Model = d.API.Model
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = d.Agent.MaxIterations
	}
	if c.Agent.MaxTurns <= 0 {
		c.Agent.MaxTurns = d.Agent.MaxTurns
	}
	if c.Agent.SummarizeAfter <= 0 {
		c.Agent.SummarizeAfter = d.Agent.SummarizeAfter
	}
	if c.Undo.MaxChanges <= 0 {
		c.Undo.MaxChanges = d.Undo.MaxChanges
	}
	if c.Undo.BackupDir == "" {
		dir := ConfigDir()
		if dir != "" {
			c.Undo.BackupDir = filepath.Join(dir, "backups")
		}
	}
	if c.MCP.ConnectTimeout <= 0 {
		c.MCP.ConnectTimeout = d.MCP.ConnectTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	return nil
}

// Validate checks the configuration is usable for a run.
func (c *Config) Validate() error {
	if c.API.APIKey == "" {
		return ErrMissingAuth
	}
	if c.API.Temperature < 0 || c.API.Temperature > 2 {
		return ConfigError(fmt.Sprintf("temperature %v out of range [0, 2]", c.API.Temperature))
	}
	return nil
}

// ConfigError is a configuration validation failure.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrMissingAuth ConfigError = "missing authentication: set GEMINI_API_KEY or api.api_key in config.yaml"
)
