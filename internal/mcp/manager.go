package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"gofer/internal/logging"
	"gofer/internal/tools"
)

// defaultServerTimeout is the per-server connection timeout.
const defaultServerTimeout = 15 * time.Second

// Manager holds the configured MCP servers and the remote tools they
// expose. It implements tools.Remote: lookups always go through the
// fully-qualified "<provider>__<tool>" name.
type Manager struct {
	servers        map[string]*ServerConfig
	clients        map[string]*Client
	tools          map[string]*RemoteTool
	connectTimeout time.Duration
	mu             sync.RWMutex
}

// NewManager creates a manager for the given server configurations.
func NewManager(servers []*ServerConfig) *Manager {
	m := &Manager{
		servers:        make(map[string]*ServerConfig),
		clients:        make(map[string]*Client),
		tools:          make(map[string]*RemoteTool),
		connectTimeout: defaultServerTimeout,
	}
	for _, cfg := range servers {
		m.servers[cfg.Name] = cfg
	}
	return m
}

// SetConnectTimeout overrides the per-server connection timeout.
func (m *Manager) SetConnectTimeout(d time.Duration) {
	if d > 0 {
		m.connectTimeout = d
	}
}

type serverResult struct {
	name   string
	client *Client
	tools  []*RemoteTool
	err    error
}

// ConnectAll connects to every server configured for auto-connect, in
// parallel with per-server timeouts, and registers their tools.
func (m *Manager) ConnectAll(ctx context.Context) error {
	m.mu.RLock()
	var toConnect []*ServerConfig
	for name, cfg := range m.servers {
		if !cfg.AutoConnect {
			logging.Debug("MCP server skipped (auto_connect=false)", "name", name)
			continue
		}
		toConnect = append(toConnect, cfg)
	}
	m.mu.RUnlock()

	if len(toConnect) == 0 {
		return nil
	}

	results := make(chan serverResult, len(toConnect))
	var wg sync.WaitGroup

	for _, cfg := range toConnect {
		wg.Add(1)
		go func(cfg *ServerConfig) {
			defer wg.Done()

			serverCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
			defer cancel()

			client, remoteTools, err := connectServer(serverCtx, cfg)
			results <- serverResult{name: cfg.Name, client: client, tools: remoteTools, err: err}
		}(cfg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	m.mu.Lock()
	for res := range results {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.name, res.err))
			continue
		}
		m.clients[res.name] = res.client
		for _, tool := range res.tools {
			m.tools[tool.Name()] = tool
		}
		logging.Info("MCP server connected", "name", res.name, "tools", len(res.tools))
	}
	m.mu.Unlock()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func connectServer(ctx context.Context, cfg *ServerConfig) (*Client, []*RemoteTool, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Initialize(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("initialization failed: %w", err)
	}

	infos, err := client.ListTools(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to list tools: %w", err)
	}

	remoteTools := make([]*RemoteTool, 0, len(infos))
	for _, info := range infos {
		remoteTools = append(remoteTools, NewRemoteTool(client, cfg.Name, cfg.ToolPrefix, info))
	}
	return client, remoteTools, nil
}

// Tool returns the remote tool registered under the fully-qualified name.
func (m *Manager) Tool(name string) (tools.Tool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tool, ok := m.tools[name]
	if !ok {
		return nil, false
	}
	return tool, true
}

// Declarations returns the function declarations of all remote tools.
func (m *Manager) Declarations() []*genai.FunctionDeclaration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	decls := make([]*genai.FunctionDeclaration, 0, len(m.tools))
	for _, tool := range m.tools {
		decls = append(decls, tool.Declaration())
	}
	return decls
}

// ToolCount returns the number of registered remote tools.
func (m *Manager) ToolCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tools)
}

// ConnectedServers returns the names of all connected servers.
func (m *Manager) ConnectedServers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	return names
}

// Shutdown disconnects from all servers.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for name, client := range m.clients {
		if err := client.Close(); err != nil {
			logging.Warn("MCP client close error", "name", name, "error", err)
			lastErr = err
		}
	}

	m.clients = make(map[string]*Client)
	m.tools = make(map[string]*RemoteTool)

	logging.Debug("MCP manager shutdown complete")
	return lastErr
}
