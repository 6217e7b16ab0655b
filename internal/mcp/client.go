package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gofer/internal/logging"
)

// Client handles JSON-RPC communication with one MCP server.
type Client struct {
	transport  Transport
	serverInfo *ServerInfo

	initialized bool
	mu          sync.RWMutex

	nextID    int64
	pending   map[int64]chan *JSONRPCMessage
	pendingMu sync.Mutex

	serverName string
	config     *ServerConfig

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates an MCP client for the configured transport.
func NewClient(cfg *ServerConfig) (*Client, error) {
	var transport Transport
	var err error

	switch cfg.Transport {
	case "stdio":
		transport, err = NewStdioTransport(cfg.Command, cfg.Args, cfg.Env)
	case "http":
		transport, err = NewHTTPTransport(cfg.URL, cfg.Headers, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown transport type: %s", cfg.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		transport:  transport,
		serverName: cfg.Name,
		config:     cfg,
		pending:    make(map[int64]chan *JSONRPCMessage),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	go c.receiveLoop()

	return c, nil
}

func (c *Client) receiveLoop() {
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		msg, err := c.transport.Receive()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			logging.Warn("MCP receive error", "server", c.serverName, "error", err)
			return
		}

		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg *JSONRPCMessage) {
	if msg.IsResponse() {
		id, ok := msg.ID.(float64) // JSON numbers decode as float64
		if !ok {
			logging.Warn("MCP response with invalid ID type", "id", msg.ID)
			return
		}

		c.pendingMu.Lock()
		ch, exists := c.pending[int64(id)]
		if exists {
			delete(c.pending, int64(id))
		}
		c.pendingMu.Unlock()

		if !exists {
			logging.Warn("MCP response for unknown request", "id", id)
			return
		}
		select {
		case ch <- msg:
		default:
		}
	} else if msg.IsNotification() {
		logging.Debug("MCP notification received", "method", msg.Method)
	}
}

// request sends a request and waits for its response.
func (c *Client) request(ctx context.Context, method string, params any) (*JSONRPCMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)

	respCh := make(chan *JSONRPCMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	msg := &JSONRPCMessage{
		ID:     id,
		Method: method,
		Params: params,
	}
	if err := c.transport.Send(msg); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("request timeout after %v", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) notify(method string, params any) error {
	return c.transport.Send(&JSONRPCMessage{Method: method, Params: params})
}

// decodeResult re-marshals a raw JSON-RPC result into a typed struct.
func decodeResult(result any, out any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse result: %w", err)
	}
	return nil
}

// Initialize performs the MCP handshake with the server.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	params := &InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo: &ClientInfo{
			Name:    "gofer",
			Version: "1.0.0",
		},
		Capabilities: map[string]any{},
	}

	resp, err := c.request(ctx, MethodInitialize, params)
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	var result InitializeResult
	if err := decodeResult(resp.Result, &result); err != nil {
		return err
	}
	c.serverInfo = result.ServerInfo

	if err := c.notify(MethodInitialized, nil); err != nil {
		return fmt.Errorf("failed to send initialized notification: %w", err)
	}

	c.initialized = true

	logging.Info("MCP server initialized",
		"name", c.serverName,
		"server", c.serverInfo.Name,
		"version", c.serverInfo.Version)

	return nil
}

// ListTools retrieves the tools offered by the server.
func (c *Client) ListTools(ctx context.Context) ([]*ToolInfo, error) {
	if !c.IsInitialized() {
		return nil, fmt.Errorf("client not initialized")
	}

	resp, err := c.request(ctx, MethodToolsList, nil)
	if err != nil {
		return nil, fmt.Errorf("tools/list failed: %w", err)
	}

	var result ListToolsResult
	if err := decodeResult(resp.Result, &result); err != nil {
		return nil, err
	}

	logging.Debug("MCP tools listed", "server", c.serverName, "count", len(result.Tools))
	return result.Tools, nil
}

// CallTool invokes a tool on the server.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	if !c.IsInitialized() {
		return nil, fmt.Errorf("client not initialized")
	}

	params := &CallToolParams{Name: name, Arguments: args}
	resp, err := c.request(ctx, MethodToolsCall, params)
	if err != nil {
		return nil, fmt.Errorf("tools/call failed: %w", err)
	}

	var result CallToolResult
	if err := decodeResult(resp.Result, &result); err != nil {
		return nil, err
	}

	logging.Debug("MCP tool called",
		"server", c.serverName,
		"tool", name,
		"is_error", result.IsError)
	return &result, nil
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	if !c.IsInitialized() {
		return fmt.Errorf("client not initialized")
	}
	_, err := c.request(ctx, MethodPing, nil)
	return err
}

// ServerInfo returns information about the connected server.
func (c *Client) ServerInfo() *ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// ServerName returns the configured server name.
func (c *Client) ServerName() string {
	return c.serverName
}

// IsInitialized returns whether the handshake has completed.
func (c *Client) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// Close shuts down the client and its transport.
func (c *Client) Close() error {
	c.cancel()

	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		logging.Warn("MCP client receive loop did not stop in time")
	}

	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}

	logging.Debug("MCP client closed", "server", c.serverName)
	return nil
}
