package mcp

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"gofer/internal/tools"
)

// RemoteTool wraps an MCP server tool behind the local Tool interface.
// It is registered under "<provider>__<tool>" so remote names can never
// shadow local ones.
type RemoteTool struct {
	client      *Client
	serverName  string
	toolName    string // original MCP tool name
	displayName string // fully-qualified name advertised to the model
	description string
	inputSchema *JSONSchema
	declaration *genai.FunctionDeclaration
}

// NewRemoteTool creates a wrapper for an MCP tool. prefix overrides the
// server name in the qualified name when non-empty.
func NewRemoteTool(client *Client, serverName, prefix string, info *ToolInfo) *RemoteTool {
	provider := prefix
	if provider == "" {
		provider = serverName
	}

	displayName := sanitizeFunctionName(provider + tools.RemoteSeparator + info.Name)

	return &RemoteTool{
		client:      client,
		serverName:  serverName,
		toolName:    info.Name,
		displayName: displayName,
		description: info.Description,
		inputSchema: info.InputSchema,
		declaration: &genai.FunctionDeclaration{
			Name:        displayName,
			Description: info.Description,
			Parameters:  ConvertSchema(info.InputSchema),
		},
	}
}

// Name returns the fully-qualified tool name.
func (t *RemoteTool) Name() string {
	return t.displayName
}

// Description returns the tool description.
func (t *RemoteTool) Description() string {
	return t.description
}

// Declaration returns the Gemini function declaration.
func (t *RemoteTool) Declaration() *genai.FunctionDeclaration {
	return t.declaration
}

// Validate checks args against the tool's declared input schema.
func (t *RemoteTool) Validate(args map[string]any) error {
	if t.inputSchema == nil {
		return nil
	}

	for _, required := range t.inputSchema.Required {
		if _, ok := args[required]; !ok {
			return tools.NewValidationError(required, "is required")
		}
	}

	for name, schema := range t.inputSchema.Properties {
		if val, ok := args[name]; ok {
			if err := validateValue(name, val, schema); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateValue(name string, val any, schema *JSONSchema) error {
	if schema == nil {
		return nil
	}

	switch schema.Type {
	case "string":
		if _, ok := val.(string); !ok {
			return tools.NewValidationError(name, "must be a string")
		}
	case "number", "integer":
		switch val.(type) {
		case int, int64, float64:
		default:
			return tools.NewValidationError(name, "must be a number")
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return tools.NewValidationError(name, "must be a boolean")
		}
	case "array":
		if _, ok := val.([]any); !ok {
			return tools.NewValidationError(name, "must be an array")
		}
	case "object":
		if _, ok := val.(map[string]any); !ok {
			return tools.NewValidationError(name, "must be an object")
		}
	}
	return nil
}

// Execute forwards the call to the MCP server.
func (t *RemoteTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	if t.client == nil || !t.client.IsInitialized() {
		return tools.NewErrorResult("MCP server not connected"), nil
	}

	result, err := t.client.CallTool(ctx, t.toolName, args)
	if err != nil {
		return tools.NewErrorResult(fmt.Sprintf("MCP call failed: %s", err)), nil
	}

	content := formatContentBlocks(result.Content)
	if result.IsError {
		return tools.NewErrorResult(content), nil
	}

	return tools.NewSuccessResultWithData(content, map[string]any{
		"mcp_server": t.serverName,
		"mcp_tool":   t.toolName,
	}), nil
}

// ServerName returns the name of the providing server.
func (t *RemoteTool) ServerName() string {
	return t.serverName
}

func formatContentBlocks(blocks []*ContentBlock) string {
	if len(blocks) == 0 {
		return "(no output)"
	}

	var parts []string
	for _, block := range blocks {
		switch block.Type {
		case "image":
			parts = append(parts, fmt.Sprintf("[Image: %s]", block.MIMEType))
		case "resource":
			parts = append(parts, fmt.Sprintf("[Resource: %s]", block.URI))
		default:
			if block.Text != "" {
				parts = append(parts, block.Text)
			}
		}
	}

	if len(parts) == 0 {
		return "(no output)"
	}
	return strings.Join(parts, "\n")
}
