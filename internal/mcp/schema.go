package mcp

import (
	"google.golang.org/genai"
)

// ConvertSchema converts an MCP JSON Schema to a Gemini Schema.
func ConvertSchema(js *JSONSchema) *genai.Schema {
	if js == nil {
		return nil
	}

	schema := &genai.Schema{
		Description: js.Description,
	}

	switch js.Type {
	case "string":
		schema.Type = genai.TypeString
		if len(js.Enum) > 0 {
			schema.Enum = js.Enum
		}
	case "number":
		schema.Type = genai.TypeNumber
	case "integer":
		schema.Type = genai.TypeInteger
	case "boolean":
		schema.Type = genai.TypeBoolean
	case "array":
		schema.Type = genai.TypeArray
		if js.Items != nil {
			schema.Items = ConvertSchema(js.Items)
		}
	case "object":
		schema.Type = genai.TypeObject
		if len(js.Properties) > 0 {
			schema.Properties = make(map[string]*genai.Schema)
			for name, prop := range js.Properties {
				schema.Properties[name] = ConvertSchema(prop)
			}
		}
		schema.Required = js.Required
	default:
		// Unknown types degrade to string
		schema.Type = genai.TypeString
	}

	return schema
}

// sanitizeFunctionName ensures a name is valid for Gemini.
// Function names must match [a-zA-Z_][a-zA-Z0-9_]*.
func sanitizeFunctionName(name string) string {
	if name == "" {
		return "unnamed_tool"
	}

	result := make([]byte, 0, len(name))
	for i, c := range name {
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_':
			result = append(result, byte(c))
		case c >= '0' && c <= '9':
			if i == 0 {
				result = append(result, '_')
			}
			result = append(result, byte(c))
		case c == '-' || c == '.' || c == ' ':
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "unnamed_tool"
	}
	return string(result)
}
