package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestRemoteToolQualifiedName(t *testing.T) {
	info := &ToolInfo{Name: "search", Description: "searches things"}

	tool := NewRemoteTool(nil, "files", "", info)
	assert.Equal(t, "files__search", tool.Name())
	assert.Equal(t, "files__search", tool.Declaration().Name)

	// An explicit prefix overrides the server name.
	tool = NewRemoteTool(nil, "files", "fs", info)
	assert.Equal(t, "fs__search", tool.Name())
}

func TestSanitizeFunctionName(t *testing.T) {
	assert.Equal(t, "my_tool", sanitizeFunctionName("my-tool"))
	assert.Equal(t, "a_b_c", sanitizeFunctionName("a.b c"))
	assert.Equal(t, "_1tool", sanitizeFunctionName("1tool"))
	assert.Equal(t, "unnamed_tool", sanitizeFunctionName(""))
	assert.Equal(t, "unnamed_tool", sanitizeFunctionName("!!!"))
}

func TestConvertSchema(t *testing.T) {
	js := &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"query": {Type: "string", Description: "what to search for"},
			"limit": {Type: "integer"},
			"tags":  {Type: "array", Items: &JSONSchema{Type: "string"}},
		},
		Required: []string{"query"},
	}

	schema := ConvertSchema(js)
	require.NotNil(t, schema)
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"query"}, schema.Required)
	assert.Equal(t, genai.TypeString, schema.Properties["query"].Type)
	assert.Equal(t, genai.TypeInteger, schema.Properties["limit"].Type)
	assert.Equal(t, genai.TypeArray, schema.Properties["tags"].Type)
	assert.Equal(t, genai.TypeString, schema.Properties["tags"].Items.Type)

	// Unknown types degrade to string.
	assert.Equal(t, genai.TypeString, ConvertSchema(&JSONSchema{Type: "null"}).Type)
	assert.Nil(t, ConvertSchema(nil))
}

func TestRemoteToolValidate(t *testing.T) {
	info := &ToolInfo{
		Name: "search",
		InputSchema: &JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"query": {Type: "string"},
				"limit": {Type: "integer"},
			},
			Required: []string{"query"},
		},
	}
	tool := NewRemoteTool(nil, "files", "", info)

	assert.Error(t, tool.Validate(map[string]any{}))
	assert.Error(t, tool.Validate(map[string]any{"query": 7}))
	assert.NoError(t, tool.Validate(map[string]any{"query": "x"}))
	assert.NoError(t, tool.Validate(map[string]any{"query": "x", "limit": float64(3)}))
}
