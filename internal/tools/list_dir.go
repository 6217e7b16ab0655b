package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"
)

// maxListDirEntries limits directory listings to keep payloads bounded.
const maxListDirEntries = 2000

// ListDirTool lists the contents of a directory.
type ListDirTool struct {
	baseDir string
}

// NewListDirTool creates a ListDirTool resolving relative paths against
// baseDir.
func NewListDirTool(baseDir string) *ListDirTool {
	return &ListDirTool{baseDir: baseDir}
}

func (t *ListDirTool) Name() string {
	return "list_dir"
}

func (t *ListDirTool) Description() string {
	return "Lists the contents of a directory, including files and subdirectories."
}

func (t *ListDirTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"directory_path": {
					Type:        genai.TypeString,
					Description: "The path to the directory to list. Defaults to the working directory.",
				},
			},
			Required: []string{},
		},
	}
}

func (t *ListDirTool) Validate(args map[string]any) error {
	// directory_path is optional, defaults to the working directory
	return nil
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	dirPath, _ := GetString(args, "directory_path")
	if dirPath == "" {
		dirPath = "."
	}
	if !filepath.IsAbs(dirPath) {
		dirPath = filepath.Join(t.baseDir, dirPath)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewErrorResult(fmt.Sprintf("directory not found: %s", dirPath)), nil
		}
		return NewErrorResult(fmt.Sprintf("error reading directory: %s", err)), nil
	}

	if len(entries) == 0 {
		return NewSuccessResult("(empty)"), nil
	}

	truncated := false
	if len(entries) > maxListDirEntries {
		truncated = true
		entries = entries[:maxListDirEntries]
	}

	var builder strings.Builder
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		builder.WriteString(name)
		builder.WriteByte('\n')
	}
	if truncated {
		builder.WriteString(fmt.Sprintf("... (showing first %d entries)\n", maxListDirEntries))
	}

	return NewSuccessResult(builder.String()), nil
}
