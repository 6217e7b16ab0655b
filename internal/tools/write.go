package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/genai"

	"gofer/internal/fileutil"
	"gofer/internal/ledger"
	"gofer/internal/undo"
)

// WriteTool writes full file contents, creating the file if needed.
// Writes to existing files require a prior read in this session.
type WriteTool struct {
	ledger   *ledger.Ledger
	recorder *undo.Recorder
}

// NewWriteTool creates a WriteTool guarded by led and recording into rec.
func NewWriteTool(led *ledger.Ledger, rec *undo.Recorder) *WriteTool {
	return &WriteTool{ledger: led, recorder: rec}
}

func (t *WriteTool) Name() string {
	return "write"
}

func (t *WriteTool) Description() string {
	return "Writes content to a file, replacing any existing content. Creates parent directories as needed. An existing file must be read before it can be overwritten."
}

func (t *WriteTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_path": {
					Type:        genai.TypeString,
					Description: "The path to the file to write",
				},
				"content": {
					Type:        genai.TypeString,
					Description: "The full content to write to the file",
				},
			},
			Required: []string{"file_path", "content"},
		},
	}
}

func (t *WriteTool) Validate(args map[string]any) error {
	path, ok := GetString(args, "file_path")
	if !ok || path == "" {
		return NewValidationError("file_path", "is required")
	}
	if _, ok := GetString(args, "content"); !ok {
		return NewValidationError("content", "is required")
	}
	return nil
}

func (t *WriteTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	path, _ := GetString(args, "file_path")
	content, _ := GetString(args, "content")

	if guardErr := checkWriteGuard(t.ledger, t.Name(), path); guardErr != nil {
		return ToolResult{}, guardErr
	}

	var oldContent []byte
	isNew := false
	if data, err := os.ReadFile(path); err == nil {
		oldContent = data
	} else if os.IsNotExist(err) {
		isNew = true
	} else {
		return NewErrorResult(fmt.Sprintf("error reading existing file: %s", err)), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return NewErrorResult(fmt.Sprintf("error creating directory: %s", err)), nil
	}

	newContent := []byte(content)

	// For a modify the pre-image must be recorded, with its backup on
	// disk, before the file is overwritten. Creates have no pre-image and
	// are recorded after the write succeeds.
	if t.recorder != nil && !isNew {
		t.recorder.Record(undo.NewFileChange(path, t.Name(), undo.KindModify, oldContent, newContent))
	}

	if err := fileutil.AtomicWrite(path, newContent, 0644); err != nil {
		return NewErrorResult(fmt.Sprintf("error writing file: %s", err)), nil
	}

	if t.recorder != nil && isNew {
		t.recorder.Record(undo.NewFileChange(path, t.Name(), undo.KindCreate, nil, newContent))
	}

	// Creating a file counts as knowing its contents.
	if t.ledger != nil {
		t.ledger.MarkRead(path)
	}

	if isNew {
		return NewSuccessResult(fmt.Sprintf("Created new file: %s (%d bytes)", path, len(newContent))), nil
	}
	return NewSuccessResult(fmt.Sprintf("Updated file: %s (%d bytes)", path, len(newContent))), nil
}
