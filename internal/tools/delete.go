package tools

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"gofer/internal/ledger"
	"gofer/internal/undo"
)

// DeleteTool deletes a single file, recording its contents first so the
// deletion can be undone.
type DeleteTool struct {
	ledger   *ledger.Ledger
	recorder *undo.Recorder
}

// NewDeleteTool creates a DeleteTool guarded by led and recording into rec.
func NewDeleteTool(led *ledger.Ledger, rec *undo.Recorder) *DeleteTool {
	return &DeleteTool{ledger: led, recorder: rec}
}

func (t *DeleteTool) Name() string {
	return "delete"
}

func (t *DeleteTool) Description() string {
	return "Deletes a file. The file must be read before it can be deleted. Directories are not deleted."
}

func (t *DeleteTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_path": {
					Type:        genai.TypeString,
					Description: "The path to the file to delete",
				},
			},
			Required: []string{"file_path"},
		},
	}
}

func (t *DeleteTool) Validate(args map[string]any) error {
	path, ok := GetString(args, "file_path")
	if !ok || path == "" {
		return NewValidationError("file_path", "is required")
	}
	return nil
}

func (t *DeleteTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	path, _ := GetString(args, "file_path")

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewErrorResult(fmt.Sprintf("file not found: %s", path)), nil
		}
		return NewErrorResult(fmt.Sprintf("error accessing file: %s", err)), nil
	}
	if info.IsDir() {
		return NewErrorResult(fmt.Sprintf("path is a directory: %s", path)), nil
	}

	if guardErr := checkWriteGuard(t.ledger, t.Name(), path); guardErr != nil {
		return ToolResult{}, guardErr
	}

	oldContent, err := os.ReadFile(path)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("error reading file: %s", err)), nil
	}

	// Record before removal so the backup is on disk if the undo is
	// ever needed.
	if t.recorder != nil {
		t.recorder.Record(undo.NewFileChange(path, t.Name(), undo.KindDelete, oldContent, nil))
	}

	if err := os.Remove(path); err != nil {
		return NewErrorResult(fmt.Sprintf("error deleting file: %s", err)), nil
	}

	return NewSuccessResult(fmt.Sprintf("Deleted file: %s (%d bytes)", path, len(oldContent))), nil
}
