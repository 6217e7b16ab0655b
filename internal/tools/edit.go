package tools

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"gofer/internal/fileutil"
	"gofer/internal/ledger"
	"gofer/internal/undo"
)

// EditTool performs string replacement in a file.
type EditTool struct {
	ledger   *ledger.Ledger
	recorder *undo.Recorder
}

// NewEditTool creates an EditTool guarded by led and recording into rec.
func NewEditTool(led *ledger.Ledger, rec *undo.Recorder) *EditTool {
	return &EditTool{ledger: led, recorder: rec}
}

func (t *EditTool) Name() string {
	return "edit"
}

func (t *EditTool) Description() string {
	return "Performs string replacement in a file. The old_string must be unique in the file unless replace_all is true. The file must be read before it can be edited."
}

func (t *EditTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_path": {
					Type:        genai.TypeString,
					Description: "The path to the file to edit",
				},
				"old_string": {
					Type:        genai.TypeString,
					Description: "The text to find and replace",
				},
				"new_string": {
					Type:        genai.TypeString,
					Description: "The text to replace with (must be different from old_string)",
				},
				"replace_all": {
					Type:        genai.TypeBoolean,
					Description: "If true, replace all occurrences. If false (default), old_string must be unique.",
				},
			},
			Required: []string{"file_path", "old_string", "new_string"},
		},
	}
}

func (t *EditTool) Validate(args map[string]any) error {
	path, ok := GetString(args, "file_path")
	if !ok || path == "" {
		return NewValidationError("file_path", "is required")
	}
	oldStr, ok := GetString(args, "old_string")
	if !ok || oldStr == "" {
		return NewValidationError("old_string", "is required")
	}
	newStr, ok := GetString(args, "new_string")
	if !ok {
		return NewValidationError("new_string", "is required")
	}
	if oldStr == newStr {
		return NewValidationError("new_string", "must be different from old_string")
	}
	return nil
}

func (t *EditTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	path, _ := GetString(args, "file_path")
	oldStr, _ := GetString(args, "old_string")
	newStr, _ := GetString(args, "new_string")
	replaceAll := GetBoolDefault(args, "replace_all", false)

	if guardErr := checkWriteGuard(t.ledger, t.Name(), path); guardErr != nil {
		return ToolResult{}, guardErr
	}

	data, err := readForEdit(path)
	if err != nil {
		return NewErrorResult(err.Error()), nil
	}

	content := string(data)
	count := strings.Count(content, oldStr)
	if count == 0 {
		return NewErrorResult(fmt.Sprintf("old_string not found in file: %s", path)), nil
	}
	if count > 1 && !replaceAll {
		return NewErrorResult(fmt.Sprintf("old_string appears %d times in %s. Provide more surrounding context to make it unique, or set replace_all=true.", count, path)), nil
	}

	var newContent string
	if replaceAll {
		newContent = strings.ReplaceAll(content, oldStr, newStr)
	} else {
		newContent = strings.Replace(content, oldStr, newStr, 1)
	}

	newBytes := []byte(newContent)

	// Record before overwriting so the pre-image backup is on disk first.
	if t.recorder != nil {
		t.recorder.Record(undo.NewFileChange(path, t.Name(), undo.KindModify, data, newBytes))
	}

	if err := fileutil.AtomicWrite(path, newBytes, 0644); err != nil {
		return NewErrorResult(fmt.Sprintf("error writing file: %s", err)), nil
	}

	if replaceAll {
		return NewSuccessResult(fmt.Sprintf("Replaced %d occurrence(s) in %s", count, path)), nil
	}
	return NewSuccessResult(fmt.Sprintf("Replaced 1 occurrence in %s", path)), nil
}

// readForEdit loads a file for in-place editing, rejecting binaries.
func readForEdit(path string) ([]byte, error) {
	data, err := readFileChecked(path)
	if err != nil {
		return nil, err
	}
	checkLen := len(data)
	if checkLen > 512 {
		checkLen = 512
	}
	if bytes.IndexByte(data[:checkLen], 0) >= 0 {
		return nil, fmt.Errorf("cannot edit binary file: %s", path)
	}
	return data, nil
}
