package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"gofer/internal/ledger"
)

const (
	// defaultReadLimit is the default number of lines returned.
	defaultReadLimit = 2000

	// maxLineLen truncates pathological lines to keep payloads bounded.
	maxLineLen = 2000

	// maxReadFileSize rejects files too large to return inline.
	maxReadFileSize = 10 * 1024 * 1024
)

// ReadTool reads a text file and records the read in the session ledger.
type ReadTool struct {
	ledger *ledger.Ledger
}

// NewReadTool creates a ReadTool recording reads into led.
func NewReadTool(led *ledger.Ledger) *ReadTool {
	return &ReadTool{ledger: led}
}

func (t *ReadTool) Name() string {
	return "read"
}

func (t *ReadTool) Description() string {
	return "Reads a text file and returns its contents with line numbers. Supports offset and limit for large files. Files must be read before they can be modified."
}

func (t *ReadTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_path": {
					Type:        genai.TypeString,
					Description: "The path to the file to read",
				},
				"offset": {
					Type:        genai.TypeInteger,
					Description: "Line number to start reading from (1-based)",
				},
				"limit": {
					Type:        genai.TypeInteger,
					Description: "Maximum number of lines to return",
				},
			},
			Required: []string{"file_path"},
		},
	}
}

func (t *ReadTool) Validate(args map[string]any) error {
	path, ok := GetString(args, "file_path")
	if !ok || path == "" {
		return NewValidationError("file_path", "is required")
	}
	return nil
}

func (t *ReadTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	path, _ := GetString(args, "file_path")
	offset := GetIntDefault(args, "offset", 1)
	limit := GetIntDefault(args, "limit", defaultReadLimit)
	if offset < 1 {
		offset = 1
	}

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
	if info.Size() > maxReadFileSize {
		return NewErrorResult(fmt.Sprintf("file too large (%d bytes): %s", info.Size(), path)), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("error opening file: %s", err)), nil
	}
	defer f.Close()

	var builder strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	emitted := 0
	for scanner.Scan() {
		lineNum++
		if lineNum < offset {
			continue
		}
		if emitted >= limit {
			builder.WriteString(fmt.Sprintf("... (truncated at line %d)\n", lineNum-1))
			break
		}
		line := scanner.Text()
		if len(line) > maxLineLen {
			line = line[:maxLineLen] + "..."
		}
		builder.WriteString(fmt.Sprintf("%6d\t%s\n", lineNum, line))
		emitted++
	}
	if err := scanner.Err(); err != nil {
		return NewErrorResult(fmt.Sprintf("error reading file: %s", err)), nil
	}

	// A successful read, even an empty or out-of-range one, unlocks the
	// file for mutation.
	if t.ledger != nil {
		t.ledger.MarkRead(path)
	}

	if lineNum == 0 {
		return NewSuccessResult("(empty file)"), nil
	}
	if emitted == 0 {
		return NewSuccessResult(fmt.Sprintf("(no lines at offset %d, file has %d lines)", offset, lineNum)), nil
	}
	return NewSuccessResult(builder.String()), nil
}
