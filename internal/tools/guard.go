package tools

import (
	"fmt"
	"os"

	"gofer/internal/ledger"
)

// checkWriteGuard enforces the read-before-write rule for mutating
// tools. A nil ledger disables the guard. New paths are always allowed.
func checkWriteGuard(led *ledger.Ledger, tool, path string) *ToolError {
	if led == nil {
		return nil
	}
	if led.AllowWrite(path) {
		return nil
	}
	return WriteGuardError(tool, path)
}

// readFileChecked loads a file, mapping the common failure modes to
// messages suitable for a tool result.
func readFileChecked(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("error reading file: %s", err)
	}
	return data, nil
}
