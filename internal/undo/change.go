package undo

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeKind classifies what a recorded change did to its file.
type ChangeKind string

const (
	KindCreate ChangeKind = "create"
	KindModify ChangeKind = "modify"
	KindDelete ChangeKind = "delete"
)

// FileChange captures one mutation of one file: the pre-image, the
// post-image and enough metadata to revert it later.
type FileChange struct {
	ID         string
	Path       string
	Kind       ChangeKind
	Tool       string
	Timestamp  time.Time
	OldContent []byte
	NewContent []byte

	// Description is an optional human-readable note. AgentID names the
	// originating agent when several share a recorder. Both are set, if
	// at all, before the change is handed to Record.
	Description string
	AgentID     string

	// evicted is set when the in-memory snapshots were dropped to bound
	// history. An evicted change can still be undone from its disk backup.
	evicted bool
	// undone marks a change that has already been reverted.
	undone bool
}

// NewFileChange creates a change record for path. The path is stored in
// absolute form so history lookups are spelling-independent.
func NewFileChange(path, tool string, kind ChangeKind, oldContent, newContent []byte) *FileChange {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &FileChange{
		ID:         uuid.NewString(),
		Path:       path,
		Kind:       kind,
		Tool:       tool,
		Timestamp:  time.Now(),
		OldContent: oldContent,
		NewContent: newContent,
	}
}

// Summary returns a one-line description of the change.
func (c *FileChange) Summary() string {
	base := filepath.Base(c.Path)
	switch c.Kind {
	case KindCreate:
		return fmt.Sprintf("created %s (%d bytes)", base, len(c.NewContent))
	case KindDelete:
		return fmt.Sprintf("deleted %s (%d bytes)", base, len(c.OldContent))
	default:
		return fmt.Sprintf("modified %s (%+d bytes)", base, c.SizeChange())
	}
}

// SizeChange returns the byte delta of the change.
func (c *FileChange) SizeChange() int {
	return len(c.NewContent) - len(c.OldContent)
}

// Evicted reports whether the in-memory snapshots were dropped.
func (c *FileChange) Evicted() bool {
	return c.evicted
}

// Undone reports whether the change has already been reverted.
func (c *FileChange) Undone() bool {
	return c.undone
}

// Diff renders the change as a patch, suitable for display.
func (c *FileChange) Diff() string {
	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(string(c.OldContent), string(c.NewContent))
	return dmp.PatchToText(patches)
}
