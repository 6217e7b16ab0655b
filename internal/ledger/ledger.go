// Package ledger tracks which files have been read during a session.
// Mutating tools consult it before touching an existing file: a file that
// exists on disk must have been read through the ledger before a write,
// edit or delete is allowed.
package ledger

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Ledger records file reads for a single session. All paths are
// canonicalized before lookup so that relative and absolute spellings of
// the same file hit the same entry.
type Ledger struct {
	mu        sync.RWMutex
	sessionID string
	reads     map[string]bool
}

// New creates an empty ledger with a fresh session ID.
func New() *Ledger {
	return &Ledger{
		sessionID: uuid.NewString(),
		reads:     make(map[string]bool),
	}
}

// SessionID returns the session this ledger belongs to.
func (l *Ledger) SessionID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionID
}

// MarkRead records that path has been read in this session.
func (l *Ledger) MarkRead(path string) {
	key := canonical(path)
	l.mu.Lock()
	l.reads[key] = true
	l.mu.Unlock()
}

// HasBeenRead reports whether path was read in this session.
func (l *Ledger) HasBeenRead(path string) bool {
	key := canonical(path)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reads[key]
}

// FileExists reports whether path currently exists on disk. Writes to
// paths that do not exist are always allowed, so callers pair this with
// HasBeenRead to decide whether a mutation is permitted.
func (l *Ledger) FileExists(path string) bool {
	_, err := os.Stat(canonical(path))
	return err == nil
}

// AllowWrite reports whether a mutation of path is permitted: either the
// file does not exist yet, or it has been read in this session.
func (l *Ledger) AllowWrite(path string) bool {
	return !l.FileExists(path) || l.HasBeenRead(path)
}

// Count returns the number of distinct files read so far.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.reads)
}

// Reset clears all recorded reads and starts a new session.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.sessionID = uuid.NewString()
	l.reads = make(map[string]bool)
	l.mu.Unlock()
}

// canonical resolves path to its OS-canonical absolute form. Symlinks are
// resolved when the target exists; otherwise the cleaned absolute path is
// used so that not-yet-created files still get stable keys.
func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
