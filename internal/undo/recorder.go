package undo

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gofer/internal/fileutil"
	"gofer/internal/logging"
)

// DefaultMaxChanges bounds how many changes keep their snapshots in memory.
const DefaultMaxChanges = 100

// Stats summarizes the recorder's history.
type Stats struct {
	Total    int
	Creates  int
	Modifies int
	Deletes  int
	Evicted  int
	Undone   int

	// Oldest and Newest are the timestamps of the ends of the log,
	// zero while the log is empty.
	Oldest time.Time
	Newest time.Time
}

// Recorder keeps a session-scoped log of file changes. The log itself is
// append-only; positions never move, so the ID index stays valid for the
// life of the session. Once the number of changes holding in-memory
// snapshots exceeds the cap, the oldest snapshots are dropped and undo
// for those entries falls back to their disk backups.
type Recorder struct {
	mu          sync.Mutex
	log         []*FileChange
	index       map[string]int
	contentHead int
	maxChanges  int
	backupDir   string
	observers   []Observer
}

// NewRecorder creates a recorder writing backups under backupDir.
func NewRecorder(backupDir string, maxChanges int) (*Recorder, error) {
	if maxChanges <= 0 {
		maxChanges = DefaultMaxChanges
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}
	return &Recorder{
		index:      make(map[string]int),
		maxChanges: maxChanges,
		backupDir:  backupDir,
	}, nil
}

// Observe registers an observer for recorder events.
func (r *Recorder) Observe(fn Observer) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// Record appends a change to the log and writes its pre-image backup to
// disk. Returns the change ID.
func (r *Recorder) Record(change *FileChange) string {
	r.mu.Lock()

	// Creates have no pre-image, so there is nothing to back up.
	if change.Kind != KindCreate {
		backup := r.backupPath(change)
		if err := fileutil.AtomicWrite(backup, change.OldContent, 0600); err != nil {
			logging.Warn("backup write failed", "change_id", change.ID, "path", change.Path, "error", err)
		}
	}

	r.log = append(r.log, change)
	r.index[change.ID] = len(r.log) - 1

	var events []Event
	for len(r.log)-r.contentHead > r.maxChanges {
		old := r.log[r.contentHead]
		old.OldContent = nil
		old.NewContent = nil
		old.evicted = true
		r.contentHead++
		events = append(events, Event{Type: EventEvicted, ChangeID: old.ID, Path: old.Path})
	}
	events = append(events, Event{Type: EventRecorded, ChangeID: change.ID, Path: change.Path})

	r.mu.Unlock()
	r.emit(events)

	logging.Debug("change recorded", "change_id", change.ID, "kind", change.Kind, "path", change.Path)
	return change.ID
}

// UndoChange reverts the change with the given ID. Creates are reverted
// by removing the file; modifies and deletes by restoring the pre-image,
// from memory or from the disk backup if the snapshot was evicted.
// Failures are reported to observers and leave the file untouched.
func (r *Recorder) UndoChange(id string) bool {
	r.mu.Lock()
	pos, ok := r.index[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	change := r.log[pos]
	if change.undone {
		r.mu.Unlock()
		return true
	}

	if err := r.revert(change); err != nil {
		r.mu.Unlock()
		r.emit([]Event{{Type: EventUndoFailed, ChangeID: id, Path: change.Path, Err: err}})
		logging.Error("undo failed", "change_id", id, "path", change.Path, "error", err)
		return false
	}
	change.undone = true

	r.mu.Unlock()
	r.emit([]Event{{Type: EventUndone, ChangeID: id, Path: change.Path}})
	logging.Info("change undone", "change_id", id, "path", change.Path)
	return true
}

// UndoLast reverts the most recent n not-yet-undone changes, newest
// first. Returns how many were reverted successfully.
func (r *Recorder) UndoLast(n int) int {
	ids := make([]string, 0, n)
	r.mu.Lock()
	for i := len(r.log) - 1; i >= 0 && len(ids) < n; i-- {
		if !r.log[i].undone {
			ids = append(ids, r.log[i].ID)
		}
	}
	r.mu.Unlock()

	reverted := 0
	for _, id := range ids {
		if r.UndoChange(id) {
			reverted++
		}
	}
	return reverted
}

func (r *Recorder) revert(change *FileChange) error {
	if change.Kind == KindCreate {
		if err := os.Remove(change.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing created file: %w", err)
		}
		return nil
	}

	content := change.OldContent
	if change.evicted {
		restored, err := os.ReadFile(r.backupPath(change))
		if err != nil {
			return fmt.Errorf("reading backup: %w", err)
		}
		content = restored
	}

	if err := os.MkdirAll(filepath.Dir(change.Path), 0755); err != nil {
		return fmt.Errorf("recreating directory: %w", err)
	}
	if err := fileutil.AtomicWrite(change.Path, content, 0644); err != nil {
		return fmt.Errorf("restoring file: %w", err)
	}
	return nil
}

// Get returns the change with the given ID.
func (r *Recorder) Get(id string) (*FileChange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.log[pos], true
}

// History returns up to limit changes, most recent first. limit <= 0
// returns everything.
func (r *Recorder) History(limit int) []*FileChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.log)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*FileChange, 0, n)
	for i := len(r.log) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.log[i])
	}
	return out
}

// FileHistory returns up to limit changes touching path, most recent first.
func (r *Recorder) FileHistory(path string, limit int) []*FileChange {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*FileChange
	for i := len(r.log) - 1; i >= 0; i-- {
		if r.log[i].Path == path {
			out = append(out, r.log[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// ChangesSince returns, in chronological order, the changes recorded
// strictly after t that have not already been undone.
func (r *Recorder) ChangesSince(t time.Time) []*FileChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*FileChange
	for _, c := range r.log {
		if c.Timestamp.After(t) && !c.undone {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the total number of recorded changes.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.log)
}

// Stats returns aggregate counts over the full log.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{Total: len(r.log)}
	if len(r.log) > 0 {
		s.Oldest = r.log[0].Timestamp
		s.Newest = r.log[len(r.log)-1].Timestamp
	}
	for _, c := range r.log {
		switch c.Kind {
		case KindCreate:
			s.Creates++
		case KindModify:
			s.Modifies++
		case KindDelete:
			s.Deletes++
		}
		if c.evicted {
			s.Evicted++
		}
		if c.undone {
			s.Undone++
		}
	}
	return s
}

// BackupDir returns the directory holding pre-image backups.
func (r *Recorder) BackupDir() string {
	return r.backupDir
}

// BackupPath returns where the pre-image backup for change lives.
func (r *Recorder) BackupPath(change *FileChange) string {
	return r.backupPath(change)
}

func (r *Recorder) backupPath(change *FileChange) string {
	return filepath.Join(r.backupDir, change.ID+"_"+filepath.Base(change.Path))
}

func (r *Recorder) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	r.mu.Lock()
	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	for _, ev := range events {
		for _, fn := range observers {
			fn(ev)
		}
	}
}
