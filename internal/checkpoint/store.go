// Package checkpoint provides named rollback points over the change
// recorder. A checkpoint marks a moment in time; rolling back to it
// reverts every change recorded after that moment, newest first.
package checkpoint

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gofer/internal/logging"
	"gofer/internal/undo"
)

// Checkpoint marks a named point in the session's change history.
type Checkpoint struct {
	ID          string
	Name        string
	Description string
	Timestamp   time.Time

	// ChangeIDs references the changes recorded up to this moment,
	// oldest first. Rollback targets are everything NOT in this list.
	ChangeIDs []string
}

// RollbackResult reports the outcome of a rollback.
type RollbackResult struct {
	Checkpoint *Checkpoint
	Reverted   int
	Failed     []string // change IDs that could not be reverted
}

// Store holds the session's checkpoints and drives rollbacks through the
// recorder. Deleting a checkpoint discards only the marker; recorded
// changes and their disk backups are untouched.
type Store struct {
	mu          sync.RWMutex
	recorder    *undo.Recorder
	checkpoints map[string]*Checkpoint
}

// NewStore creates a checkpoint store over recorder.
func NewStore(recorder *undo.Recorder) *Store {
	return &Store{
		recorder:    recorder,
		checkpoints: make(map[string]*Checkpoint),
	}
}

// Create registers a checkpoint at the current moment.
func (s *Store) Create(name, description string) *Checkpoint {
	history := s.recorder.History(0)
	ids := make([]string, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		ids = append(ids, history[i].ID)
	}

	cp := &Checkpoint{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Timestamp:   time.Now(),
		ChangeIDs:   ids,
	}

	s.mu.Lock()
	s.checkpoints[cp.ID] = cp
	s.mu.Unlock()

	logging.Info("checkpoint created", "checkpoint_id", cp.ID, "name", name)
	return cp
}

// Get returns the checkpoint with the given ID.
func (s *Store) Get(id string) (*Checkpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[id]
	return cp, ok
}

// Find returns the checkpoint with the given name, preferring the most
// recent when names collide.
func (s *Store) Find(name string) (*Checkpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Checkpoint
	for _, cp := range s.checkpoints {
		if cp.Name == name && (best == nil || cp.Timestamp.After(best.Timestamp)) {
			best = cp
		}
	}
	return best, best != nil
}

// List returns all checkpoints, oldest first.
func (s *Store) List() []*Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Delete removes the checkpoint marker. Returns false if no such
// checkpoint exists.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.checkpoints[id]; !ok {
		return false
	}
	delete(s.checkpoints, id)
	return true
}

// Rollback reverts every change recorded after the checkpoint, newest
// first. Individual failures are collected rather than aborting the
// rollback; the recorder notifies its observers of each one.
func (s *Store) Rollback(id string) (*RollbackResult, error) {
	cp, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("checkpoint not found: %s", id)
	}

	changes := s.recorder.ChangesSince(cp.Timestamp)
	result := &RollbackResult{Checkpoint: cp}
	for i := len(changes) - 1; i >= 0; i-- {
		if s.recorder.UndoChange(changes[i].ID) {
			result.Reverted++
		} else {
			result.Failed = append(result.Failed, changes[i].ID)
		}
	}

	logging.Info("rollback finished",
		"checkpoint_id", cp.ID,
		"reverted", result.Reverted,
		"failed", len(result.Failed))
	return result, nil
}

// Count returns the number of live checkpoints.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkpoints)
}

// Stats combines the recorder's change statistics with the checkpoint
// count, for session reporting.
type Stats struct {
	Changes     undo.Stats
	Checkpoints int
}

// Stats returns the combined session statistics.
func (s *Store) Stats() Stats {
	return Stats{
		Changes:     s.recorder.Stats(),
		Checkpoints: s.Count(),
	}
}
