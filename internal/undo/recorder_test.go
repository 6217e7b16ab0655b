package undo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T, maxChanges int) *Recorder {
	t.Helper()
	r, err := NewRecorder(filepath.Join(t.TempDir(), "backups"), maxChanges)
	require.NoError(t, err)
	return r
}

func TestRecordWritesBackup(t *testing.T) {
	r := newTestRecorder(t, 10)
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")

	change := NewFileChange(path, "write", KindModify, []byte("old"), []byte("new"))
	id := r.Record(change)
	assert.Equal(t, change.ID, id)

	backup, err := os.ReadFile(r.BackupPath(change))
	require.NoError(t, err)
	assert.Equal(t, "old", string(backup))
}

func TestUndoModifyRestoresPreImage(t *testing.T) {
	r := newTestRecorder(t, 10)
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("new"), 0644))

	id := r.Record(NewFileChange(path, "write", KindModify, []byte("old"), []byte("new")))
	assert.True(t, r.UndoChange(id))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestUndoCreateRemovesFile(t *testing.T) {
	r := newTestRecorder(t, 10)
	dir := t.TempDir()
	path := filepath.Join(dir, "made.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	id := r.Record(NewFileChange(path, "write", KindCreate, nil, []byte("x")))
	assert.True(t, r.UndoChange(id))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Missing file on a second undo is not a failure.
	assert.True(t, r.UndoChange(id))
}

func TestUndoDeleteRecreatesFile(t *testing.T) {
	r := newTestRecorder(t, 10)
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "gone.txt")

	id := r.Record(NewFileChange(path, "delete", KindDelete, []byte("content"), nil))
	assert.True(t, r.UndoChange(id))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestEvictionFallsBackToBackup(t *testing.T) {
	r := newTestRecorder(t, 2)
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("v3"), 0644))

	first := r.Record(NewFileChange(path, "write", KindModify, []byte("v0"), []byte("v1")))
	r.Record(NewFileChange(path, "write", KindModify, []byte("v1"), []byte("v2")))
	r.Record(NewFileChange(path, "write", KindModify, []byte("v2"), []byte("v3")))

	c, ok := r.Get(first)
	require.True(t, ok)
	assert.True(t, c.Evicted())
	assert.Nil(t, c.OldContent)

	// The snapshot is gone but the backup still has the pre-image.
	assert.True(t, r.UndoChange(first))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v0", string(data))

	assert.Equal(t, 3, r.Count(), "eviction never shrinks the log")
}

func TestUndoFailureNotifiesObserver(t *testing.T) {
	r := newTestRecorder(t, 10)
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")

	change := NewFileChange(path, "write", KindModify, []byte("old"), []byte("new"))
	r.Record(change)

	// Evict nothing, but force the backup fallback onto a missing file.
	change.OldContent = nil
	change.NewContent = nil
	change.evicted = true
	require.NoError(t, os.Remove(r.BackupPath(change)))

	var got []Event
	r.Observe(func(ev Event) { got = append(got, ev) })

	assert.False(t, r.UndoChange(change.ID))
	require.Len(t, got, 1)
	assert.Equal(t, EventUndoFailed, got[0].Type)
	assert.Equal(t, change.ID, got[0].ChangeID)
	assert.Error(t, got[0].Err)
}

func TestUndoLastSkipsAlreadyUndone(t *testing.T) {
	r := newTestRecorder(t, 10)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("a2"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("b2"), 0644))

	r.Record(NewFileChange(a, "write", KindModify, []byte("a1"), []byte("a2")))
	last := r.Record(NewFileChange(b, "write", KindModify, []byte("b1"), []byte("b2")))

	assert.True(t, r.UndoChange(last))
	assert.Equal(t, 1, r.UndoLast(2), "only the remaining change is reverted")

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "a1", string(data))
}

func TestHistoryAndStats(t *testing.T) {
	r := newTestRecorder(t, 10)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")

	r.Record(NewFileChange(a, "write", KindCreate, nil, []byte("x")))
	r.Record(NewFileChange(a, "edit", KindModify, []byte("x"), []byte("y")))
	r.Record(NewFileChange(b, "delete", KindDelete, []byte("z"), nil))

	hist := r.History(2)
	require.Len(t, hist, 2)
	assert.Equal(t, b, hist[0].Path, "most recent first")

	fileHist := r.FileHistory(a, 0)
	require.Len(t, fileHist, 2)
	assert.Equal(t, KindModify, fileHist[0].Kind)

	s := r.Stats()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Creates)
	assert.Equal(t, 1, s.Modifies)
	assert.Equal(t, 1, s.Deletes)

	// The log is chronological, so its ends are the stat timestamps.
	assert.Equal(t, fileHist[1].Timestamp, s.Oldest, "oldest is the first create")
	assert.Equal(t, hist[0].Timestamp, s.Newest, "newest is the delete")
	assert.False(t, s.Newest.Before(s.Oldest))
}

func TestStatsEmptyLogHasZeroTimes(t *testing.T) {
	r := newTestRecorder(t, 10)
	s := r.Stats()
	assert.Zero(t, s.Total)
	assert.True(t, s.Oldest.IsZero())
	assert.True(t, s.Newest.IsZero())
}
