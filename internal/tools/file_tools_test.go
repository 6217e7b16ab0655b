package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofer/internal/ledger"
	"gofer/internal/undo"
)

func newFileToolFixture(t *testing.T) (*ledger.Ledger, *undo.Recorder, string) {
	t.Helper()
	rec, err := undo.NewRecorder(filepath.Join(t.TempDir(), "backups"), 50)
	require.NoError(t, err)
	return ledger.New(), rec, t.TempDir()
}

func TestWriteNewFileAllowedWithoutRead(t *testing.T) {
	led, rec, dir := newFileToolFixture(t)
	w := NewWriteTool(led, rec)
	path := filepath.Join(dir, "new.txt")

	result, err := w.Execute(context.Background(), map[string]any{
		"file_path": path,
		"content":   "hello",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// Creation unlocks the file for later mutation.
	assert.True(t, led.HasBeenRead(path))
	assert.Equal(t, 1, rec.Count())
}

func TestWriteExistingFileRequiresRead(t *testing.T) {
	led, rec, dir := newFileToolFixture(t)
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0644))

	w := NewWriteTool(led, rec)
	_, err := w.Execute(context.Background(), map[string]any{
		"file_path": path,
		"content":   "overwritten",
	})

	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrWriteWithoutRead, te.Kind)

	// The file is untouched and nothing was recorded.
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "original", string(data))
	assert.Equal(t, 0, rec.Count())
}

func TestReadThenWriteSucceeds(t *testing.T) {
	led, rec, dir := newFileToolFixture(t)
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0644))

	r := NewReadTool(led)
	result, err := r.Execute(context.Background(), map[string]any{"file_path": path})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "original")

	w := NewWriteTool(led, rec)
	result, err = w.Execute(context.Background(), map[string]any{
		"file_path": path,
		"content":   "updated",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	// The recorded change can round-trip the file back.
	hist := rec.History(1)
	require.Len(t, hist, 1)
	assert.Equal(t, undo.KindModify, hist[0].Kind)
	assert.True(t, rec.UndoChange(hist[0].ID))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestWriteRecordsPreImageBeforeOverwrite(t *testing.T) {
	led, rec, dir := newFileToolFixture(t)
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0644))
	led.MarkRead(path)

	// At the moment the change is recorded, the mutation must not have
	// happened yet and the pre-image backup must already be on disk.
	var observed int
	rec.Observe(func(ev undo.Event) {
		if ev.Type != undo.EventRecorded {
			return
		}
		observed++
		onDisk, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "original", string(onDisk))

		change, ok := rec.Get(ev.ChangeID)
		require.True(t, ok)
		backup, err := os.ReadFile(rec.BackupPath(change))
		require.NoError(t, err)
		assert.Equal(t, "original", string(backup))
	})

	w := NewWriteTool(led, rec)
	result, err := w.Execute(context.Background(), map[string]any{
		"file_path": path,
		"content":   "overwritten",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, observed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "overwritten", string(data))
}

func TestEditRecordsPreImageBeforeOverwrite(t *testing.T) {
	led, rec, dir := newFileToolFixture(t)
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha beta"), 0644))
	led.MarkRead(path)

	var observed int
	rec.Observe(func(ev undo.Event) {
		if ev.Type != undo.EventRecorded {
			return
		}
		observed++
		onDisk, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "alpha beta", string(onDisk))
	})

	e := NewEditTool(led, rec)
	result, err := e.Execute(context.Background(), map[string]any{
		"file_path":  path,
		"old_string": "beta",
		"new_string": "gamma",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, observed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha gamma", string(data))
}

func TestEditRequiresUniqueMatch(t *testing.T) {
	led, rec, dir := newFileToolFixture(t)
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("a b a"), 0644))
	led.MarkRead(path)

	e := NewEditTool(led, rec)
	result, err := e.Execute(context.Background(), map[string]any{
		"file_path":  path,
		"old_string": "a",
		"new_string": "z",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "2 times")

	result, err = e.Execute(context.Background(), map[string]any{
		"file_path":   path,
		"old_string":  "a",
		"new_string":  "z",
		"replace_all": true,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "z b z", string(data))
}

func TestDeleteRecordsBeforeRemoval(t *testing.T) {
	led, rec, dir := newFileToolFixture(t)
	path := filepath.Join(dir, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0644))
	led.MarkRead(path)

	d := NewDeleteTool(led, rec)
	result, err := d.Execute(context.Background(), map[string]any{"file_path": path})
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	hist := rec.History(1)
	require.Len(t, hist, 1)
	assert.Equal(t, undo.KindDelete, hist[0].Kind)
	assert.True(t, rec.UndoChange(hist[0].ID))

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "contents", string(data))
}

func TestDeleteUnreadFileBlocked(t *testing.T) {
	led, rec, dir := newFileToolFixture(t)
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	d := NewDeleteTool(led, rec)
	_, err := d.Execute(context.Background(), map[string]any{"file_path": path})
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrWriteWithoutRead, te.Kind)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestGlobFindsFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.go"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("x"), 0644))

	g := NewGlobTool(dir)
	result, err := g.Execute(context.Background(), map[string]any{"pattern": "**/*.go"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "a.go")
	assert.Contains(t, result.Content, filepath.Join("sub", "b.go"))
	assert.NotContains(t, result.Content, "c.txt")
}

func TestListDirMarksDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "child"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0644))

	l := NewListDirTool(dir)
	result, err := l.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "child/")
	assert.Contains(t, result.Content, "file.txt")
}
