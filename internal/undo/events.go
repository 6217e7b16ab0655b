package undo

// EventType identifies what happened to a recorded change.
type EventType string

const (
	EventRecorded   EventType = "recorded"
	EventEvicted    EventType = "evicted"
	EventUndone     EventType = "undone"
	EventUndoFailed EventType = "undo_failed"
)

// Event describes a recorder lifecycle notification.
type Event struct {
	Type     EventType
	ChangeID string
	Path     string
	Err      error
}

// Observer receives recorder events. Observers are called synchronously
// after the recorder releases its lock, in registration order.
type Observer func(Event)
