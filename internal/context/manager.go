// Package context maintains the conversation history across agent runs:
// the retained turns plus a one-time synopsis of whatever was compressed
// out of the window when the threshold was first crossed.
package context

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gofer/internal/logging"
)

const (
	// DefaultMaxTurns is the size of the rolling window after compression.
	DefaultMaxTurns = 10

	// DefaultSummarizeAfter is the turn count that triggers compression.
	DefaultSummarizeAfter = 16
)

// Manager holds the turn history. When the number of turns first
// exceeds the summarize threshold, the turns outside the window are
// compressed into a synopsis of which tools were invoked. Compression
// happens at most once; after that the history simply keeps growing and
// the synopsis is never touched again.
type Manager struct {
	mu             sync.Mutex
	turns          []*Turn
	maxTurns       int
	summarizeAfter int
	summary        string
	summarized     bool
}

// NewManager creates a manager with the given window size and
// summarization threshold. Non-positive values fall back to defaults.
func NewManager(maxTurns, summarizeAfter int) *Manager {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if summarizeAfter <= maxTurns {
		summarizeAfter = maxTurns + DefaultSummarizeAfter - DefaultMaxTurns
	}
	return &Manager{
		maxTurns:       maxTurns,
		summarizeAfter: summarizeAfter,
	}
}

// Add appends a completed turn, compressing once when the threshold is
// first crossed. After compression the history grows unbounded until the
// loop ends or Clear is called.
func (m *Manager) Add(turn *Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turn)

	if !m.summarized && len(m.turns) > m.summarizeAfter {
		cut := len(m.turns) - m.maxTurns
		m.summary = synopsis(m.turns[:cut])
		m.turns = append([]*Turn(nil), m.turns[cut:]...)
		m.summarized = true
		logging.Info("turn history compressed", "summarized_turns", cut, "window", m.maxTurns)
	}
}

// Turns returns a copy of the current window, oldest first.
func (m *Manager) Turns() []*Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Len returns the number of turns in the window.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

// Summary returns the synopsis of compressed turns, empty before
// compression has happened.
func (m *Manager) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

// Summarized reports whether the one-time compression has happened.
func (m *Manager) Summarized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summarized
}

// Clear drops all history, including the synopsis.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
	m.summary = ""
	m.summarized = false
}

// BuildContext renders the history as text for prompt assembly: the
// synopsis first, then one line per windowed turn.
func (m *Manager) BuildContext() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.summary == "" && len(m.turns) == 0 {
		return ""
	}

	var b strings.Builder
	if m.summary != "" {
		b.WriteString(m.summary)
		b.WriteString("\n\n")
	}
	if len(m.turns) > 0 {
		b.WriteString("Recent turns:\n")
		for _, turn := range m.turns {
			b.WriteString("- ")
			b.WriteString(turnLine(turn))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// synopsis derives a deterministic summary from the compressed turns:
// the distinct tools invoked with their counts, followed by one terse
// line per compressed turn. No model call is involved.
func synopsis(turns []*Turn) string {
	counts := make(map[string]int)
	for _, turn := range turns {
		for _, call := range turn.Actions {
			counts[call.Name]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Earlier activity (%d turns compressed): ", len(turns))
	if len(names) == 0 {
		b.WriteString("no tools were invoked.")
	} else {
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s (%dx)", name, counts[name]))
		}
		b.WriteString("tools invoked: ")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteByte('.')
	}

	for _, turn := range turns {
		b.WriteString("\n- ")
		b.WriteString(turnLine(turn))
	}
	return b.String()
}

func turnLine(turn *Turn) string {
	if turn.Summary != "" {
		return turn.Summary
	}
	request := turn.Request
	if len(request) > 80 {
		request = request[:80] + "..."
	}
	names := turn.ActionNames()
	if len(names) == 0 {
		return fmt.Sprintf("%q (no actions)", request)
	}
	return fmt.Sprintf("%q (actions: %s)", request, strings.Join(names, ", "))
}
