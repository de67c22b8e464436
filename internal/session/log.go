package session

import (
	"sync"
	"time"

	"github.com/ppiankov/cyberlab/internal/model"
)

// DefaultLogCap is the number of results a session keeps.
const DefaultLogCap = 10

// LogEntry is one past submission as shown in the history panel.
type LogEntry struct {
	Timestamp time.Time    `json:"timestamp"`
	InputEcho string       `json:"input_echo"`
	Result    model.Result `json:"result"`
}

// Log is a bounded, newest-first list of results. Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	limit   int
	entries []LogEntry
}

// NewLog creates a log holding at most limit entries. A non-positive limit
// uses DefaultLogCap.
func NewLog(limit int) *Log {
	if limit <= 0 {
		limit = DefaultLogCap
	}
	return &Log{limit: limit, entries: make([]LogEntry, 0, limit)}
}

// Append inserts e at the front and evicts the oldest entry on overflow.
func (l *Log) Append(e LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) < l.limit {
		l.entries = append(l.entries, LogEntry{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = e
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = l.entries[:0]
	l.mu.Unlock()
}

// Entries returns a copy, newest first.
func (l *Log) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Cap returns the maximum number of entries.
func (l *Log) Cap() int {
	return l.limit
}
