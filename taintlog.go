package dispatch

import (
	"sync"
	"time"
)

// DefaultTaintLogCapacity bounds the taint log ring buffer.
const DefaultTaintLogCapacity = 100

// TaintKind labels a taint log entry. Error and auto-disable entries are
// always recorded; every other kind is recorded only while debug logging is
// enabled.
type TaintKind string

const (
	TaintKindRegister      TaintKind = "register"
	TaintKindQueued        TaintKind = "queued"
	TaintKindFlush         TaintKind = "flush"
	TaintKindError         TaintKind = "error"
	TaintKindAutoDisable   TaintKind = "auto_disable"
	TaintKindReenable      TaintKind = "reenable"
	TaintKindBlockingEnter TaintKind = "blocking_enter"
	TaintKindBlockingExit  TaintKind = "blocking_exit"
	TaintKindModeChange    TaintKind = "mode_change"
)

// alwaysRecorded reports whether the kind bypasses the debug gate.
func (k TaintKind) alwaysRecorded() bool {
	return k == TaintKindError || k == TaintKindAutoDisable
}

// TaintLogEntry is one record in the diagnostic ring buffer.
type TaintLogEntry struct {
	Kind TaintKind `json:"kind"`

	// Event is the event name the entry concerns, empty for dispatcher-wide
	// entries such as blocking-state transitions.
	Event string `json:"event,omitempty"`

	// Detail is free-form context: the error message, queue tier, and so on.
	Detail string `json:"detail,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// BlockingActive records the blocking flag at append time.
	BlockingActive bool `json:"blockingActive"`
}

// TaintLog is a bounded append-only ring buffer of diagnostic entries. When
// full, appending evicts the oldest entry.
//
// TaintLog is safe for concurrent use.
type TaintLog struct {
	mu       sync.Mutex
	capacity int
	entries  []TaintLogEntry
	start    int
	count    int
}

// NewTaintLog creates a ring buffer holding up to capacity entries. A
// capacity of zero or less falls back to DefaultTaintLogCapacity.
func NewTaintLog(capacity int) *TaintLog {
	if capacity <= 0 {
		capacity = DefaultTaintLogCapacity
	}
	return &TaintLog{
		capacity: capacity,
		entries:  make([]TaintLogEntry, capacity),
	}
}

// Append records an entry, evicting the oldest if the buffer is full.
func (l *TaintLog) Append(entry TaintLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count < l.capacity {
		l.entries[(l.start+l.count)%l.capacity] = entry
		l.count++
		return
	}
	l.entries[l.start] = entry
	l.start = (l.start + 1) % l.capacity
}

// Len returns the number of stored entries.
func (l *TaintLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Capacity returns the maximum number of stored entries.
func (l *TaintLog) Capacity() int {
	return l.capacity
}

// Tail returns copies of the most recent n entries, oldest first. If fewer
// than n entries exist, all of them are returned.
func (l *TaintLog) Tail(n int) []TaintLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > l.count {
		n = l.count
	}
	if n <= 0 {
		return nil
	}
	tail := make([]TaintLogEntry, n)
	for i := 0; i < n; i++ {
		idx := (l.start + l.count - n + i) % l.capacity
		tail[i] = l.entries[idx]
	}
	return tail
}
