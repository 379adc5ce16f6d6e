package data

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Processed-log sizing. The log is only a dedup window, not an audit trail:
// once it exceeds maxLogEntries a cleanup pass trims it to keepLogEntries,
// preserving the most recently marked keys.
const (
	// logCapacity is the hard LRU bound; entries past it are evicted oldest-first
	logCapacity = 256
	// maxLogEntries triggers a cleanup trim once exceeded
	maxLogEntries = 100
	// keepLogEntries is the post-trim size
	keepLogEntries = 50
)

// ProcessedLog is a bounded set of already-handled keys. It backs both the
// poller's processed-event log (keyed request_id-type-id) and the credits
// service's processed-request set (keyed by request id). Thread-safe.
type ProcessedLog struct {
	entries *lru.Cache[string, struct{}]
}

// NewProcessedLog creates an empty processed log.
func NewProcessedLog() *ProcessedLog {
	// Error is only returned for a non-positive size
	entries, _ := lru.New[string, struct{}](logCapacity)
	return &ProcessedLog{entries: entries}
}

// Mark records key as processed. Returns false if the key was already
// present. The check and insert are one atomic cache call, so concurrent
// markers of the same key see exactly one true.
func (l *ProcessedLog) Mark(key string) bool {
	present, _ := l.entries.ContainsOrAdd(key, struct{}{})
	return !present
}

// Contains reports whether key has been processed. It does not refresh the
// key's recency, so trim order stays the order keys were marked in.
func (l *ProcessedLog) Contains(key string) bool {
	return l.entries.Contains(key)
}

// Unmark removes key so a future event with the same key can be retried.
func (l *ProcessedLog) Unmark(key string) {
	l.entries.Remove(key)
}

// Cleanup trims the log to keepLogEntries once it exceeds maxLogEntries.
// Returns the number of evicted entries. Purely a memory bound: very old
// keys may in principle be reprocessed after eviction.
func (l *ProcessedLog) Cleanup() int {
	size := l.entries.Len()
	if size <= maxLogEntries {
		return 0
	}
	// Resize evicts oldest-first down to the new size; restore the hard
	// bound afterwards so normal operation is unaffected.
	l.entries.Resize(keepLogEntries)
	l.entries.Resize(logCapacity)
	return size - keepLogEntries
}

// Clear wipes the log entirely (logout).
func (l *ProcessedLog) Clear() {
	l.entries.Purge()
}

// Len returns the current number of entries.
func (l *ProcessedLog) Len() int {
	return l.entries.Len()
}
