package metrics

import (
	"sync"
	"time"
)

// DefaultCallLogSize caps the rolling call log.
const DefaultCallLogSize = 1024

// CallRecord is one outbound dependency call, kept for observability only.
type CallRecord struct {
	Dependency string
	Duration   time.Duration
	Success    bool
	Error      string
	At         time.Time
}

// CallLog is a fixed-size rolling buffer of dependency calls. When full,
// the oldest record is discarded. It feeds dashboards and debugging, never
// control decisions.
type CallLog struct {
	mu      sync.Mutex
	records []CallRecord
	next    int
	full    bool
}

// NewCallLog creates a rolling call log with the given capacity.
func NewCallLog(size int) *CallLog {
	if size <= 0 {
		size = DefaultCallLogSize
	}
	return &CallLog{records: make([]CallRecord, size)}
}

// Append records a call, overwriting the oldest entry when full.
func (l *CallLog) Append(rec CallRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[l.next] = rec
	l.next++
	if l.next == len(l.records) {
		l.next = 0
		l.full = true
	}
}

// Snapshot returns the buffered records, oldest first.
func (l *CallLog) Snapshot() []CallRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]CallRecord, l.next)
		copy(out, l.records[:l.next])
		return out
	}
	out := make([]CallRecord, 0, len(l.records))
	out = append(out, l.records[l.next:]...)
	out = append(out, l.records[:l.next]...)
	return out
}

// Len returns the number of buffered records.
func (l *CallLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.records)
	}
	return l.next
}
