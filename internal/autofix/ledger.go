package autofix

import "sync"

// RetryLedger counts automatic repair attempts per shot id.
type RetryLedger struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewRetryLedger returns an empty ledger.
func NewRetryLedger() *RetryLedger {
	return &RetryLedger{counts: make(map[string]int)}
}

// Count returns the attempts recorded for id.
func (l *RetryLedger) Count(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[id]
}

// Increment records one more attempt and returns the new count.
func (l *RetryLedger) Increment(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[id]++
	return l.counts[id]
}

// Clear forgets the attempts recorded for id.
func (l *RetryLedger) Clear(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counts, id)
}

// Snapshot returns a copy of all recorded counts.
func (l *RetryLedger) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.counts))
	for id, n := range l.counts {
		out[id] = n
	}
	return out
}
