// Package transcript merges streaming recognition segments into one
// monotonically growing transcript.
package transcript

import (
	"strings"
	"sync"
)

// Segment is one incremental recognition result in engine arrival order.
type Segment struct {
	Text  string
	Final bool
	Index int
}

// Accumulator commits final segments in arrival order and tracks the
// latest interim run for live display. Commits are idempotent per index:
// a monotonic cursor rejects anything below the highest committed index,
// which guards against engine redelivery.
type Accumulator struct {
	mu        sync.Mutex
	committed []string
	cursor    int
	interim   string
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add merges one segment. Final segments advance the cursor and clear the
// interim run; interim segments only replace the interim run and are never
// committed.
func (a *Accumulator) Add(seg Segment) {
	text := cleanSegment(seg.Text)

	a.mu.Lock()
	defer a.mu.Unlock()

	if seg.Index < a.cursor {
		return
	}

	if !seg.Final {
		a.interim = text
		return
	}

	if text != "" {
		a.committed = append(a.committed, text)
	}
	a.cursor = seg.Index + 1
	a.interim = ""
}

// Committed returns the permanent transcript: final segments in arrival
// order, single-space separated.
func (a *Accumulator) Committed() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Join(a.committed, " ")
}

// Live returns the display view: committed text plus the current interim
// run. The interim portion is never persisted.
func (a *Accumulator) Live() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	joined := strings.Join(a.committed, " ")
	if a.interim == "" {
		return joined
	}
	if joined == "" {
		return a.interim
	}
	return joined + " " + a.interim
}

// Reset discards all state for a fresh capture session.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.committed = nil
	a.cursor = 0
	a.interim = ""
}

// cleanSegment normalizes segment whitespace.
func cleanSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}
