// Package status turns training throughput into short presence strings.
package status

import "sync"

// Slot holds at most one unconsumed status. Pushing replaces whatever was waiting.
type Slot struct {
	mu      sync.Mutex
	text    string
	pending bool
	dropped uint64
}

func NewSlot() *Slot {
	return &Slot{}
}

// Push stores text as the freshest status.
func (s *Slot) Push(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		s.dropped++
	}
	s.text = text
	s.pending = true
}

// Pop removes and returns the freshest status.
func (s *Slot) Pop() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		return "", false
	}
	s.pending = false
	return s.text, true
}

// Peek returns the last pushed status without consuming it.
func (s *Slot) Peek() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.text != ""
}

// Dropped counts statuses replaced before anyone consumed them.
func (s *Slot) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
