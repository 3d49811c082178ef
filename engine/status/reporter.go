package status

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// RateFunc returns the current smoothed units-per-second estimate.
type RateFunc func() float64

// Format renders a rate and its change as "<rate>/s <change> <arrow>".
func Format(rate, change float64) string {
	arrow := "↑"
	if change < 0 {
		arrow = "↓"
	}
	return fmt.Sprintf("%d/s %d %s", int64(math.Round(rate)), int64(math.Round(change)), arrow)
}

// Reporter derives a smoothed rate of change from successive rate readings.
type Reporter struct {
	rate RateFunc
	slot *Slot

	mu     sync.Mutex
	last   float64
	change float64
}

func NewReporter(rate RateFunc, slot *Slot) *Reporter {
	return &Reporter{rate: rate, slot: slot}
}

// Tick reads the rate, folds the delta into the rate of change and pushes a status
// when the change is non-zero. It returns the pushed text, if any.
func (r *Reporter) Tick(_ context.Context) (string, bool) {
	current := r.rate()
	r.mu.Lock()
	r.change = ((current - r.last) + r.change) / 2
	r.last = current
	change := r.change
	r.mu.Unlock()
	if change == 0 {
		return "", false
	}
	text := Format(current, change)
	r.slot.Push(text)
	return text, true
}

// Change returns the current smoothed rate of change.
func (r *Reporter) Change() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.change
}
