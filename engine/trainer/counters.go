package trainer

import (
	"sync"
	"time"
)

// CountersSnapshot is a consistent copy of a coordinator's throughput counters.
type CountersSnapshot struct {
	Total  uint64
	Cycles uint64
	Rate   float64
}

// Counters tracks units processed and a smoothed units-per-second estimate.
type Counters struct {
	mu     sync.Mutex
	total  uint64
	cycles uint64
	rate   float64
}

// record folds one cycle into the running average with a smoothing factor of 0.5.
func (c *Counters) record(units int, elapsed time.Duration) {
	if elapsed <= 0 {
		elapsed = time.Microsecond
	}
	perCycle := float64(units) / elapsed.Seconds()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += uint64(units)
	c.cycles++
	c.rate = (perCycle + c.rate) / 2
}

func (c *Counters) Snapshot() CountersSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CountersSnapshot{Total: c.total, Cycles: c.cycles, Rate: c.rate}
}
