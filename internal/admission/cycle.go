package admission

import "sync"

// CycleCounter enforces max_buys_per_cycle per play. The engine resets
// it when the scheduler opens a new buy cycle.
type CycleCounter struct {
	mu     sync.Mutex
	counts map[int64]int
}

// NewCycleCounter creates an empty counter.
func NewCycleCounter() *CycleCounter {
	return &CycleCounter{counts: make(map[int64]int)}
}

// TryAdmit reports whether another admission fits under the cap and
// counts it if so. A cap of zero or less means unlimited.
func (c *CycleCounter) TryAdmit(playID int64, maxBuys int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if maxBuys > 0 && c.counts[playID] >= maxBuys {
		return false
	}
	c.counts[playID]++
	return true
}

// Release returns a slot whose admission record failed to persist, so
// the caller's retry does not count the same candidate twice.
func (c *CycleCounter) Release(playID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counts[playID] > 0 {
		c.counts[playID]--
	}
}

// Count returns admissions in the current cycle for a play.
func (c *CycleCounter) Count(playID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[playID]
}

// Reset starts a new cycle for all plays.
func (c *CycleCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[int64]int)
}
