package numbering

import (
	"context"
	"sync"
)

type seriesKey struct {
	prefix string
	fy     string
}

// MemoryCounter is a process-local Counter guarded by a mutex.
type MemoryCounter struct {
	mu     sync.Mutex
	values map[seriesKey]int64
}

// NewMemoryCounter constructs an empty counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[seriesKey]int64)}
}

// Seed sets the last issued sequence for a series, typically from existing numbers.
func (c *MemoryCounter) Seed(prefix, financialYear string, last int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := seriesKey{prefix, financialYear}
	if last > c.values[key] {
		c.values[key] = last
	}
}

// NextSequence implements Counter.
func (c *MemoryCounter) NextSequence(_ context.Context, prefix, financialYear string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := seriesKey{prefix, financialYear}
	c.values[key]++
	return c.values[key], nil
}
