package ledger

import (
	"sync"
	"time"
)

// Clock supplies ledger time in unix seconds.
type Clock interface {
	Now() uint64
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock is set explicitly. Tests and journal replay use it.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

// NewManualClock creates a clock pinned at ts.
func NewManualClock(ts uint64) *ManualClock {
	return &ManualClock{now: ts}
}

func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set pins the clock at ts.
func (c *ManualClock) Set(ts uint64) {
	c.mu.Lock()
	c.now = ts
	c.mu.Unlock()
}

// Advance moves the clock forward by seconds.
func (c *ManualClock) Advance(seconds uint64) {
	c.mu.Lock()
	c.now += seconds
	c.mu.Unlock()
}
