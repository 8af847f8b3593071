package ledger

import (
	"sync/atomic"
	"time"
)

// Clock is the ledger's time oracle. The processor never reads the wall
// clock directly; every instruction is priced against a single Now()
// reading taken when processing begins.
type Clock interface {
	// Now returns the current ledger time as unix seconds.
	Now() int64
}

// SystemClock reads the host wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// ManualClock is a settable clock for tests and replay. It only moves when
// told to, so price-decay boundaries can be hit exactly.
type ManualClock struct {
	now atomic.Int64
}

func NewManualClock(start int64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

func (c *ManualClock) Now() int64 {
	return c.now.Load()
}

// Set moves the clock to t. Moving backwards is allowed for tests.
func (c *ManualClock) Set(t int64) {
	c.now.Store(t)
}

// Advance moves the clock forward by d seconds and returns the new time.
func (c *ManualClock) Advance(d int64) int64 {
	return c.now.Add(d)
}
