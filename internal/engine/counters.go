package engine

import "sync/atomic"

// Counters holds run-wide totals shared by every worker.
type Counters struct {
	total atomic.Int64
}

// Increment records one create-call response.
func (c *Counters) Increment() int64 {
	return c.total.Add(1)
}

// Total returns the number of create-call responses so far.
func (c *Counters) Total() int64 {
	return c.total.Load()
}
