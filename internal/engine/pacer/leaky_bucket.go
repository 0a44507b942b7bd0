// Package pacer caps how often new iterations may start across all workers.
package pacer

import (
	"sync"
	"sync/atomic"
	"time"
)

// LeakyBucket hands out start times at a fixed rate.
//
// Rather than counting available tokens it tracks when the next iteration
// may start. Callers that are behind schedule start immediately; a caller
// that is ahead is given a slot in the future and every later caller queues
// behind it.
//
// LeakyBucket is safe for concurrent use.
//
//	lb := NewLeakyBucket(100, 1) // 100 iterations per second
//	for lb.Wait(done) {
//	    // run one iteration
//	}
type LeakyBucket struct {
	rate        float64 // iterations per second
	maxBurst    float64
	lastDrip    time.Time
	accumulated float64
	mu          sync.Mutex

	now func() time.Time

	granted   atomic.Int64
	totalWait atomic.Int64 // nanoseconds
}

// Option configures a LeakyBucket.
type Option func(*LeakyBucket)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(lb *LeakyBucket) {
		lb.now = now
	}
}

// NewLeakyBucket creates a bucket releasing rate iterations per second.
// maxBurst bounds how many slots may accumulate while callers are slow;
// values below 1 mean strict spacing.
func NewLeakyBucket(rate, maxBurst float64, opts ...Option) *LeakyBucket {
	if rate <= 0 {
		rate = 1
	}
	if maxBurst < 1 {
		maxBurst = 1
	}
	lb := &LeakyBucket{
		rate:     rate,
		maxBurst: maxBurst,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(lb)
	}
	// The first caller starts immediately.
	lb.lastDrip = lb.now()
	lb.accumulated = 1
	return lb
}

// Next reserves the next slot and returns when it starts. The result is
// in the past or now when the caller may start immediately.
func (lb *LeakyBucket) Next() time.Time {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := lb.now()
	if elapsed := now.Sub(lb.lastDrip).Seconds(); elapsed > 0 {
		lb.accumulated += elapsed * lb.rate
		if lb.accumulated > lb.maxBurst {
			lb.accumulated = lb.maxBurst
		}
	}
	lb.granted.Add(1)

	if lb.accumulated >= 1 && !lb.lastDrip.After(now) {
		lb.accumulated--
		lb.lastDrip = now
		return now
	}

	// Queue behind the latest reserved slot.
	base := now
	if lb.lastDrip.After(now) {
		base = lb.lastDrip
	}
	next := base.Add(time.Duration((1 - lb.accumulated) / lb.rate * float64(time.Second)))
	lb.accumulated = 0
	// lastDrip moves to the reserved slot so waking at next does not count
	// the same interval twice.
	lb.lastDrip = next
	lb.totalWait.Add(int64(next.Sub(now)))
	return next
}

// Wait blocks until the next slot. It returns false without waiting for
// the slot when done is closed first.
func (lb *LeakyBucket) Wait(done <-chan struct{}) bool {
	select {
	case <-done:
		return false
	default:
	}

	d := time.Until(lb.Next())
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-done:
		return false
	}
}

// Rate returns the configured iterations per second.
func (lb *LeakyBucket) Rate() float64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.rate
}

// SetRate changes the rate. Accumulated slots are discarded so a lower
// rate never starts with a burst.
func (lb *LeakyBucket) SetRate(rate float64) {
	if rate <= 0 {
		rate = 1
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.rate = rate
	lb.accumulated = 0
	lb.lastDrip = lb.now()
}

// Stats holds bucket counters.
type Stats struct {
	Granted     int64
	AverageWait time.Duration
}

// Stats returns the number of slots handed out and their mean wait.
func (lb *LeakyBucket) Stats() Stats {
	granted := lb.granted.Load()
	s := Stats{Granted: granted}
	if granted > 0 {
		s.AverageWait = time.Duration(lb.totalWait.Load() / granted)
	}
	return s
}
