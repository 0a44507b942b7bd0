package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// DeleteScheduler runs deferred deletes off the worker's goroutine and
// tracks how many are still outstanding.
type DeleteScheduler struct {
	wg       sync.WaitGroup
	pending  atomic.Int64
	onChange func(pending int64)

	// afterFunc is swapped in tests.
	afterFunc func(d time.Duration, f func())
}

// NewDeleteScheduler returns a scheduler backed by time.AfterFunc.
// onChange, if set, observes every change of the pending count.
func NewDeleteScheduler(onChange func(pending int64)) *DeleteScheduler {
	if onChange == nil {
		onChange = func(int64) {}
	}
	return &DeleteScheduler{
		onChange:  onChange,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Schedule runs fn after delay without blocking the caller.
func (s *DeleteScheduler) Schedule(delay time.Duration, fn func()) {
	s.wg.Add(1)
	s.onChange(s.pending.Add(1))
	s.afterFunc(delay, func() {
		defer s.wg.Done()
		defer func() { s.onChange(s.pending.Add(-1)) }()
		fn()
	})
}

// Pending returns the number of scheduled deletes that have not finished.
func (s *DeleteScheduler) Pending() int64 {
	return s.pending.Load()
}

// Drain waits for outstanding deletes for at most timeout. It returns the
// number still pending when it gave up, zero when all completed.
func (s *DeleteScheduler) Drain(timeout time.Duration) int64 {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return 0
	case <-timer.C:
		return s.Pending()
	}
}
