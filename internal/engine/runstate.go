package engine

import (
	"sync"
	"sync/atomic"
)

// RunState is the shared continue/stop flag. It starts active and can be
// stopped exactly once.
type RunState struct {
	stopped atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// NewRunState returns an active RunState.
func NewRunState() *RunState {
	return &RunState{done: make(chan struct{})}
}

// Active reports whether loops should keep going.
func (r *RunState) Active() bool {
	return !r.stopped.Load()
}

// Stop marks the run inactive. Safe to call more than once.
func (r *RunState) Stop() {
	r.once.Do(func() {
		r.stopped.Store(true)
		close(r.done)
	})
}

// Done is closed when the run is stopped.
func (r *RunState) Done() <-chan struct{} {
	return r.done
}
