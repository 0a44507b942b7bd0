// Package credentials holds the shared, rotating pool of authorization
// credentials used by every worker.
package credentials

import (
	"sync"
	"sync/atomic"

	"github.com/pingcap/errors"
)

// ErrEmptyPool is returned when a pool would be built without credentials.
var ErrEmptyPool = errors.New("credential pool is empty")

// Rotation records one cursor advance.
type Rotation struct {
	From int
	To   int
}

// Pool is an ordered, immutable list of opaque credentials with one shared
// cursor and one shared consecutive-failure counter.
//
// The counter is shared by all workers, so the failure streak that triggers
// a rotation may be assembled from any mix of workers. Incrementing the
// counter, comparing it against the threshold and rotating happen under a
// single lock, which makes rotation exactly-once per threshold crossing.
type Pool struct {
	tokens    []string
	threshold int

	// cursor is written only while mu is held; reads are lock-free.
	cursor atomic.Int64

	mu       sync.Mutex
	failures int
}

// NewPool creates a pool over a copy of tokens. threshold is the number of
// consecutive authorization failures that triggers a rotation; values below
// 1 are treated as 1.
func NewPool(tokens []string, threshold int) (*Pool, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyPool
	}
	if threshold < 1 {
		threshold = 1
	}

	owned := make([]string, len(tokens))
	copy(owned, tokens)

	return &Pool{
		tokens:    owned,
		threshold: threshold,
	}, nil
}

// Current returns the credential at the cursor.
func (p *Pool) Current() string {
	return p.tokens[p.cursor.Load()]
}

// Index returns the cursor position.
func (p *Pool) Index() int {
	return int(p.cursor.Load())
}

// Len returns the number of credentials in the pool.
func (p *Pool) Len() int {
	return len(p.tokens)
}

// Threshold returns the consecutive failure count that triggers rotation.
func (p *Pool) Threshold() int {
	return p.threshold
}

// Failures returns the current consecutive authorization failure count.
func (p *Pool) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// RecordAuthFailure counts one authorization failure. The caller whose
// failure brings the streak to the threshold performs the rotation and gets
// it back with ok set; every other caller gets ok == false.
func (p *Pool) RecordAuthFailure() (rot Rotation, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failures++
	if p.failures < p.threshold {
		return Rotation{}, false
	}
	return p.rotateLocked(), true
}

// RecordNonAuthResponse ends the current failure streak. Any response that
// is not an authorization failure counts, including rate limiting and
// server errors.
func (p *Pool) RecordNonAuthResponse() {
	p.mu.Lock()
	p.failures = 0
	p.mu.Unlock()
}

// RotateAfterFailure advances the cursor from previous. If another caller
// already moved the cursor away from previous, the cursor is left alone.
// The failure counter is reset either way.
func (p *Pool) RotateAfterFailure(previous int) Rotation {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(p.cursor.Load()) != previous {
		p.failures = 0
		cur := int(p.cursor.Load())
		return Rotation{From: cur, To: cur}
	}
	return p.rotateLocked()
}

func (p *Pool) rotateLocked() Rotation {
	from := p.cursor.Load()
	to := (from + 1) % int64(len(p.tokens))
	p.cursor.Store(to)
	p.failures = 0
	return Rotation{From: int(from), To: int(to)}
}
