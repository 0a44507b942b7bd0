// Package stats periodically reports request throughput.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/volley/internal/engine"
	"github.com/wesleyorama2/volley/internal/logging"
)

// DefaultInterval is used when NewReporter gets a non-positive interval.
const DefaultInterval = 3 * time.Second

// Source supplies the running total. engine.Counters implements it.
type Source interface {
	Total() int64
}

// Report is one throughput sample.
type Report struct {
	Total   int64
	Delta   int64
	Elapsed time.Duration
	Rate    float64
	At      time.Time
}

// String renders the report as a single log line.
func (r Report) String() string {
	return fmt.Sprintf("Total: %d | +%d in %.2fs | %.2f req/s", r.Total, r.Delta, r.Elapsed.Seconds(), r.Rate)
}

// Reporter samples a Source on a fixed interval.
type Reporter struct {
	source   Source
	run      *engine.RunState
	interval time.Duration
	log      *logging.Logger
	sinks    []func(Report)
	now      func() time.Time

	mu     sync.Mutex
	last   int64
	lastAt time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithSink adds a consumer of every report, e.g. the console renderer.
func WithSink(fn func(Report)) Option {
	return func(r *Reporter) {
		r.sinks = append(r.sinks, fn)
	}
}

// WithClock replaces time.Now. Values returned by time.Now carry a
// monotonic reading, which Sample relies on for elapsed time.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// NewReporter creates a Reporter. The first sample measures from now.
func NewReporter(source Source, run *engine.RunState, interval time.Duration, logger *logging.Logger, opts ...Option) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.Nop()
	}
	r := &Reporter{
		source:   source,
		run:      run,
		interval: interval,
		log:      logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lastAt = r.now()
	r.last = source.Total()
	return r
}

// Sample computes the report since the previous sample and advances the
// snapshot.
func (r *Reporter) Sample() Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	total := r.source.Total()

	rep := Report{
		Total:   total,
		Delta:   total - r.last,
		Elapsed: now.Sub(r.lastAt),
		At:      now,
	}
	if rep.Delta < 0 {
		rep.Delta = 0
	}
	if rep.Elapsed > 0 {
		rep.Rate = float64(rep.Delta) / rep.Elapsed.Seconds()
	}

	r.last = total
	r.lastAt = now
	return rep
}

// Run emits a report every interval until the run state stops or ctx is
// done.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.run.Done():
			return
		case <-ticker.C:
			if !r.run.Active() {
				return
			}
			r.emit(r.Sample())
		}
	}
}

func (r *Reporter) emit(rep Report) {
	r.log.Info(rep.String(),
		zap.Int64("total", rep.Total),
		zap.Int64("delta", rep.Delta),
		zap.Duration("elapsed", rep.Elapsed),
		zap.Float64("rate", rep.Rate),
	)
	for _, sink := range r.sinks {
		sink(rep)
	}
}
