// Package orchestrator starts the worker pool and the throughput reporter,
// and tears them down cooperatively.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pingcap/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/volley/internal/backoff"
	"github.com/wesleyorama2/volley/internal/credentials"
	"github.com/wesleyorama2/volley/internal/engine"
	"github.com/wesleyorama2/volley/internal/engine/metrics"
	"github.com/wesleyorama2/volley/internal/engine/pacer"
	"github.com/wesleyorama2/volley/internal/engine/stats"
	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/logging"
)

// Config sizes and paces a run.
type Config struct {
	Workers int
	Delay   time.Duration

	// MaxRate caps iteration starts per second across all workers.
	// Zero disables pacing.
	MaxRate  float64
	MaxBurst float64

	StatsInterval  time.Duration
	BackoffFloor   time.Duration
	BackoffCeiling time.Duration

	// DrainTimeout bounds the wait for deferred deletes after the workers
	// have stopped.
	DrainTimeout time.Duration

	Endpoints engine.Endpoints
}

// Deps are the collaborators shared by every worker.
type Deps struct {
	Transport vhttp.Transport
	Pool      *credentials.Pool
	Payloads  engine.PayloadSource
	Logger    *logging.Logger

	// Metrics is optional; a fresh engine is created when nil.
	Metrics *metrics.Engine
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkerOptions applies opts to every worker.
func WithWorkerOptions(opts ...engine.WorkerOption) Option {
	return func(o *Orchestrator) {
		o.workerOpts = append(o.workerOpts, opts...)
	}
}

// WithReporterOptions applies opts to the stats reporter.
func WithReporterOptions(opts ...stats.Option) Option {
	return func(o *Orchestrator) {
		o.reporterOpts = append(o.reporterOpts, opts...)
	}
}

// WithTransportCloser registers fn to release the transport once every
// worker and pending delete is done.
func WithTransportCloser(fn func()) Option {
	return func(o *Orchestrator) {
		o.closeTransport = fn
	}
}

// Summary describes a finished run.
type Summary struct {
	Total     int64
	Elapsed   time.Duration
	Rate      float64
	Undrained int64
	Metrics   *metrics.Snapshot
}

// Orchestrator owns one run: N workers plus one reporter sharing a
// credential pool, counters, run state and transport.
type Orchestrator struct {
	cfg    Config
	shared *engine.Shared
	log    *logging.Logger

	workers  []*engine.Worker
	reporter *stats.Reporter

	workerOpts     []engine.WorkerOption
	reporterOpts   []stats.Option
	closeTransport func()

	group     errgroup.Group
	active    atomic.Int32
	started   atomic.Bool
	startTime time.Time

	stopOnce sync.Once
	summary  *Summary
}

// New validates cfg and wires the shared state. Nothing runs until Start.
func New(cfg Config, deps Deps, opts ...Option) (*Orchestrator, error) {
	if cfg.Workers < 1 {
		return nil, errors.Errorf("worker count must be at least 1, got %d", cfg.Workers)
	}
	if cfg.Delay < 0 {
		return nil, errors.Errorf("delay must not be negative, got %s", cfg.Delay)
	}
	if cfg.MaxRate < 0 {
		return nil, errors.Errorf("max rate must not be negative, got %g", cfg.MaxRate)
	}
	if deps.Transport == nil || deps.Pool == nil || deps.Payloads == nil {
		return nil, errors.New("transport, credential pool and payload builder are required")
	}
	if cfg.BackoffFloor <= 0 {
		cfg.BackoffFloor = time.Second
	}
	if cfg.BackoffCeiling < cfg.BackoffFloor {
		cfg.BackoffCeiling = 60 * cfg.BackoffFloor
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = cfg.Delay + 30*time.Second
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.NewEngine()
	}

	o := &Orchestrator{cfg: cfg, log: logger}
	for _, opt := range opts {
		opt(o)
	}

	counters := &engine.Counters{}
	run := engine.NewRunState()
	o.shared = &engine.Shared{
		Transport: deps.Transport,
		Pool:      deps.Pool,
		Payloads:  deps.Payloads,
		Counters:  counters,
		Run:       run,
		Deletes:   engine.NewDeleteScheduler(m.SetPendingDeletes),
		Metrics:   m,
		Logger:    logger,
		Endpoints: cfg.Endpoints,
		Delay:     cfg.Delay,
	}
	if cfg.MaxRate > 0 {
		o.shared.Pacer = pacer.NewLeakyBucket(cfg.MaxRate, cfg.MaxBurst)
	}

	for i := 0; i < cfg.Workers; i++ {
		bo := backoff.New(cfg.BackoffFloor, cfg.BackoffCeiling)
		o.workers = append(o.workers, engine.NewWorker(i+1, o.shared, bo, o.workerOpts...))
	}
	o.reporter = stats.NewReporter(counters, run, cfg.StatsInterval, logger, o.reporterOpts...)

	return o, nil
}

// Start launches the workers and the reporter and returns immediately.
// Remote calls run on a context detached from ctx's cancellation, so
// stopping never aborts a call in flight.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return errors.New("orchestrator already started")
	}

	callCtx := context.WithoutCancel(ctx)
	o.startTime = time.Now()

	for _, w := range o.workers {
		w := w
		o.group.Go(func() error {
			o.shared.Metrics.SetActiveWorkers(int(o.active.Add(1)))
			defer func() {
				o.shared.Metrics.SetActiveWorkers(int(o.active.Add(-1)))
			}()
			w.Run(callCtx)
			return nil
		})
	}
	o.group.Go(func() error {
		o.reporter.Run(callCtx)
		return nil
	})

	o.log.Echo("All workers started", zap.Int("workers", len(o.workers)))
	return nil
}

// Stop flags the run inactive, waits for every worker and the reporter,
// drains deferred deletes and releases the transport. It is safe to call
// more than once; later calls return the first summary.
func (o *Orchestrator) Stop() *Summary {
	o.stopOnce.Do(func() {
		o.log.Echo("Stopping workers...")
		o.shared.Run.Stop()

		if o.started.Load() {
			_ = o.group.Wait()
		}
		o.log.Echo("All workers stopped")

		undrained := int64(0)
		if pending := o.shared.Deletes.Pending(); pending > 0 {
			o.log.Echo(fmt.Sprintf("Waiting for %d scheduled deletes", pending),
				zap.Duration("timeout", o.cfg.DrainTimeout))
			undrained = o.shared.Deletes.Drain(o.cfg.DrainTimeout)
			if undrained > 0 {
				o.log.Warn("Gave up waiting for scheduled deletes", zap.Int64("pending", undrained))
			}
		}

		if o.closeTransport != nil {
			o.closeTransport()
		}

		o.summary = o.buildSummary(undrained)
	})
	return o.summary
}

// Run starts the orchestrator, blocks until ctx is done and then stops it.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if err := o.Start(ctx); err != nil {
		return nil, err
	}
	<-ctx.Done()
	return o.Stop(), nil
}

// Counters returns the shared totals.
func (o *Orchestrator) Counters() *engine.Counters {
	return o.shared.Counters
}

// Metrics returns the metrics engine.
func (o *Orchestrator) Metrics() *metrics.Engine {
	return o.shared.Metrics
}

// RunState returns the shared run flag.
func (o *Orchestrator) RunState() *engine.RunState {
	return o.shared.Run
}

// Workers returns the worker pool.
func (o *Orchestrator) Workers() []*engine.Worker {
	return o.workers
}

// ActiveWorkers returns the number of worker loops still running.
func (o *Orchestrator) ActiveWorkers() int {
	return int(o.active.Load())
}

func (o *Orchestrator) buildSummary(undrained int64) *Summary {
	var elapsed time.Duration
	if !o.startTime.IsZero() {
		elapsed = time.Since(o.startTime)
	}
	total := o.shared.Counters.Total()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(total) / elapsed.Seconds()
	}
	return &Summary{
		Total:     total,
		Elapsed:   elapsed,
		Rate:      rate,
		Undrained: undrained,
		Metrics:   o.shared.Metrics.GetSnapshot(),
	}
}
