// Package metrics aggregates per-operation latency and outcome counts and
// exports them to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation names one of the three remote calls.
type Operation string

const (
	OpCreate   Operation = "create"
	OpAnnounce Operation = "announce"
	OpDelete   Operation = "delete"
)

// Operations lists every operation in iteration order.
var Operations = []Operation{OpCreate, OpAnnounce, OpDelete}

// Histogram range: 1 microsecond to 1 hour, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// Engine collects latency histograms and outcome counters.
//
// Engine is safe for concurrent use. Counters are atomic; histograms and
// the status-class table are guarded by mu since hdrhistogram is not
// thread-safe.
type Engine struct {
	mu       sync.Mutex
	hists    map[Operation]*hdrhistogram.Histogram
	statuses map[Operation]map[string]int64

	faults    atomic.Int64
	rotations atomic.Int64
	pending   atomic.Int64
	workers   atomic.Int32

	startTime time.Time

	registry       *prometheus.Registry
	responsesVec   *prometheus.CounterVec
	faultsVec      *prometheus.CounterVec
	latencyVec     *prometheus.HistogramVec
	rotationsCount prometheus.Counter
	pendingGauge   prometheus.Gauge
	workersGauge   prometheus.Gauge
}

// NewEngine creates an Engine with its own Prometheus registry.
func NewEngine() *Engine {
	e := &Engine{
		hists:     make(map[Operation]*hdrhistogram.Histogram, len(Operations)),
		statuses:  make(map[Operation]map[string]int64, len(Operations)),
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		responsesVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "volley",
			Name:      "responses_total",
			Help:      "Remote call responses by operation and status class.",
		}, []string{"operation", "class"}),
		faultsVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "volley",
			Name:      "faults_total",
			Help:      "Remote calls that produced no response.",
		}, []string{"operation"}),
		latencyVec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "volley",
			Name:      "request_duration_seconds",
			Help:      "Remote call latency by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"operation"}),
		rotationsCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "volley",
			Name:      "credential_rotations_total",
			Help:      "Credential rotations triggered by authorization failures.",
		}),
		pendingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "volley",
			Name:      "pending_deletes",
			Help:      "Deferred deletes scheduled but not yet finished.",
		}),
		workersGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "volley",
			Name:      "active_workers",
			Help:      "Workers currently running.",
		}),
	}
	for _, op := range Operations {
		e.hists[op] = hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
		e.statuses[op] = make(map[string]int64)
	}

	e.registry.MustRegister(
		e.responsesVec,
		e.faultsVec,
		e.latencyVec,
		e.rotationsCount,
		e.pendingGauge,
		e.workersGauge,
	)
	return e
}

// RecordResponse records a call that returned status after duration.
func (e *Engine) RecordResponse(op Operation, status int, duration time.Duration) {
	class := StatusClass(status)
	latencyMicros := duration.Microseconds()
	if latencyMicros < histogramMin {
		latencyMicros = histogramMin
	}
	if latencyMicros > histogramMax {
		latencyMicros = histogramMax
	}

	e.mu.Lock()
	if h, ok := e.hists[op]; ok {
		_ = h.RecordValue(latencyMicros)
	}
	if s, ok := e.statuses[op]; ok {
		s[class]++
	}
	e.mu.Unlock()

	e.responsesVec.WithLabelValues(string(op), class).Inc()
	e.latencyVec.WithLabelValues(string(op)).Observe(duration.Seconds())
}

// RecordFault records a call that produced no response.
func (e *Engine) RecordFault(op Operation) {
	e.faults.Add(1)
	e.faultsVec.WithLabelValues(string(op)).Inc()
}

// RecordRotation records one credential rotation.
func (e *Engine) RecordRotation() {
	e.rotations.Add(1)
	e.rotationsCount.Inc()
}

// SetPendingDeletes updates the outstanding deferred-delete count.
func (e *Engine) SetPendingDeletes(n int64) {
	e.pending.Store(n)
	e.pendingGauge.Set(float64(n))
}

// SetActiveWorkers updates the running worker count.
func (e *Engine) SetActiveWorkers(n int) {
	e.workers.Store(int32(n))
	e.workersGauge.Set(float64(n))
}

// Registry exposes the Prometheus registry.
func (e *Engine) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus text format.
func (e *Engine) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

// LatencyStats summarises one histogram.
type LatencyStats struct {
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
	Count int64
}

// OperationStats is the per-operation part of a Snapshot.
type OperationStats struct {
	Latency  LatencyStats
	Statuses map[string]int64
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Operations     map[Operation]OperationStats
	Faults         int64
	Rotations      int64
	PendingDeletes int64
	ActiveWorkers  int
	Elapsed        time.Duration
	StartTime      time.Time
}

// GetSnapshot returns a point-in-time snapshot of all metrics.
func (e *Engine) GetSnapshot() *Snapshot {
	snap := &Snapshot{
		Operations:     make(map[Operation]OperationStats, len(Operations)),
		Faults:         e.faults.Load(),
		Rotations:      e.rotations.Load(),
		PendingDeletes: e.pending.Load(),
		ActiveWorkers:  int(e.workers.Load()),
		Elapsed:        time.Since(e.startTime),
		StartTime:      e.startTime,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, op := range Operations {
		h := e.hists[op]
		statuses := make(map[string]int64, len(e.statuses[op]))
		for k, v := range e.statuses[op] {
			statuses[k] = v
		}
		snap.Operations[op] = OperationStats{
			Latency: LatencyStats{
				Min:   time.Duration(h.Min()) * time.Microsecond,
				Max:   time.Duration(h.Max()) * time.Microsecond,
				Mean:  time.Duration(h.Mean()) * time.Microsecond,
				P50:   time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
				P90:   time.Duration(h.ValueAtQuantile(90)) * time.Microsecond,
				P95:   time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
				P99:   time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
				Count: h.TotalCount(),
			},
			Statuses: statuses,
		}
	}
	return snap
}

// StatusClass maps 201 to "2xx" and so on.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}
