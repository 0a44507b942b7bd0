// Package engine runs the create, announce and deferred-delete sequence
// against the remote API.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wesleyorama2/volley/internal/backoff"
	"github.com/wesleyorama2/volley/internal/credentials"
	"github.com/wesleyorama2/volley/internal/engine/metrics"
	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/logging"
	"github.com/wesleyorama2/volley/internal/payload"
)

// ErrNoResponse is returned when a transport yields neither a response nor
// an error.
var ErrNoResponse = errors.New("transport returned no response")

// PayloadSource builds request bodies for one identifier.
type PayloadSource interface {
	CreatePayload(id string) (payload.Document, error)
	AnnouncePayload(id string) (payload.Document, error)
}

// Pacer gates the start of each iteration. Wait returns false when done
// closes before the caller may start.
type Pacer interface {
	Wait(done <-chan struct{}) bool
}

// WorkerState represents the lifecycle state of a Worker.
type WorkerState int32

const (
	// WorkerIdle indicates the worker has not started.
	WorkerIdle WorkerState = iota
	// WorkerRunning indicates the worker is executing iterations.
	WorkerRunning
	// WorkerBackingOff indicates the worker is sleeping after a fault.
	WorkerBackingOff
	// WorkerStopped indicates the worker loop has exited.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerBackingOff:
		return "backing-off"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Shared is the state every worker of a run has in common.
type Shared struct {
	Transport vhttp.Transport
	Pool      *credentials.Pool
	Payloads  PayloadSource
	Counters  *Counters
	Run       *RunState
	Deletes   *DeleteScheduler
	Metrics   *metrics.Engine
	Logger    *logging.Logger
	Endpoints Endpoints

	// Delay between announce completion and the delete call
	Delay time.Duration

	// Pacer is optional; nil starts iterations back to back.
	Pacer Pacer
}

// Worker repeatedly runs one create, announce and delete chain.
//
// Each worker owns its backoff state; everything else is in Shared.
type Worker struct {
	ID int

	shared  *Shared
	backoff *backoff.Controller
	log     *logging.Logger

	state     atomic.Int32
	iteration atomic.Int64

	newID func() string
	sleep func(d time.Duration, done <-chan struct{})
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) WorkerOption {
	return func(w *Worker) {
		w.newID = fn
	}
}

// WithSleep replaces the backoff sleep. The function must return early
// when done is closed.
func WithSleep(fn func(d time.Duration, done <-chan struct{})) WorkerOption {
	return func(w *Worker) {
		w.sleep = fn
	}
}

// NewWorker creates a worker. bo must not be shared with another worker.
func NewWorker(id int, shared *Shared, bo *backoff.Controller, opts ...WorkerOption) *Worker {
	logger := shared.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	w := &Worker{
		ID:      id,
		shared:  shared,
		backoff: bo,
		log:     logger.With(zap.Int("worker", id)),
		newID:   uuid.NewString,
		sleep:   sleepOrDone,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// GetState returns the current worker state.
func (w *Worker) GetState() WorkerState {
	return WorkerState(w.state.Load())
}

// GetIteration returns the number of iterations started.
func (w *Worker) GetIteration() int64 {
	return w.iteration.Load()
}

// Run loops until the run state goes inactive. ctx is used for every
// remote call and should not be cancelled before Run returns.
func (w *Worker) Run(ctx context.Context) {
	w.state.Store(int32(WorkerRunning))
	defer w.state.Store(int32(WorkerStopped))

	for w.shared.Run.Active() {
		if p := w.shared.Pacer; p != nil && !p.Wait(w.shared.Run.Done()) {
			return
		}
		_ = w.RunIteration(ctx)
	}
}

// RunIteration executes one chain. A non-nil error means the iteration
// faulted; the fault has already been logged and backed off.
func (w *Worker) RunIteration(ctx context.Context) error {
	w.iteration.Add(1)

	err := w.iterate(ctx)
	if err != nil {
		w.onFault(err)
		return err
	}
	w.backoff.OnSuccess()
	return nil
}

func (w *Worker) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("recovered panic: %v", r)
		}
	}()

	id := w.newID()

	body, err := w.shared.Payloads.CreatePayload(id)
	if err != nil {
		return errors.Annotate(err, "build create payload")
	}
	resp, err := w.call(ctx, metrics.OpCreate, vhttp.NewRequest(http.MethodPut, w.shared.Endpoints.CreatePath(id)).WithBody(body))
	if err != nil {
		return errors.Annotatef(err, "create %s", id)
	}
	w.shared.Counters.Increment()
	w.observeCreate(id, resp)

	// The resource may exist from here on, so its delete is scheduled
	// once the announce step finishes, whatever the outcome.
	defer w.scheduleDelete(ctx, id)

	announce, err := w.shared.Payloads.AnnouncePayload(id)
	if err != nil {
		return errors.Annotate(err, "build announce payload")
	}
	req := vhttp.NewRequest(http.MethodPost, AnnouncePath).
		WithQueryParam("include", "relatedInfo").
		WithBody(announce)
	resp, err = w.call(ctx, metrics.OpAnnounce, req)
	if err != nil {
		return errors.Annotatef(err, "announce %s", id)
	}
	w.logResponse(metrics.OpAnnounce, id, resp)
	return nil
}

// call sends req with the current credential and records the outcome.
func (w *Worker) call(ctx context.Context, op metrics.Operation, req *vhttp.Request) (*vhttp.Response, error) {
	req.WithHeader("Authorization", w.shared.Pool.Current())

	resp, err := w.shared.Transport.Do(ctx, req)
	if err == nil && resp == nil {
		err = ErrNoResponse
	}
	if err != nil {
		w.shared.Metrics.RecordFault(op)
		return nil, err
	}
	w.shared.Metrics.RecordResponse(op, resp.StatusCode, resp.Duration())
	return resp, nil
}

// observeCreate feeds the create status into the credential pool. Any
// status other than 401/403 clears the failure streak.
func (w *Worker) observeCreate(id string, resp *vhttp.Response) {
	w.logResponse(metrics.OpCreate, id, resp)

	if !resp.IsAuthFailure() {
		w.shared.Pool.RecordNonAuthResponse()
		return
	}

	rot, rotated := w.shared.Pool.RecordAuthFailure()
	if !rotated {
		return
	}
	w.shared.Metrics.RecordRotation()
	w.log.Log(zapcore.WarnLevel,
		fmt.Sprintf("Credential rotated from index %d to %d", rot.From, rot.To), true,
		zap.Int("status", resp.StatusCode),
		zap.Int("from", rot.From),
		zap.Int("to", rot.To),
	)
}

func (w *Worker) scheduleDelete(ctx context.Context, id string) {
	path := w.shared.Endpoints.DeletePath(id)
	w.shared.Deletes.Schedule(w.shared.Delay, func() {
		resp, err := w.call(ctx, metrics.OpDelete, vhttp.NewRequest(http.MethodDelete, path))
		if err != nil {
			w.log.Warn("Delete failed", zap.String("id", id), zap.Error(err))
			return
		}
		w.logResponse(metrics.OpDelete, id, resp)
	})
}

func (w *Worker) logResponse(op metrics.Operation, id string, resp *vhttp.Response) {
	fields := []zap.Field{
		zap.String("op", string(op)),
		zap.String("id", id),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", resp.Duration()),
	}
	if !resp.IsSuccess() {
		if detail := resp.Detail(); detail != "" {
			fields = append(fields, zap.String("detail", detail))
		}
	}
	w.log.Debug("Response", fields...)
}

func (w *Worker) onFault(err error) {
	delay := w.backoff.OnFailure()
	w.log.Warn("Iteration fault",
		zap.Error(err),
		zap.Duration("backoff", delay),
		zap.Int64("iteration", w.iteration.Load()),
	)

	w.state.Store(int32(WorkerBackingOff))
	w.sleep(delay, w.shared.Run.Done())
	w.state.Store(int32(WorkerRunning))
}

func sleepOrDone(d time.Duration, done <-chan struct{}) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-done:
	}
}
