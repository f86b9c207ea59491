// Package engine serializes scene operations from concurrent callers onto
// one worker goroutine, the only goroutine that touches the scene.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/scenegraph/internal/config"
	"github.com/gyaneshwarpardhi/scenegraph/internal/metrics"
	"github.com/gyaneshwarpardhi/scenegraph/internal/scene"
)

var (
	ErrQueueFull = errors.New("operation queue full")
	ErrTimeout   = errors.New("operation timed out")
)

// Op runs against the scene on the executor goroutine.
type Op func(s *scene.Scene) (any, error)

type opResult struct {
	value any
	err   error
}

type opWork struct {
	ctx     context.Context
	name    string
	fn      Op
	queued  time.Time
	resultC chan opResult
}

// Engine owns a scene and runs every operation on it in submission order.
type Engine struct {
	sc      *scene.Scene
	pool    *workerPool[*opWork]
	timeout atomic.Int64 // nanoseconds
	logger  *slog.Logger
}

// New starts the executor for sc. It stops when ctx is cancelled or on
// Shutdown.
func New(ctx context.Context, sc *scene.Scene, conf config.ServerConf, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	depth := conf.QueueDepth
	if depth <= 0 {
		depth = config.DefaultQueueDepth
	}
	e := &Engine{sc: sc, logger: logger.With("component", "engine")}
	e.SetTimeout(time.Duration(conf.OpTimeoutMs) * time.Millisecond)
	e.pool = newWorkerPool(ctx, 1, depth, e.execute)
	return e
}

// SetTimeout bounds how long Do waits for an operation. Zero or less falls
// back to the default.
func (e *Engine) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = config.DefaultOpTimeoutMs * time.Millisecond
	}
	e.timeout.Store(int64(d))
}

func (e *Engine) Timeout() time.Duration { return time.Duration(e.timeout.Load()) }

// Do queues fn and waits for its result. An operation still queued when
// the caller gives up is skipped; one already running completes.
func (e *Engine) Do(ctx context.Context, name string, fn Op) (any, error) {
	timeout := e.Timeout()
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	w := &opWork{
		ctx:     opCtx,
		name:    name,
		fn:      fn,
		queued:  time.Now(),
		resultC: make(chan opResult, 1),
	}
	if !e.pool.Submit(w) {
		metrics.OpsDropped.Inc()
		return nil, fmt.Errorf("%s: %w (capacity %d)", name, ErrQueueFull, e.pool.QueueCap())
	}
	metrics.OpsEnqueued.Inc()

	select {
	case res := <-w.resultC:
		return res.value, res.err
	case <-opCtx.Done():
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%s: %w after %v", name, ErrTimeout, timeout)
		}
		return nil, ctx.Err()
	}
}

func (e *Engine) execute(_ context.Context, w *opWork) {
	if w.ctx.Err() != nil {
		e.logger.Debug("op skipped", "op", w.name, "err", w.ctx.Err())
		return
	}
	v, err := e.run(w)
	metrics.OpDuration.Observe(float64(time.Since(w.queued).Microseconds()) / 1000)
	w.resultC <- opResult{value: v, err: err}
}

func (e *Engine) run(w *opWork) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("op panicked", "op", w.name, "panic", r)
			err = fmt.Errorf("%s: panic: %v", w.name, r)
		}
	}()
	return w.fn(e.sc)
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Shutdown runs what is queued and stops the worker.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}
