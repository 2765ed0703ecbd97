package queue

import (
	"context"
	"sync"
	"time"

	"github.com/offis-rit/workq/internal/gateway"
	"github.com/offis-rit/workq/pkg/leaselock"
	"github.com/offis-rit/workq/pkg/logger"
)

// WakeNotifier is the narrow seam the queue engine uses to publish a
// best-effort "check now" hint on immediate-visibility pushes. It is
// never consulted for correctness, only internal/wake implements it in
// this service, kept as an interface here so the engine package does not
// need to import amqp091-go directly.
type WakeNotifier interface {
	Notify(ctx context.Context, queueName string)
}

type noopWakeNotifier struct{}

func (noopWakeNotifier) Notify(context.Context, string) {}

// Engine is the queue engine: the leasing/store layer, polling loop,
// unack reclaimer, and introspection queries, all built on top of a
// gateway.Gateway.
type Engine struct {
	gw   *gateway.Gateway
	lock *leaselock.Client
	wake WakeNotifier

	unackWindow     time.Duration
	reclaimInterval time.Duration

	metrics *queueMetrics

	startOnce sync.Once
	started   bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithUnackWindow overrides the default 60s unack window W. The sweep
// cadence is always derived from the same value.
func WithUnackWindow(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.unackWindow = d
			e.reclaimInterval = d
		}
	}
}

// WithWakeNotifier attaches the best-effort wake notifier.
func WithWakeNotifier(w WakeNotifier) EngineOption {
	return func(e *Engine) {
		if w != nil {
			e.wake = w
		}
	}
}

// WithMetricsRegisterer registers the engine's Prometheus collectors
// against reg.
func WithMetricsRegisterer(reg MetricsRegisterer) EngineOption {
	return func(e *Engine) {
		if reg != nil {
			e.metrics = newQueueMetrics(reg)
		}
	}
}

// New constructs an Engine over gw. The reclaimer is not started until
// Start is called.
func New(gw *gateway.Gateway, opts ...EngineOption) *Engine {
	e := &Engine{
		gw:              gw,
		lock:            leaselock.New(gw.Pool()),
		wake:            noopWakeNotifier{},
		unackWindow:     DefaultUnackWindow,
		reclaimInterval: DefaultReclaimInterval,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = newQueueMetrics(nil)
	}
	return e
}

// Start launches the periodic unack reclaimer. It is safe to call at
// most once; subsequent calls are no-ops.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		e.started = true
		go e.reclaimLoop(ctx)
	})
}

// Close stops the reclaimer and waits for its current tick to finish. It
// is a no-op if Start was never called.
func (e *Engine) Close() {
	if !e.started {
		return
	}
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	<-e.doneCh
}

func (e *Engine) reclaimLoop(ctx context.Context) {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.reclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runReclaimTick(ctx)
		}
	}
}

// runReclaimTick performs one sweep, electing leadership via pkg/leaselock
// so that horizontally-scaled instances do not duplicate the sweep.
// Losing the election is not an error: any instance could safely run the
// sweep, this purely avoids duplicate work.
func (e *Engine) runReclaimTick(ctx context.Context) {
	start := time.Now()
	err := e.lock.WithLease(ctx, "unack-reclaimer", leaselock.Options{
		TTL:        2 * e.unackWindow,
		RenewEvery: e.unackWindow,
		Wait:       false,
	}, func(leaseCtx context.Context) error {
		return e.ProcessAllUnacks(leaseCtx)
	})
	if err == nil {
		e.metrics.reclaimDur.Observe(time.Since(start).Seconds())
		return
	}
	if err == leaselock.ErrBusy {
		logger.Debug("queue: reclaimer lease held elsewhere, skipping tick")
		return
	}
	logger.Warn("queue: reclaim tick failed", "err", err)
}
