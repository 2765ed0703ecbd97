// Package gateway provides scoped SQL transactions with retry-on-conflict,
// the thin "base DAO" every DAO-shaped package in this service is built on.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/offis-rit/workq/pkg/logger"
)

// BackendError signals an invariant violation detected by the engine itself
// (as opposed to a database/connectivity fault surfaced verbatim).
type BackendError struct {
	Op     string
	Detail string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error in %s: %s", e.Op, e.Detail)
}

// transient Postgres error codes considered safe to retry.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// IsTransientConflict reports whether err is a serialization failure or
// deadlock that a caller may safely retry.
func IsTransientConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// dbPool is the subset of *pgxpool.Pool the Gateway needs to open
// transactions. It is narrow enough that a pgxmock pool fake satisfies it,
// which is what lets package queue's tests drive the gateway without a
// live database.
type dbPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Gateway wraps a pgx connection pool with the transaction variants the
// rest of the service is built from.
type Gateway struct {
	rawPool    *pgxpool.Pool
	pool       dbPool
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures a Gateway at construction time.
type Option func(*Gateway)

// WithMaxRetries overrides the default retry budget (5) for
// WithRetriedTransaction.
func WithMaxRetries(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxRetries = n
		}
	}
}

// New creates a Gateway over an already pool-configured data source.
func New(pool *pgxpool.Pool, opts ...Option) *Gateway {
	g := &Gateway{
		rawPool:    pool,
		pool:       pool,
		maxRetries: 5,
		baseDelay:  10 * time.Millisecond,
		maxDelay:   200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewForTesting builds a Gateway over an arbitrary dbPool, typically a
// pgxmock fake, bypassing the concrete pgxpool.Pool requirement so callers
// can unit-test transaction-shaped logic against a scripted wire protocol.
func NewForTesting(pool dbPool, opts ...Option) *Gateway {
	g := &Gateway{
		pool:       pool,
		maxRetries: 5,
		baseDelay:  10 * time.Millisecond,
		maxDelay:   200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Pool exposes the underlying pool for components (e.g. leaselock) that
// need raw access outside the transaction helpers. It is nil for gateways
// built with NewForTesting.
func (g *Gateway) Pool() *pgxpool.Pool {
	return g.rawPool
}

var txOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead}

// WithTransaction runs fn in a repeatable-read transaction, committing on
// success and rolling back on any fault. The fault is surfaced unchanged.
func (g *Gateway) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := g.pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// WithRetriedTransaction is WithTransaction with bounded retry on transient
// serialization/deadlock faults, with jittered backoff between attempts.
func (g *Gateway) WithRetriedTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := g.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsTransientConflict(err) {
			return err
		}
		lastErr = err
		logger.Warn("gateway: retrying after transient conflict", "attempt", attempt+1, "err", err)
		if sleepErr := g.backoff(ctx, attempt); sleepErr != nil {
			return sleepErr
		}
	}
	return lastErr
}

// WithTransactionNoPropagation runs fn once. On transient conflict it
// returns (zero, false, nil) instead of surfacing the fault, the "try
// again later" sentinel callers use instead of retrying internally. Any
// other fault is surfaced as (zero, false, err).
func WithTransactionNoPropagation[T any](ctx context.Context, g *Gateway, fn func(ctx context.Context, tx pgx.Tx) (T, error)) (T, bool, error) {
	var zero T
	var result T
	err := g.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		r, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err == nil {
		return result, true, nil
	}
	if IsTransientConflict(err) {
		return zero, false, nil
	}
	return zero, false, err
}

func (g *Gateway) backoff(ctx context.Context, attempt int) error {
	d := g.baseDelay * time.Duration(1<<attempt)
	if d > g.maxDelay || d <= 0 {
		d = g.maxDelay
	}
	d += time.Duration(rand.Int64N(int64(d)/2 + 1))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
