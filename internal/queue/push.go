package queue

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const lockQueueForUpdateSQL = `SELECT queue_name FROM queue WHERE queue_name = $1 FOR UPDATE;`

const lockMessageForUpdateSQL = `
SELECT message_id FROM queue_message
WHERE queue_name = $1 AND message_id = $2
FOR UPDATE;
`

const upsertMessageSQL = `
INSERT INTO queue_message (queue_name, message_id, payload, priority, offset_time_seconds, deliver_on)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (queue_name, message_id) DO UPDATE
SET payload    = EXCLUDED.payload,
    deliver_on = EXCLUDED.deliver_on;
`

// Push enqueues req onto queue, creating the queue on demand and
// upserting the message row: a new row takes payload, priority,
// offset_time_seconds and deliver_on from this call; on conflict only
// payload and deliver_on are refreshed, and the existing priority and
// offset_time_seconds are kept.
func (e *Engine) Push(ctx context.Context, queueName string, req PushRequest) error {
	return e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return e.pushTx(ctx, tx, queueName, req)
	})
}

// PushBatch pushes several messages to the same queue under a single
// transaction.
func (e *Engine) PushBatch(ctx context.Context, queueName string, reqs []PushRequest) error {
	return e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureQueueSQL, queueName); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, lockQueueForUpdateSQL, queueName); err != nil {
			return err
		}
		for _, req := range reqs {
			if err := e.pushMessage(ctx, tx, queueName, req); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) pushTx(ctx context.Context, tx pgx.Tx, queueName string, req PushRequest) error {
	if _, err := tx.Exec(ctx, ensureQueueSQL, queueName); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, lockQueueForUpdateSQL, queueName); err != nil {
		return err
	}
	return e.pushMessage(ctx, tx, queueName, req)
}

func (e *Engine) pushMessage(ctx context.Context, tx pgx.Tx, queueName string, req PushRequest) error {
	if _, err := tx.Exec(ctx, lockMessageForUpdateSQL, queueName, req.MessageID); err != nil {
		return err
	}
	deliverOn := time.Now().Add(time.Duration(req.OffsetTimeSeconds) * time.Second)
	_, err := tx.Exec(ctx, upsertMessageSQL,
		queueName, req.MessageID, req.Payload, req.Priority, req.OffsetTimeSeconds, deliverOn)
	if err != nil {
		return err
	}
	e.metrics.pushed.WithLabelValues(queueName).Inc()
	if req.OffsetTimeSeconds == 0 {
		e.wake.Notify(ctx, queueName)
	}
	return nil
}

const existsMessageSQL = `
SELECT 1 FROM queue_message
WHERE queue_name = $1 AND message_id = $2
FOR SHARE;
`

// PushIfNotExists behaves as Push but only if message_id is not already
// present in queue, returning whether the row was created. It runs under
// a retried transaction, not the no-propagation sentinel, because a
// conflicting retry here is still safe to re-attempt in full.
func (e *Engine) PushIfNotExists(ctx context.Context, queueName string, req PushRequest) (bool, error) {
	var created bool
	err := e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureQueueSQL, queueName); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, lockQueueForUpdateSQL, queueName); err != nil {
			return err
		}
		var dummy int
		err := tx.QueryRow(ctx, existsMessageSQL, queueName, req.MessageID).Scan(&dummy)
		if err == nil {
			created = false
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if err := e.pushMessage(ctx, tx, queueName, req); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}
