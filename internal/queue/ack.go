package queue

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const deleteMessageSQL = `
DELETE FROM queue_message
WHERE queue_name = $1 AND message_id = $2;
`

// Ack deletes the message row if present, returning whether a row was
// removed. Idempotent: acking the same id twice returns false the second
// time.
func (e *Engine) Ack(ctx context.Context, queueName, messageID string) (bool, error) {
	var removed bool
	err := e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, deleteMessageSQL, queueName, messageID)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		e.metrics.acked.WithLabelValues(queueName).Inc()
	}
	return removed, nil
}

// Exists is a shared-locked existence probe.
func (e *Engine) Exists(ctx context.Context, queueName, messageID string) (bool, error) {
	var found bool
	err := e.gw.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var dummy int
		err := tx.QueryRow(ctx, existsMessageSQL, queueName, messageID).Scan(&dummy)
		if err == nil {
			found = true
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Remove unconditionally deletes a message row, used by administrative
// paths.
func (e *Engine) Remove(ctx context.Context, queueName, messageID string) error {
	return e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, deleteMessageSQL, queueName, messageID)
		return err
	})
}

const flushQueueSQL = `DELETE FROM queue_message WHERE queue_name = $1;`

// Flush deletes all rows for queue.
func (e *Engine) Flush(ctx context.Context, queueName string) error {
	return e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, flushQueueSQL, queueName)
		return err
	})
}

const setUnackTimeoutSQL = `
UPDATE queue_message
SET offset_time_seconds = $3, deliver_on = now() + ($3::bigint * interval '1 second')
WHERE queue_name = $1 AND message_id = $2;
`

// SetUnackTimeout updates offset_time_seconds and deliver_on from a
// millisecond unack duration, returning true iff exactly one row was
// updated.
func (e *Engine) SetUnackTimeout(ctx context.Context, queueName, messageID string, unackMS int64) (bool, error) {
	offsetSeconds := unackMS / 1000
	var updated bool
	err := e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, setUnackTimeoutSQL, queueName, messageID, offsetSeconds)
		if err != nil {
			return err
		}
		updated = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

const setOffsetTimeSQL = `
UPDATE queue_message
SET offset_time_seconds = $3, deliver_on = now() + ($3::bigint * interval '1 second')
WHERE queue_name = $1 AND message_id = $2;
`

// SetOffsetTime has the same effect as SetUnackTimeout, parameterized in
// seconds directly and taken under a queue-wide exclusive lock for
// targeted reschedules under tighter contention.
func (e *Engine) SetOffsetTime(ctx context.Context, queueName, messageID string, offsetTimeSeconds int64) (bool, error) {
	var updated bool
	err := e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockQueueForUpdateSQL, queueName); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, setOffsetTimeSQL, queueName, messageID, offsetTimeSeconds)
		if err != nil {
			return err
		}
		updated = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}
