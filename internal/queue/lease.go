package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/offis-rit/workq/internal/gateway"
	"github.com/offis-rit/workq/pkg/logger"
)

const peekMessagesSQL = `
SELECT message_id, payload, priority, offset_time_seconds, deliver_on, created_on
FROM queue_message
WHERE queue_name = $1 AND popped = false AND deliver_on <= now() + interval '1 millisecond'
ORDER BY priority DESC, deliver_on ASC, created_on ASC
LIMIT $2
FOR UPDATE SKIP LOCKED;
`

// peekMessages selects up to count visible, unlocked candidates in
// priority/time order. It must run inside the same transaction
// popMessages uses the locks from, so it takes tx directly rather than
// opening its own.
func peekMessages(ctx context.Context, tx pgx.Tx, queueName string, count int) ([]Message, error) {
	rows, err := tx.Query(ctx, peekMessagesSQL, queueName, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.MessageID, &m.Payload, &m.Priority, &m.OffsetTimeSeconds, &m.DeliverOn, &m.CreatedOn); err != nil {
			return nil, err
		}
		m.QueueName = queueName
		out = append(out, m)
	}
	return out, rows.Err()
}

func popUpdateSQL(n int) string {
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}
	return fmt.Sprintf(`
UPDATE queue_message
SET popped = true
WHERE queue_name = $1 AND popped = false AND message_id IN (%s);
`, strings.Join(placeholders, ","))
}

// popMessagesTx peeks candidates, then marks them popped under a bounded
// UPDATE, failing with BackendError if the update count does not match
// the candidate count. The IN-list is built with one placeholder per id
// (never a single parameter bound to a comma-joined string) so the guard
// clause actually targets each candidate row.
func (e *Engine) popMessagesTx(ctx context.Context, tx pgx.Tx, queueName string, count int) ([]Message, error) {
	candidates, err := peekMessages(ctx, tx, queueName, count)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(candidates)+1)
	args = append(args, queueName)
	for _, c := range candidates {
		args = append(args, c.MessageID)
	}
	tag, err := tx.Exec(ctx, popUpdateSQL(len(candidates)), args...)
	if err != nil {
		return nil, err
	}
	if int(tag.RowsAffected()) != len(candidates) {
		return nil, &gateway.BackendError{Op: "popMessages", Detail: "could not pop all"}
	}

	for i := range candidates {
		candidates[i].Popped = true
	}
	e.metrics.popped.WithLabelValues(queueName).Add(float64(len(candidates)))
	return candidates, nil
}

// popMessagesNonRetried is popMessages's single-attempt variant used by
// PollMessages when timeout_ms < 1: on transient conflict it returns an
// empty list rather than faulting.
func (e *Engine) popMessagesNonRetried(ctx context.Context, queueName string, count int) ([]Message, error) {
	msgs, ok, err := WithTransactionNoPropagation(ctx, e.gw, func(ctx context.Context, tx pgx.Tx) ([]Message, error) {
		return e.popMessagesTx(ctx, tx, queueName, count)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return msgs, nil
}

const pollBackoff = 100 * time.Millisecond

// PollMessages is bounded-time batch polling over popMessages with a
// fixed 100ms inter-attempt backoff.
func (e *Engine) PollMessages(ctx context.Context, queueName string, count int, timeoutMS int64) ([]Message, error) {
	if timeoutMS < 1 {
		return e.popMessagesNonRetried(ctx, queueName, count)
	}

	start := time.Now()
	var collected []Message
	for {
		remaining := count - len(collected)
		attempt, ok, err := WithTransactionNoPropagation(ctx, e.gw, func(ctx context.Context, tx pgx.Tx) ([]Message, error) {
			return e.popMessagesTx(ctx, tx, queueName, remaining)
		})
		if err != nil {
			return collected, err
		}
		if !ok {
			logger.Warn("queue: transient conflict polling, returning partial batch", "queue", queueName)
			return collected, nil
		}
		collected = append(collected, attempt...)
		if len(collected) >= count {
			return collected, nil
		}
		if time.Since(start) > time.Duration(timeoutMS)*time.Millisecond {
			return collected, nil
		}

		timer := time.NewTimer(pollBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return collected, nil
		case <-timer.C:
		}
	}
}

// Pop is pop(queue, count, timeout_ms): a projection of PollMessages onto
// message ids.
func (e *Engine) Pop(ctx context.Context, queueName string, count int, timeoutMS int64) ([]string, error) {
	msgs, err := e.PollMessages(ctx, queueName, count, timeoutMS)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.MessageID
	}
	return ids, nil
}
