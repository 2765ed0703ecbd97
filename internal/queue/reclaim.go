package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const selectExpiredLeasesSQL = `
SELECT queue_name, message_id
FROM queue_message
WHERE popped = true AND deliver_on + ($1::bigint * interval '1 second') < now()
FOR UPDATE SKIP LOCKED;
`

const selectExpiredLeasesForQueueSQL = `
SELECT message_id
FROM queue_message
WHERE queue_name = $1 AND popped = true AND deliver_on + ($2::bigint * interval '1 second') < now()
FOR UPDATE SKIP LOCKED;
`

// ProcessAllUnacks sweeps every queue for leases held longer than the
// unack window and returns them to visible state; this is the
// scheduled-task variant run by Engine's reclaim loop.
//
// Binding one SQL parameter to a comma-joined id string for the recycling
// UPDATE's IN-clause binds a single opaque string value rather than one
// placeholder per id, so the predicate never matches any row and the
// sweep silently reclaims nothing. This build generates one placeholder
// per (queue_name, message_id) pair instead, matching the same fix
// popMessages needs for its own IN-clause.
func (e *Engine) ProcessAllUnacks(ctx context.Context) error {
	return e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectExpiredLeasesSQL, int64(e.unackWindow/time.Second))
		if err != nil {
			return err
		}
		var expired []struct{ queueName, messageID string }
		for rows.Next() {
			var k struct{ queueName, messageID string }
			if err := rows.Scan(&k.queueName, &k.messageID); err != nil {
				rows.Close()
				return err
			}
			expired = append(expired, k)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		if len(expired) == 0 {
			return nil
		}

		counts := map[string]int{}
		for _, k := range expired {
			counts[k.queueName]++
		}

		sql, args := reclaimUpdateSQL(expired)
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return err
		}

		for queueName, n := range counts {
			e.metrics.reclaimed.WithLabelValues(queueName).Add(float64(n))
		}
		return nil
	})
}

// reclaimUpdateSQL builds `UPDATE ... WHERE (queue_name, message_id) IN
// ((q1,m1), (q2,m2), ...)` with one pair of placeholders per row, rather
// than folding the ids into a single comma-joined string parameter.
func reclaimUpdateSQL(rows []struct{ queueName, messageID string }) (string, []any) {
	pairs := make([]string, len(rows))
	args := make([]any, 0, len(rows)*2)
	for i, r := range rows {
		pairs[i] = fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2)
		args = append(args, r.queueName, r.messageID)
	}
	sql := fmt.Sprintf(`
UPDATE queue_message
SET popped = false
WHERE (queue_name, message_id) IN (%s);
`, strings.Join(pairs, ","))
	return sql, args
}

// ProcessUnacks is the per-queue variant of ProcessAllUnacks, the
// user-callable reclaim.
func (e *Engine) ProcessUnacks(ctx context.Context, queueName string) error {
	return e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectExpiredLeasesForQueueSQL, queueName, int64(e.unackWindow/time.Second))
		if err != nil {
			return err
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		if len(ids) == 0 {
			return nil
		}

		placeholders := make([]string, len(ids))
		args := make([]any, 0, len(ids)+1)
		args = append(args, queueName)
		for i, id := range ids {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, id)
		}
		sql := fmt.Sprintf(`
UPDATE queue_message
SET popped = false
WHERE queue_name = $1 AND message_id IN (%s);
`, strings.Join(placeholders, ","))

		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return err
		}
		e.metrics.reclaimed.WithLabelValues(queueName).Add(float64(len(ids)))
		return nil
	})
}
