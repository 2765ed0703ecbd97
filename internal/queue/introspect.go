package queue

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const getSizeSQL = `
SELECT count(*) FROM (
    SELECT 1 FROM queue_message WHERE queue_name = $1 FOR SHARE
) locked;
`

// GetSize counts every row for queue (popped or not) under a FOR SHARE
// lock. The shared lock, rather than an unlocked count, keeps this
// consistent with concurrent pops for callers that assert on a drained
// queue.
func (e *Engine) GetSize(ctx context.Context, queueName string) (int64, error) {
	var n int64
	err := e.gw.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, getSizeSQL, queueName).Scan(&n)
	})
	if err != nil {
		return 0, err
	}
	e.metrics.size.WithLabelValues(queueName).Set(float64(n))
	return n, nil
}

const queuesDetailSQL = `
SELECT queue_name, count(*) FILTER (WHERE popped = false)
FROM queue_message
GROUP BY queue_name;
`

// QueuesDetail maps queue_name to its visible (unpopped) count.
func (e *Engine) QueuesDetail(ctx context.Context) (map[string]int64, error) {
	detail := map[string]int64{}
	err := e.gw.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, queuesDetailSQL)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			var visible int64
			if err := rows.Scan(&name, &visible); err != nil {
				return err
			}
			detail[name] = visible
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

const queuesDetailVerboseSQL = `
SELECT queue_name,
       count(*) FILTER (WHERE popped = false) AS visible,
       count(*) FILTER (WHERE popped = true)  AS unacked
FROM queue_message
GROUP BY queue_name;
`

// ShardDetail is the reserved per-shard reporting shape; this engine
// always reports a single shard keyed "a".
type ShardDetail struct {
	Size    int64 `json:"size"`
	Unacked int64 `json:"unacked"`
}

// QueuesDetailVerbose maps queue_name to shard id "a" to a ShardDetail.
func (e *Engine) QueuesDetailVerbose(ctx context.Context) (map[string]map[string]ShardDetail, error) {
	out := map[string]map[string]ShardDetail{}
	err := e.gw.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, queuesDetailVerboseSQL)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			var d ShardDetail
			if err := rows.Scan(&name, &d.Size, &d.Unacked); err != nil {
				return err
			}
			out[name] = map[string]ShardDetail{"a": d}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
