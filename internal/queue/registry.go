package queue

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const ensureQueueSQL = `
INSERT INTO queue (queue_name)
VALUES ($1)
ON CONFLICT (queue_name) DO NOTHING;
`

// EnsureQueue registers name in the queue registry if it is not already
// present. Queues are created implicitly by first use, never requiring an
// explicit provisioning step.
func (e *Engine) EnsureQueue(ctx context.Context, name string) error {
	return e.gw.WithRetriedTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, ensureQueueSQL, name)
		return err
	})
}

const listQueuesSQL = `SELECT queue_name FROM queue ORDER BY queue_name;`

// ListQueues returns every queue name the registry knows about, in name
// order, including queues that currently hold no messages.
func (e *Engine) ListQueues(ctx context.Context) ([]string, error) {
	var names []string
	err := e.gw.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, listQueuesSQL)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
