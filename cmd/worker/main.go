package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/offis-rit/workq/internal/gateway"
	"github.com/offis-rit/workq/internal/queue"
	"github.com/offis-rit/workq/internal/util"
	"github.com/offis-rit/workq/pkg/logger"
	"github.com/offis-rit/workq/pkg/logger/console"
)

// main runs N concurrent consumer loops against the queue engine
// directly, each looping poll+handle+ack against its own queue until
// signaled to stop.
func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pool.Close()

	gw := gateway.New(pool)
	eng := queue.New(gw)
	eng.Start(ctx)
	defer eng.Close()

	queueNames := strings.Split(util.GetEnvString("WORKER_QUEUES", "default"), ",")
	count := int(util.GetEnvNumeric("WORKER_BATCH_SIZE", 10))
	timeoutMS := int64(util.GetEnvNumeric("WORKER_POLL_TIMEOUT_MS", 5000))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range queueNames {
		name := strings.TrimSpace(name)
		if name == "" {
			continue
		}
		g.Go(func() error {
			return consumeLoop(gctx, eng, name, count, timeoutMS)
		})
	}

	logger.Info("worker: consuming", "queues", queueNames)
	if err := g.Wait(); err != nil && gctx.Err() == nil {
		logger.Error("worker: consumer group exited with error", "err", err)
	}
	logger.Info("worker: shutdown complete")
}

// consumeLoop polls queueName until ctx is canceled, handing each message
// to handleMessage and acking on success.
func consumeLoop(ctx context.Context, eng *queue.Engine, queueName string, count int, timeoutMS int64) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := eng.PollMessages(ctx, queueName, count, timeoutMS)
		if err != nil {
			logger.Error("worker: poll failed", "queue", queueName, "err", err)
			continue
		}
		for _, m := range msgs {
			if err := handleMessage(ctx, m); err != nil {
				logger.Error("worker: handler failed, leaving message unacked for reclaim", "queue", queueName, "message_id", m.MessageID, "err", err)
				continue
			}
			if _, err := eng.Ack(ctx, queueName, m.MessageID); err != nil {
				logger.Error("worker: ack failed", "queue", queueName, "message_id", m.MessageID, "err", err)
			}
		}
	}
}

// handleMessage is the payload-opaque processing hook; the engine never
// interprets message payloads itself. A real deployment supplies its own
// handler here; this one just logs receipt.
func handleMessage(_ context.Context, m queue.Message) error {
	logger.Debug("worker: processed message", "message_id", m.MessageID, "priority", m.Priority)
	return nil
}
