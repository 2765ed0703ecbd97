// Package wake publishes a best-effort "check now" hint over RabbitMQ
// whenever a message becomes immediately visible. It is never a delivery
// path: pollers still discover and lease messages from Postgres on their
// own schedule, this only lets an idle poller shorten its next wait.
package wake

import (
	"context"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"

	"github.com/offis-rit/workq/pkg/logger"
)

const exchangeName = "workq_wake"

// Notifier publishes wake hints to a fanout exchange, rate-limited per
// queue so a hot producer cannot flood the broker with one publish per
// push.
type Notifier struct {
	ch       *amqp091.Channel
	limiters *limiterSet
}

type limiterSet struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New declares the fanout exchange used for wake hints and returns a
// Notifier bound to ch. Every queue is limited to at most ratePerSecond
// publishes/sec, bursting up to burst, so a tight push loop degrades to
// occasional hints instead of a publish storm.
func New(ch *amqp091.Channel, ratePerSecond float64, burst int) (*Notifier, error) {
	err := ch.ExchangeDeclare(
		exchangeName,
		"fanout",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare wake exchange: %w", err)
	}

	return &Notifier{
		ch: ch,
		limiters: &limiterSet{
			rate:     rate.Limit(ratePerSecond),
			burst:    burst,
			limiters: map[string]*rate.Limiter{},
		},
	}, nil
}

func (s *limiterSet) allow(queueName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[queueName]
	if !ok {
		l = rate.NewLimiter(s.rate, s.burst)
		s.limiters[queueName] = l
	}
	return l.Allow()
}

// Notify publishes a wake hint for queueName if that queue's rate budget
// allows it. Publish errors are logged, never surfaced. Losing a hint
// only costs the next poller a little latency, it is not a correctness
// fault.
func (n *Notifier) Notify(ctx context.Context, queueName string) {
	if n == nil || n.ch == nil {
		return
	}
	if !n.limiters.allow(queueName) {
		return
	}

	err := n.ch.PublishWithContext(ctx,
		exchangeName,
		"", // fanout ignores routing key
		false,
		false,
		amqp091.Publishing{
			ContentType: "text/plain",
			Body:        []byte(queueName),
		},
	)
	if err != nil {
		logger.Debug("wake: publish failed", "queue", queueName, "err", err)
	}
}
