// Package queue implements the durable, relational-database-backed work
// queue engine: named queues of caller-identified messages, leased with
// visibility-timeout ("unack") semantics, priority ordering, and delayed
// delivery, over a shared Postgres database.
package queue

import "time"

// Message is a single queue_message row as returned to callers of
// peek/pop/poll.
type Message struct {
	QueueName         string
	MessageID         string
	Payload           string
	Priority          int32
	OffsetTimeSeconds int64
	DeliverOn         time.Time
	CreatedOn         time.Time
	Popped            bool
}

// PushRequest describes one message to enqueue, as accepted by Push and
// PushIfNotExists.
type PushRequest struct {
	MessageID         string
	Payload           string
	Priority          int32
	OffsetTimeSeconds int64
}

// visibilityEpsilon accommodates clock granularity between the visibility
// test in peekMessages and the subsequent popMessages UPDATE.
const visibilityEpsilon = time.Millisecond

// DefaultUnackWindow is the fixed engine constant W: a lease held longer
// than this past its deliver_on is considered abandoned and recycled by
// the reclaimer.
const DefaultUnackWindow = 60 * time.Second

// DefaultReclaimInterval is the cadence the background sweep runs at. It
// must equal the unack window so the reclaimer's predicate and its
// schedule stay in lockstep: both are derived from the same value instead
// of two independently hardcoded literals.
const DefaultReclaimInterval = DefaultUnackWindow
