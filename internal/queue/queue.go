// Package queue holds the client's durable state: the append-only log of
// writes waiting for replay and the cache of the last successful reads.
package queue

import (
	"context"

	"lovelist/internal/model"
)

// Queue is an append-only log of operations replayed in Seq order.
type Queue interface {
	// Enqueue appends op and returns it with Seq (and ID, if empty) assigned.
	Enqueue(ctx context.Context, op model.Operation) (model.Operation, error)
	// PeekAll returns every queued operation in replay order without removing any.
	PeekAll(ctx context.Context) ([]model.Operation, error)
	// DrainAll removes every operation with Seq <= throughSeq in one transaction.
	DrainAll(ctx context.Context, throughSeq int64) error
	Len(ctx context.Context) (int, error)
}

// Cache keeps the last successful response body per read key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte) error
}

// FlushLocker is implemented by queues shared between processes. A replay
// holds the lock from PeekAll through DrainAll so no two replays overlap.
type FlushLocker interface {
	// TryLockFlush returns ok=false without blocking when another replay holds the lock.
	TryLockFlush() (unlock func() error, ok bool, err error)
}
