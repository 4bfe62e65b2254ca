package reconcile

import (
	"context"
	"sync"
)

// KeyedQueue serializes work per key: jobs sharing a key run one at a time
// in enqueue order; jobs for different keys interleave freely. This is the
// only exclusion between "read prior record" and "write new record", so
// every reconciliation for a conversation must funnel through its key.
type KeyedQueue struct {
	mu     sync.Mutex
	queues map[string][]*queuedTask
}

type queuedTask struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

func NewKeyedQueue() *KeyedQueue {
	return &KeyedQueue{queues: make(map[string][]*queuedTask)}
}

// Do enqueues fn under key and blocks until it has run, returning its
// error. A job that has started is never cancelled; ctx cancellation only
// stops the caller from waiting.
func (q *KeyedQueue) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	t := &queuedTask{ctx: ctx, fn: fn, done: make(chan error, 1)}

	q.mu.Lock()
	_, active := q.queues[key]
	q.queues[key] = append(q.queues[key], t)
	q.mu.Unlock()

	if !active {
		go q.drain(key)
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain owns the key until its queue empties. Invariant: the key is present
// in queues exactly while a drainer is responsible for it, so Do never
// starts a second drainer for the same key.
func (q *KeyedQueue) drain(key string) {
	for {
		q.mu.Lock()
		t := q.queues[key][0]
		q.mu.Unlock()

		t.done <- t.fn(t.ctx)

		q.mu.Lock()
		q.queues[key] = q.queues[key][1:]
		if len(q.queues[key]) == 0 {
			delete(q.queues, key)
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()
	}
}
