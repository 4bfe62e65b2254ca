package syncwire

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOutbox enqueues outbound sync jobs onto a redis list consumed by the
// delivery worker. Delivery is at-least-once; enqueueing is fire-and-forget
// from the reconciler's perspective.
//
// A short-lived dedupe guard collapses rapid re-enqueues of the same
// payload (replayed events reconcile to identical records). The guard is an
// optimization only: consumers must still tolerate duplicates.
type RedisOutbox struct {
	rdb *redis.Client

	listKey   string
	dedupeTTL time.Duration
}

const defaultDedupeTTL = 30 * time.Second

func NewRedisOutbox(rdb *redis.Client, listKey string) *RedisOutbox {
	if listKey == "" {
		listKey = "callsync:outbox"
	}
	return &RedisOutbox{rdb: rdb, listKey: listKey, dedupeTTL: defaultDedupeTTL}
}

// WithDedupeTTL overrides the dedupe guard window.
func (o *RedisOutbox) WithDedupeTTL(d time.Duration) *RedisOutbox {
	if d > 0 {
		o.dedupeTTL = d
	}
	return o
}

var outboxEnqueueScript = redis.NewScript(`
-- KEYS[1] = dedupe key
-- KEYS[2] = outbox list key
-- ARGV[1] = dedupe ttl_ms (int)
-- ARGV[2] = payload
--
-- Returns:
--  1 if enqueued
--  0 if suppressed as a duplicate
if redis.call('SET', KEYS[1], '1', 'NX', 'PX', ARGV[1]) then
  redis.call('LPUSH', KEYS[2], ARGV[2])
  return 1
end
return 0
`)

// EnqueueCallEvent queues one per-call sync event.
func (o *RedisOutbox) EnqueueCallEvent(ctx context.Context, ev CallEvent) error {
	payload, err := json.Marshal(envelope{Kind: "call_event", CallEvent: &ev})
	if err != nil {
		return err
	}
	dedupe := fmt.Sprintf("%s:dedupe:%d:%s:%d", o.listKey, ev.CallID, ev.Event, ev.Timestamp)
	return o.enqueue(ctx, dedupe, payload)
}

// EnqueueCallLogEvent queues one bulk-operation sync event.
func (o *RedisOutbox) EnqueueCallLogEvent(ctx context.Context, ev CallLogEvent) error {
	payload, err := json.Marshal(envelope{Kind: "call_log_event", CallLogEvent: &ev})
	if err != nil {
		return err
	}
	dedupe := fmt.Sprintf("%s:dedupe:log:%s:%d", o.listKey, ev.Type, ev.Timestamp)
	return o.enqueue(ctx, dedupe, payload)
}

func (o *RedisOutbox) enqueue(ctx context.Context, dedupeKey string, payload []byte) error {
	if o.rdb == nil {
		return fmt.Errorf("syncwire: redis client is nil")
	}
	_, err := outboxEnqueueScript.Run(ctx, o.rdb, []string{dedupeKey, o.listKey}, o.dedupeTTL.Milliseconds(), payload).Result()
	return err
}

// envelope wraps the two payload kinds on the outbox list.
type envelope struct {
	Kind         string        `json:"kind"`
	CallEvent    *CallEvent    `json:"call_event,omitempty"`
	CallLogEvent *CallLogEvent `json:"call_log_event,omitempty"`
}
