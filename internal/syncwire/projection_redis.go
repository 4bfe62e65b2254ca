package syncwire

import (
	"context"
	"encoding/json"
	"fmt"

	"callsync-platform/internal/callhistory"

	"github.com/redis/go-redis/v9"
)

// RedisProjection publishes call-history changes on a pub/sub channel for
// the UI list projection. Notifications are best-effort: a missed publish
// means a stale list until the next change, never inconsistent storage.
type RedisProjection struct {
	rdb     *redis.Client
	channel string
}

func NewRedisProjection(rdb *redis.Client, channel string) *RedisProjection {
	if channel == "" {
		channel = "callsync:projection"
	}
	return &RedisProjection{rdb: rdb, channel: channel}
}

type projectionNotice struct {
	Op     string                  `json:"op"` // "upsert" or "remove"
	CallID string                  `json:"call_id"`
	PeerID string                  `json:"peer_id"`
	Record *callhistory.CallRecord `json:"record,omitempty"`
}

// RecordUpserted notifies the projection that a record was created/updated.
func (p *RedisProjection) RecordUpserted(ctx context.Context, r callhistory.CallRecord) error {
	return p.publish(ctx, projectionNotice{Op: "upsert", CallID: r.CallID, PeerID: r.PeerID, Record: &r})
}

// RecordRemoved notifies the projection that a record's display message is gone.
func (p *RedisProjection) RecordRemoved(ctx context.Context, callID, peerID string) error {
	return p.publish(ctx, projectionNotice{Op: "remove", CallID: callID, PeerID: peerID})
}

func (p *RedisProjection) publish(ctx context.Context, n projectionNotice) error {
	if p.rdb == nil {
		return fmt.Errorf("syncwire: redis client is nil")
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}
