package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"callsync-platform/internal/callhistory"
	"callsync-platform/pkg/utils"
)

// PostgresStore is the durable Repository + MessageStore.
//
// NOTE: This store assumes the following tables exist:
// - call_history   PRIMARY KEY (call_id, peer_id)
// - call_messages  PRIMARY KEY (conversation_id, call_id)
//
// There is no optimistic versioning on call_history: correctness depends on
// the per-conversation serialization in the Reconciler plus the idempotent
// transition tables.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

func (s *PostgresStore) GetCallHistory(ctx context.Context, callID, peerID string) (callhistory.CallRecord, error) {
	const q = `
SELECT call_id, peer_id, ringer_id, mode, type, direction, status, timestamp
FROM call_history
WHERE call_id = $1 AND peer_id = $2
`
	var r callhistory.CallRecord
	if err := s.db.QueryRowContext(ctx, q, callID, peerID).Scan(
		&r.CallID,
		&r.PeerID,
		&r.RingerID,
		&r.Mode,
		&r.Type,
		&r.Direction,
		&r.Status,
		&r.Timestamp,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return callhistory.CallRecord{}, ErrNotFound
		}
		return callhistory.CallRecord{}, err
	}
	return r, nil
}

func (s *PostgresStore) SaveCallHistory(ctx context.Context, r callhistory.CallRecord) error {
	const q = `
INSERT INTO call_history (
  call_id, peer_id, ringer_id, mode, type, direction, status, timestamp, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$9
)
ON CONFLICT (call_id, peer_id)
DO UPDATE SET ringer_id = EXCLUDED.ringer_id,
              status = EXCLUDED.status,
              timestamp = EXCLUDED.timestamp,
              updated_at = EXCLUDED.updated_at
`
	_, err := s.db.ExecContext(ctx, q,
		r.CallID,
		r.PeerID,
		r.RingerID,
		r.Mode,
		r.Type,
		r.Direction,
		r.Status,
		r.Timestamp,
		s.clock().UTC(),
	)
	return err
}

func (s *PostgresStore) ClearCallHistory(ctx context.Context, before callhistory.CallRecord) ([]MessageRef, error) {
	var removed []MessageRef
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const delHistory = `DELETE FROM call_history WHERE timestamp <= $1`
		if _, err := tx.ExecContext(ctx, delHistory, before.Timestamp); err != nil {
			return err
		}

		const delMessages = `
DELETE FROM call_messages
WHERE timestamp <= $1
RETURNING conversation_id, call_id, peer_id
`
		rows, err := tx.QueryContext(ctx, delMessages, before.Timestamp)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var ref MessageRef
			if err := rows.Scan(&ref.ConversationID, &ref.CallID, &ref.PeerID); err != nil {
				return err
			}
			removed = append(removed, ref)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *PostgresStore) MarkAllCallHistoryRead(ctx context.Context, before callhistory.CallRecord) error {
	const q = `
UPDATE call_messages
SET seen_status = $1, updated_at = $2
WHERE seen_status = $3 AND timestamp <= $4
`
	_, err := s.db.ExecContext(ctx, q, SeenStatusSeen, s.clock().UTC(), SeenStatusUnseen, before.Timestamp)
	return err
}

func (s *PostgresStore) MarkAllCallHistoryReadInConversation(ctx context.Context, conversationID string, before callhistory.CallRecord) error {
	const q = `
UPDATE call_messages
SET seen_status = $1, updated_at = $2
WHERE conversation_id = $3 AND seen_status = $4 AND timestamp <= $5
`
	_, err := s.db.ExecContext(ctx, q, SeenStatusSeen, s.clock().UTC(), conversationID, SeenStatusUnseen, before.Timestamp)
	return err
}

func (s *PostgresStore) UpsertCallMessage(ctx context.Context, conversationID string, r callhistory.CallRecord, seen SeenStatus) error {
	// Seen-state merge lives in the upsert so replays cannot regress a
	// message that was already seen (MergeSeen semantics, in SQL).
	const q = `
INSERT INTO call_messages (
  conversation_id, call_id, peer_id, seen_status, timestamp, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6
)
ON CONFLICT (conversation_id, call_id)
DO UPDATE SET timestamp = EXCLUDED.timestamp,
              seen_status = CASE
                WHEN call_messages.seen_status = 'unseen' THEN EXCLUDED.seen_status
                ELSE call_messages.seen_status
              END,
              updated_at = EXCLUDED.updated_at
`
	_, err := s.db.ExecContext(ctx, q, conversationID, r.CallID, r.PeerID, seen, r.Timestamp, s.clock().UTC())
	return err
}

func (s *PostgresStore) RemoveCallMessage(ctx context.Context, conversationID, callID string) error {
	const q = `DELETE FROM call_messages WHERE conversation_id = $1 AND call_id = $2`
	_, err := s.db.ExecContext(ctx, q, conversationID, callID)
	return err
}

// ListCallHistoryRange returns records with from <= timestamp < to,
// including tombstones; callers filter what they do not want.
func (s *PostgresStore) ListCallHistoryRange(ctx context.Context, from, to int64) ([]callhistory.CallRecord, error) {
	const q = `
SELECT call_id, peer_id, ringer_id, mode, type, direction, status, timestamp
FROM call_history
WHERE timestamp >= $1 AND timestamp < $2
ORDER BY timestamp
`
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []callhistory.CallRecord
	for rows.Next() {
		var r callhistory.CallRecord
		if err := rows.Scan(
			&r.CallID,
			&r.PeerID,
			&r.RingerID,
			&r.Mode,
			&r.Type,
			&r.Direction,
			&r.Status,
			&r.Timestamp,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountUnseenMessages(ctx context.Context) (int, error) {
	const q = `SELECT COUNT(*) FROM call_messages WHERE seen_status = $1`
	var n int
	if err := s.db.QueryRowContext(ctx, q, SeenStatusUnseen).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ConversationFor returns the conversation owning a peer, creating it on
// first contact. For adhoc rooms the conversation row exists only to give
// the room a stable serialization key.
func (s *PostgresStore) ConversationFor(ctx context.Context, peerID string, mode callhistory.CallMode) (string, error) {
	const q = `
INSERT INTO conversations (id, peer_id, mode, created_at)
VALUES (gen_random_uuid(), $1, $2, $3)
ON CONFLICT (peer_id, mode) DO UPDATE SET peer_id = EXCLUDED.peer_id
RETURNING id
`
	var id string
	if err := s.db.QueryRowContext(ctx, q, peerID, mode, s.clock().UTC()).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// ListCallHistory returns records for display, newest first.
func (s *PostgresStore) ListCallHistory(ctx context.Context, limit int) ([]callhistory.CallRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `
SELECT call_id, peer_id, ringer_id, mode, type, direction, status, timestamp
FROM call_history
WHERE status <> 'deleted'
ORDER BY timestamp DESC
LIMIT $1
`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []callhistory.CallRecord
	for rows.Next() {
		var r callhistory.CallRecord
		if err := rows.Scan(
			&r.CallID,
			&r.PeerID,
			&r.RingerID,
			&r.Mode,
			&r.Type,
			&r.Direction,
			&r.Status,
			&r.Timestamp,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
