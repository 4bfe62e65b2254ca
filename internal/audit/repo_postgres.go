package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events to the audit_events table. The table is
// INSERT-only; no update or delete statements exist here on purpose.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, user_id, type, actor_device_id, actor_device_role, ip_address,
  conversation_id, call_id, anchor_timestamp, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.UserID,
		e.Type,
		e.ActorDeviceID,
		e.ActorDeviceRole,
		e.IPAddress,
		e.ConversationID,
		e.CallID,
		e.AnchorTimestamp,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
