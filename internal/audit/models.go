package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - user_id is required; bulk history operations always have an owner.
// - actor and ip capture are best-effort; do not block critical flows on audit failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Event struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorDeviceID is the device that issued the operation.
	ActorDeviceID string `json:"actor_device_id,omitempty" db:"actor_device_id"`
	// ActorDeviceRole is the device's capability at the time.
	ActorDeviceRole string `json:"actor_device_role,omitempty" db:"actor_device_role"`

	// IPAddress should capture the original client IP when available.
	// Prefer X-Forwarded-For processing at the edge; store the resolved client IP here.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	ConversationID string `json:"conversation_id,omitempty" db:"conversation_id"`
	CallID         string `json:"call_id,omitempty" db:"call_id"`

	// AnchorTimestamp is the epoch-ms cutoff a bulk operation applied to.
	AnchorTimestamp int64 `json:"anchor_timestamp,omitempty" db:"anchor_timestamp"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeHistoryCleared EventType = "history_cleared"
	EventTypeMarkedRead     EventType = "marked_read"
)
