package reconcile

import (
	"context"
	"errors"

	"callsync-platform/internal/callhistory"
	"callsync-platform/internal/syncwire"
)

var ErrNotFound = errors.New("reconcile: not found")

// SeenStatus is the read-state of a call's display message.
type SeenStatus string

const (
	SeenStatusUnseen        SeenStatus = "unseen"
	SeenStatusSeen          SeenStatus = "seen"
	SeenStatusNotApplicable SeenStatus = "not_applicable"
)

var seenRank = map[SeenStatus]int{
	SeenStatusUnseen:        0,
	SeenStatusSeen:          1,
	SeenStatusNotApplicable: 1,
}

// MergeSeen takes the "more seen" of the two states: a message never
// regresses from Seen/NotApplicable back to Unseen.
func MergeSeen(prior, next SeenStatus) SeenStatus {
	if prior == "" {
		return next
	}
	if seenRank[next] > seenRank[prior] {
		return next
	}
	return prior
}

// CallMessage is the display message backing one call in a conversation's
// timeline. One message per (ConversationID, CallID); reconciliation
// updates it in place rather than duplicating it.
type CallMessage struct {
	ConversationID string     `json:"conversation_id" db:"conversation_id"`
	CallID         string     `json:"call_id" db:"call_id"`
	PeerID         string     `json:"peer_id" db:"peer_id"`
	SeenStatus     SeenStatus `json:"seen_status" db:"seen_status"`
	Timestamp      int64      `json:"timestamp" db:"timestamp"`
}

// MessageRef identifies a removed display message.
type MessageRef struct {
	ConversationID string `json:"conversation_id"`
	CallID         string `json:"call_id"`
	PeerID         string `json:"peer_id"`
}

// Repository is the durable store for call-history records.
type Repository interface {
	// GetCallHistory returns ErrNotFound when no record exists yet.
	GetCallHistory(ctx context.Context, callID, peerID string) (callhistory.CallRecord, error)
	SaveCallHistory(ctx context.Context, r callhistory.CallRecord) error

	// ClearCallHistory removes every record and message at or before the
	// anchor record's timestamp, returning the removed message refs.
	ClearCallHistory(ctx context.Context, before callhistory.CallRecord) ([]MessageRef, error)

	MarkAllCallHistoryRead(ctx context.Context, before callhistory.CallRecord) error
	MarkAllCallHistoryReadInConversation(ctx context.Context, conversationID string, before callhistory.CallRecord) error
}

// MessageStore maintains the per-call display messages. Upsert is
// idempotent and merges seen-state via MergeSeen.
type MessageStore interface {
	UpsertCallMessage(ctx context.Context, conversationID string, r callhistory.CallRecord, seen SeenStatus) error
	RemoveCallMessage(ctx context.Context, conversationID, callID string) error
}

// ConversationResolver maps a call's peer to its owning conversation. For
// adhoc calls (no conversation) the room id itself serves as the queue key.
type ConversationResolver interface {
	ConversationFor(ctx context.Context, peerID string, mode callhistory.CallMode) (string, error)
}

// Outbox enqueues outbound sync jobs. At-least-once, fire-and-forget.
type Outbox interface {
	EnqueueCallEvent(ctx context.Context, ev syncwire.CallEvent) error
	EnqueueCallLogEvent(ctx context.Context, ev syncwire.CallLogEvent) error
}

// Projection receives UI list notifications.
type Projection interface {
	RecordUpserted(ctx context.Context, r callhistory.CallRecord) error
	RecordRemoved(ctx context.Context, callID, peerID string) error
}

// unseenFor decides whether a freshly reconciled record should surface as
// unseen (notification-worthy): an incoming call we did not pick up, or one
// still pending.
func unseenFor(r callhistory.CallRecord) bool {
	if r.Direction != callhistory.DirectionIncoming {
		return false
	}
	switch r.Mode {
	case callhistory.ModeDirect:
		return r.Status == callhistory.StatusMissed || r.Status == callhistory.StatusPending
	case callhistory.ModeGroup:
		switch r.Status {
		case callhistory.StatusRinging, callhistory.StatusGenericGroupCall, callhistory.StatusMissed:
			return true
		}
	}
	return false
}
