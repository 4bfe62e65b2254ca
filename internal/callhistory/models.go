package callhistory

// CallMode distinguishes the three calling surfaces.
//
// - Direct: 1:1 call with a single contact.
// - Group:  multi-party call inside a persistent group.
// - Adhoc:  call-link room with no persistent membership.
type CallMode string

const (
	ModeDirect CallMode = "direct"
	ModeGroup  CallMode = "group"
	ModeAdhoc  CallMode = "adhoc"
)

// CallType is the media/surface type of a call.
type CallType string

const (
	TypeAudio CallType = "audio"
	TypeVideo CallType = "video"
	TypeGroup CallType = "group"
	TypeAdhoc CallType = "adhoc"
)

type CallDirection string

const (
	DirectionIncoming CallDirection = "incoming"
	DirectionOutgoing CallDirection = "outgoing"
)

// CallEvent is the normalized event vocabulary fed to the transition engine.
//
// Local events are derived on this device (calling engine state changes,
// ring updates, user actions). Remote events arrive via sync from linked
// devices and are restricted to the wire vocabulary: a remote peer can say
// "accepted", "not accepted" or "delete" — never "missed" or "hangup",
// those are derived locally.
type CallEvent string

const (
	// Local vocabulary.
	EventStarted      CallEvent = "started"
	EventRinging      CallEvent = "ringing"
	EventAccepted     CallEvent = "accepted"
	EventDeclined     CallEvent = "declined"
	EventHangup       CallEvent = "hangup"
	EventRemoteHangup CallEvent = "remote_hangup"
	EventMissed       CallEvent = "missed"
	EventDelete       CallEvent = "delete"

	// Remote (sync) vocabulary.
	EventRemoteAccepted    CallEvent = "remote_accepted"
	EventRemoteNotAccepted CallEvent = "remote_not_accepted"
	EventRemoteDelete      CallEvent = "remote_delete"
)

// IsDelete reports whether the event tombstones the call, regardless of origin.
func (e CallEvent) IsDelete() bool {
	return e == EventDelete || e == EventRemoteDelete
}

// IsRemote reports whether the event came from a linked device via sync.
func (e CallEvent) IsRemote() bool {
	switch e {
	case EventRemoteAccepted, EventRemoteNotAccepted, EventRemoteDelete:
		return true
	default:
		return false
	}
}

// CallStatus is the accumulated per-call state.
//
// One enum covers all three modes; which values are legal for which mode is
// enforced by StatusValidForMode. The transition engine only ever produces
// mode-legal values.
type CallStatus string

const (
	StatusPending          CallStatus = "pending"
	StatusAccepted         CallStatus = "accepted"
	StatusMissed           CallStatus = "missed"
	StatusDeclined         CallStatus = "declined"
	StatusDeleted          CallStatus = "deleted"
	StatusGenericGroupCall CallStatus = "generic_group_call"
	StatusOutgoingRing     CallStatus = "outgoing_ring"
	StatusRinging          CallStatus = "ringing"
	StatusJoined           CallStatus = "joined"
)

// StatusValidForMode reports whether s is a legal status for mode.
func StatusValidForMode(mode CallMode, s CallStatus) bool {
	switch mode {
	case ModeDirect:
		switch s {
		case StatusPending, StatusAccepted, StatusMissed, StatusDeclined, StatusDeleted:
			return true
		}
	case ModeGroup:
		switch s {
		case StatusGenericGroupCall, StatusOutgoingRing, StatusRinging, StatusJoined,
			StatusAccepted, StatusMissed, StatusDeclined, StatusDeleted:
			return true
		}
	case ModeAdhoc:
		switch s {
		case StatusPending, StatusJoined, StatusDeleted:
			return true
		}
	}
	return false
}

// isSettledAccepted reports whether s is a confirmed accepted/joined status.
// Used by the timestamp merge policy: a settled-accepted timestamp may only
// be refined by a corroborating remote accepted signal.
func isSettledAccepted(s CallStatus) bool {
	return s == StatusAccepted || s == StatusJoined
}

// CallEventDetails is one observed event for a call, after normalization.
// Ephemeral; never persisted.
type CallEventDetails struct {
	// CallID is an opaque 64-bit identifier, string-encoded.
	CallID string `json:"call_id"`

	// PeerID identifies the other party: a user id for direct calls, a group
	// id for group calls, a call-link room id for adhoc calls.
	PeerID string `json:"peer_id"`

	// RingerID is whoever initiated ringing. Present for direct/group,
	// always empty for adhoc.
	RingerID string `json:"ringer_id,omitempty"`

	Mode      CallMode      `json:"mode"`
	Type      CallType      `json:"type"`
	Direction CallDirection `json:"direction"`
	Event     CallEvent     `json:"event"`

	// Timestamp is device-local epoch milliseconds at observation time.
	Timestamp int64 `json:"timestamp"`

	// EventSource is a free-text provenance label for diagnostics only.
	EventSource string `json:"event_source,omitempty"`
}

// CallRecord is the durable call-history row, one per (CallID, PeerID).
//
// Identity fields (CallID, PeerID, Mode, Type, Direction) are fixed for the
// life of the record; the transition engine asserts equality on every event.
// RingerID may be filled in later from an event that knows it, but once set
// it never changes.
type CallRecord struct {
	CallID    string        `json:"call_id" db:"call_id"`
	PeerID    string        `json:"peer_id" db:"peer_id"`
	RingerID  string        `json:"ringer_id,omitempty" db:"ringer_id"`
	Mode      CallMode      `json:"mode" db:"mode"`
	Type      CallType      `json:"type" db:"type"`
	Direction CallDirection `json:"direction" db:"direction"`

	Status CallStatus `json:"status" db:"status"`

	// Timestamp is the call's canonical display timestamp (epoch ms),
	// mutated only under the merge policy in transitions.go.
	Timestamp int64 `json:"timestamp" db:"timestamp"`
}
