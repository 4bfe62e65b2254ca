// Package syncwire defines the wire representation of call-history sync
// traffic shared with linked devices, and the redis-backed transports that
// carry it (outbox) and fan it out to the UI projection.
package syncwire

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"callsync-platform/internal/callhistory"

	"github.com/google/uuid"
)

// Wire vocabulary. Values are part of the sync protocol; keep them stable.
const (
	TypeAudio = "audio_call"
	TypeVideo = "video_call"
	TypeGroup = "group_call"
	TypeAdhoc = "ad_hoc_call"

	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"

	EventAccepted    = "accepted"
	EventNotAccepted = "not_accepted"
	EventDelete      = "delete"
)

// CallLogEvent types for bulk operations.
const (
	LogEventClear                      = "clear"
	LogEventMarkedAsRead               = "marked_as_read"
	LogEventMarkedAsReadInConversation = "marked_as_read_in_conversation"
)

var ErrNotSyncable = errors.New("syncwire: status has no wire representation")

// CallEvent is the outbound per-call sync payload.
type CallEvent struct {
	CallID    uint64 `json:"call_id"`
	PeerID    []byte `json:"peer_id"`
	Type      string `json:"type"`
	Direction string `json:"direction"`
	Event     string `json:"event"`
	Timestamp uint64 `json:"timestamp"`
}

// CallLogEvent describes a bulk call-log operation to linked devices.
type CallLogEvent struct {
	Type      string  `json:"type"`
	Timestamp uint64  `json:"timestamp"`
	PeerID    []byte  `json:"peer_id,omitempty"`
	CallID    *uint64 `json:"call_id,omitempty"`
}

var wireTypes = map[callhistory.CallType]string{
	callhistory.TypeAudio: TypeAudio,
	callhistory.TypeVideo: TypeVideo,
	callhistory.TypeGroup: TypeGroup,
	callhistory.TypeAdhoc: TypeAdhoc,
}

var wireDirections = map[callhistory.CallDirection]string{
	callhistory.DirectionIncoming: DirectionIncoming,
	callhistory.DirectionOutgoing: DirectionOutgoing,
}

// EventForStatus maps a settled status to its outbound wire event.
//
// Only confirmed statuses travel: Pending, Missed, Ringing,
// GenericGroupCall and OutgoingRing have no wire representation and are
// never synced. Group Joined likewise stays local; only an adhoc join is
// reported as accepted.
func EventForStatus(mode callhistory.CallMode, status callhistory.CallStatus) (string, bool) {
	switch status {
	case callhistory.StatusAccepted:
		return EventAccepted, true
	case callhistory.StatusDeclined:
		return EventNotAccepted, true
	case callhistory.StatusDeleted:
		return EventDelete, true
	case callhistory.StatusJoined:
		if mode == callhistory.ModeAdhoc {
			return EventAccepted, true
		}
		return "", false
	default:
		return "", false
	}
}

// EncodePeerID converts a peer identity to wire bytes: 16 raw bytes for
// UUID identities (direct/group), base64-decoded bytes for call-link room
// ids. A UUID decode yielding nothing falls through to the base64 path.
func EncodePeerID(peerID string) ([]byte, error) {
	if peerID == "" {
		return nil, errors.New("syncwire: empty peer id")
	}
	if u, err := uuid.Parse(peerID); err == nil {
		if b := u[:]; len(b) > 0 {
			return b, nil
		}
	}
	raw, err := base64.StdEncoding.DecodeString(peerID)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(peerID)
	}
	if err != nil {
		return nil, fmt.Errorf("syncwire: peer id %q is neither uuid nor base64: %w", peerID, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("syncwire: peer id %q decoded to zero bytes", peerID)
	}
	return raw, nil
}

// BuildCallEvent converts a reconciled record into its outbound sync
// payload. ErrNotSyncable is returned for statuses that never travel.
func BuildCallEvent(r callhistory.CallRecord) (CallEvent, error) {
	event, ok := EventForStatus(r.Mode, r.Status)
	if !ok {
		return CallEvent{}, fmt.Errorf("%w: %s/%s", ErrNotSyncable, r.Mode, r.Status)
	}

	callID, err := strconv.ParseUint(r.CallID, 10, 64)
	if err != nil {
		return CallEvent{}, fmt.Errorf("syncwire: call id %q is not a uint64: %w", r.CallID, err)
	}
	peer, err := EncodePeerID(r.PeerID)
	if err != nil {
		return CallEvent{}, err
	}
	wt, ok := wireTypes[r.Type]
	if !ok {
		return CallEvent{}, fmt.Errorf("syncwire: call type %q has no wire value", r.Type)
	}
	wd, ok := wireDirections[r.Direction]
	if !ok {
		return CallEvent{}, fmt.Errorf("syncwire: direction %q has no wire value", r.Direction)
	}

	return CallEvent{
		CallID:    callID,
		PeerID:    peer,
		Type:      wt,
		Direction: wd,
		Event:     event,
		Timestamp: uint64(r.Timestamp),
	}, nil
}
