package callevents

import (
	"errors"
	"fmt"

	"callsync-platform/internal/callhistory"
	"callsync-platform/internal/syncwire"
)

// ErrUnknownWireValue marks a sync payload carrying an enum value outside
// the supported vocabulary. The whole event is rejected before it reaches
// the transition engine; we never guess at what the sender meant.
var ErrUnknownWireValue = errors.New("callevents: unknown wire value")

// SyncCallEvent is the inbound wire payload describing a call event observed
// on a linked device.
type SyncCallEvent struct {
	// CallID is the call's 64-bit identifier, string-encoded.
	CallID string `json:"call_id"`

	// PeerID is the conversation/group/room identity the sender resolved.
	PeerID string `json:"peer_id"`

	Type      string `json:"type"`
	Direction string `json:"direction"`
	Event     string `json:"event"`

	// Timestamp is the sender's epoch-ms observation time.
	Timestamp int64 `json:"timestamp"`
}

// Mapping tables from the shared wire vocabulary (syncwire) to the
// normalized domain. These are protocol fixtures, not derivable logic.
var wireTypes = map[string]struct {
	callType callhistory.CallType
	mode     callhistory.CallMode
}{
	syncwire.TypeAudio: {callhistory.TypeAudio, callhistory.ModeDirect},
	syncwire.TypeVideo: {callhistory.TypeVideo, callhistory.ModeDirect},
	syncwire.TypeGroup: {callhistory.TypeGroup, callhistory.ModeGroup},
	syncwire.TypeAdhoc: {callhistory.TypeAdhoc, callhistory.ModeAdhoc},
}

var wireDirections = map[string]callhistory.CallDirection{
	syncwire.DirectionIncoming: callhistory.DirectionIncoming,
	syncwire.DirectionOutgoing: callhistory.DirectionOutgoing,
}

// wireEvents maps to the remote-event vocabulary only. Remote peers cannot
// claim Missed/Declined/Hangup directly; those are derived locally.
var wireEvents = map[string]callhistory.CallEvent{
	syncwire.EventAccepted:    callhistory.EventRemoteAccepted,
	syncwire.EventNotAccepted: callhistory.EventRemoteNotAccepted,
	syncwire.EventDelete:      callhistory.EventRemoteDelete,
}

// FromSync validates and converts a wire sync payload into normalized event
// details. Unknown enum values fail with an error naming the offending value.
func FromSync(w SyncCallEvent) (callhistory.CallEventDetails, error) {
	if w.CallID == "" {
		return callhistory.CallEventDetails{}, fmt.Errorf("%w: empty call_id", ErrUnknownWireValue)
	}
	if w.PeerID == "" {
		return callhistory.CallEventDetails{}, fmt.Errorf("%w: empty peer_id", ErrUnknownWireValue)
	}
	tm, ok := wireTypes[w.Type]
	if !ok {
		return callhistory.CallEventDetails{}, fmt.Errorf("%w: call type %q", ErrUnknownWireValue, w.Type)
	}
	dir, ok := wireDirections[w.Direction]
	if !ok {
		return callhistory.CallEventDetails{}, fmt.Errorf("%w: direction %q", ErrUnknownWireValue, w.Direction)
	}
	event, ok := wireEvents[w.Event]
	if !ok {
		return callhistory.CallEventDetails{}, fmt.Errorf("%w: event %q", ErrUnknownWireValue, w.Event)
	}

	return callhistory.CallEventDetails{
		CallID:      w.CallID,
		PeerID:      w.PeerID,
		Mode:        tm.mode,
		Type:        tm.callType,
		Direction:   dir,
		Event:       event,
		Timestamp:   w.Timestamp,
		EventSource: "sync",
	}, nil
}

// EngineCallState is the calling engine's coarse call state as reported to
// the normalizer.
type EngineCallState string

const (
	StateStarted  EngineCallState = "started"
	StateRinging  EngineCallState = "ringing"
	StateAccepted EngineCallState = "accepted"
	StateEnded    EngineCallState = "ended"
)

// EndReason is why the engine ended a call. The reason set mirrors the
// engine's vocabulary; the table below fixes how each collapses into the
// local event vocabulary.
type EndReason string

const (
	EndReasonAcceptedOnAnotherDevice    EndReason = "accepted_on_another_device"
	EndReasonLocalHangup                EndReason = "local_hangup"
	EndReasonRemoteHangup               EndReason = "remote_hangup"
	EndReasonRemoteHangupNeedPermission EndReason = "remote_hangup_need_permission"
	EndReasonDeclined                   EndReason = "declined"
	EndReasonDeclinedOnAnotherDevice    EndReason = "declined_on_another_device"
	EndReasonBusy                       EndReason = "busy"
	EndReasonBusyOnAnotherDevice        EndReason = "busy_on_another_device"
	EndReasonGlare                      EndReason = "glare"
	EndReasonReceivedOfferExpired       EndReason = "received_offer_expired"
	EndReasonReceivedOfferWhileActive   EndReason = "received_offer_while_active"
	EndReasonTimeout                    EndReason = "timeout"
	EndReasonSignalingFailure           EndReason = "signaling_failure"
	EndReasonConnectionFailure          EndReason = "connection_failure"
	EndReasonInternalFailure            EndReason = "internal_failure"
)

var endReasonEvents = map[EndReason]callhistory.CallEvent{
	EndReasonAcceptedOnAnotherDevice:    callhistory.EventAccepted,
	EndReasonLocalHangup:                callhistory.EventHangup,
	EndReasonRemoteHangup:               callhistory.EventRemoteHangup,
	EndReasonRemoteHangupNeedPermission: callhistory.EventRemoteHangup,
	EndReasonDeclined:                   callhistory.EventDeclined,
	EndReasonDeclinedOnAnotherDevice:    callhistory.EventMissed,
	EndReasonBusy:                       callhistory.EventMissed,
	EndReasonBusyOnAnotherDevice:        callhistory.EventMissed,
	EndReasonGlare:                      callhistory.EventMissed,
	EndReasonReceivedOfferExpired:       callhistory.EventMissed,
	EndReasonReceivedOfferWhileActive:   callhistory.EventMissed,
	EndReasonTimeout:                    callhistory.EventMissed,
	EndReasonSignalingFailure:           callhistory.EventMissed,
	EndReasonConnectionFailure:          callhistory.EventMissed,
	EndReasonInternalFailure:            callhistory.EventMissed,
}

// CallStateChange is a local calling-engine transition for a direct or
// adhoc call. State carries the live transition; EndReason is consulted
// only when State is ended.
type CallStateChange struct {
	CallID   string
	PeerID   string
	RingerID string

	Mode      callhistory.CallMode
	Type      callhistory.CallType
	Direction callhistory.CallDirection

	State     EngineCallState
	EndReason EndReason

	Timestamp int64
}

// FromCallStateChange converts a local engine transition into normalized
// event details.
func FromCallStateChange(c CallStateChange) (callhistory.CallEventDetails, error) {
	var event callhistory.CallEvent
	switch c.State {
	case StateStarted:
		event = callhistory.EventStarted
	case StateRinging:
		event = callhistory.EventRinging
	case StateAccepted:
		event = callhistory.EventAccepted
	case StateEnded:
		var ok bool
		event, ok = endReasonEvents[c.EndReason]
		if !ok {
			return callhistory.CallEventDetails{}, fmt.Errorf("%w: end reason %q", ErrUnknownWireValue, c.EndReason)
		}
	default:
		return callhistory.CallEventDetails{}, fmt.Errorf("%w: engine state %q", ErrUnknownWireValue, c.State)
	}

	return callhistory.CallEventDetails{
		CallID:      c.CallID,
		PeerID:      c.PeerID,
		RingerID:    c.RingerID,
		Mode:        c.Mode,
		Type:        c.Type,
		Direction:   c.Direction,
		Event:       event,
		Timestamp:   c.Timestamp,
		EventSource: fmt.Sprintf("engine:%s", c.State),
	}, nil
}

// RingUpdateReason is the engine's group-ring vocabulary.
type RingUpdateReason string

const (
	RingReasonRequested               RingUpdateReason = "requested"
	RingReasonAcceptedOnAnotherDevice RingUpdateReason = "accepted_on_another_device"
	RingReasonBusyLocally             RingUpdateReason = "busy_locally"
	RingReasonBusyOnAnotherDevice     RingUpdateReason = "busy_on_another_device"
	RingReasonCancelledByRinger       RingUpdateReason = "cancelled_by_ringer"
	RingReasonDeclinedOnAnotherDevice RingUpdateReason = "declined_on_another_device"
	RingReasonExpired                 RingUpdateReason = "expired"
)

var ringReasonEvents = map[RingUpdateReason]callhistory.CallEvent{
	RingReasonRequested:               callhistory.EventRinging,
	RingReasonAcceptedOnAnotherDevice: callhistory.EventAccepted,
	RingReasonBusyLocally:             callhistory.EventMissed,
	RingReasonBusyOnAnotherDevice:     callhistory.EventMissed,
	RingReasonCancelledByRinger:       callhistory.EventMissed,
	RingReasonDeclinedOnAnotherDevice: callhistory.EventMissed,
	RingReasonExpired:                 callhistory.EventMissed,
}

// RingUpdate is a group-call ring notification from the engine.
type RingUpdate struct {
	CallID   string
	GroupID  string
	RingerID string
	Reason   RingUpdateReason

	Timestamp int64
}

// GroupJoinState is the local membership state in a group call.
type GroupJoinState string

const (
	JoinStateNotJoined GroupJoinState = "not_joined"
	JoinStateJoining   GroupJoinState = "joining"
	JoinStateJoined    GroupJoinState = "joined"
)

// GroupJoinStateChange reports a change of the local user's join state for
// an ongoing group call.
type GroupJoinStateChange struct {
	CallID   string
	GroupID  string
	RingerID string

	JoinState GroupJoinState

	// Ringing is whether the call is actively ringing us while not joined.
	Ringing bool

	Timestamp int64
}
