package callhistory

import (
	"errors"
	"fmt"
)

// Transition errors.
//
// IMPORTANT:
//   - ErrContract means the caller fed us an event that contradicts the
//     record's immutable identity. That is an upstream bug; callers must log
//     it loudly and drop the event, never "repair" the record.
//   - ErrUnhandledTransition means a (status, event) pair fell outside the
//     enumerated tables. The machines are closed: every legal pair is listed,
//     so hitting this is a logic error, not bad input.
var (
	ErrContract            = errors.New("callhistory: transition contract violation")
	ErrUnhandledTransition = errors.New("callhistory: unhandled status transition")
)

// Transition merges one observed event into the call's durable record.
//
// prior is nil the first time any event for (CallID, PeerID) is seen. The
// function is pure: no I/O, no clock; the caller persists the result.
//
// Properties the tables below guarantee (and the package tests pin down):
//   - Delete is absorbing: once Deleted, every further event yields Deleted
//     with an unchanged timestamp.
//   - Accepted/Joined are sticky: no non-delete event regresses them.
//   - Replaying the same event is a no-op (idempotent convergence across
//     devices observing the same call).
func Transition(prior *CallRecord, ev CallEventDetails) (CallRecord, error) {
	if err := assertIdentity(prior, ev); err != nil {
		return CallRecord{}, err
	}

	status, err := transitionStatus(prior, ev)
	if err != nil {
		return CallRecord{}, err
	}

	out := CallRecord{
		CallID:    ev.CallID,
		PeerID:    ev.PeerID,
		RingerID:  mergeRinger(prior, ev),
		Mode:      ev.Mode,
		Type:      ev.Type,
		Direction: ev.Direction,
		Status:    status,
		Timestamp: transitionTimestamp(prior, ev),
	}
	return out, nil
}

// assertIdentity enforces the immutable-identity invariant. Any mismatch is
// a hard contract failure.
func assertIdentity(prior *CallRecord, ev CallEventDetails) error {
	if ev.CallID == "" || ev.PeerID == "" {
		return fmt.Errorf("%w: event missing call_id or peer_id", ErrContract)
	}
	if prior == nil {
		return nil
	}
	if prior.CallID != ev.CallID {
		return fmt.Errorf("%w: call_id mismatch (record %q, event %q)", ErrContract, prior.CallID, ev.CallID)
	}
	if prior.PeerID != ev.PeerID {
		return fmt.Errorf("%w: peer_id mismatch (record %q, event %q)", ErrContract, prior.PeerID, ev.PeerID)
	}
	if prior.Mode != ev.Mode {
		return fmt.Errorf("%w: mode mismatch (record %q, event %q)", ErrContract, prior.Mode, ev.Mode)
	}
	if prior.Type != ev.Type {
		return fmt.Errorf("%w: type mismatch (record %q, event %q)", ErrContract, prior.Type, ev.Type)
	}
	if prior.Direction != ev.Direction {
		return fmt.Errorf("%w: direction mismatch (record %q, event %q)", ErrContract, prior.Direction, ev.Direction)
	}
	// Ringer may be learned late (event without it does not contradict), but
	// once known it never changes.
	if prior.RingerID != "" && ev.RingerID != "" && prior.RingerID != ev.RingerID {
		return fmt.Errorf("%w: ringer_id mismatch (record %q, event %q)", ErrContract, prior.RingerID, ev.RingerID)
	}
	if !StatusValidForMode(prior.Mode, prior.Status) {
		return fmt.Errorf("%w: record status %q invalid for mode %q", ErrContract, prior.Status, prior.Mode)
	}
	return nil
}

func mergeRinger(prior *CallRecord, ev CallEventDetails) string {
	if prior != nil && prior.RingerID != "" {
		return prior.RingerID
	}
	return ev.RingerID
}

func transitionStatus(prior *CallRecord, ev CallEventDetails) (CallStatus, error) {
	// Deletion is checked first and unconditionally: a delete event from
	// either side, or an already-deleted record, wins over everything.
	if ev.Event.IsDelete() {
		return StatusDeleted, nil
	}
	if prior != nil && prior.Status == StatusDeleted {
		return StatusDeleted, nil
	}

	switch ev.Mode {
	case ModeDirect:
		return transitionDirect(priorStatus(prior), ev)
	case ModeGroup:
		return transitionGroup(priorStatus(prior), ev)
	case ModeAdhoc:
		return transitionAdhoc(priorStatus(prior), ev)
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrContract, ev.Mode)
	}
}

// priorStatus returns the prior status or "" for a fresh record.
func priorStatus(prior *CallRecord) CallStatus {
	if prior == nil {
		return ""
	}
	return prior.Status
}

// transitionDirect is the 1:1 call machine.
// States: Pending, Accepted, Missed, Declined (Deleted handled above).
func transitionDirect(prior CallStatus, ev CallEventDetails) (CallStatus, error) {
	// Accepted dominates, from either side.
	if ev.Event == EventAccepted || ev.Event == EventRemoteAccepted {
		return StatusAccepted, nil
	}
	// Sticky: nothing non-delete regresses an accepted call.
	if prior == StatusAccepted {
		return StatusAccepted, nil
	}

	switch ev.Event {
	case EventRemoteNotAccepted:
		// A linked device saw the call go unanswered. If we already know it
		// was declined here, declined stands; otherwise it was missed.
		if prior == StatusDeclined {
			return StatusDeclined, nil
		}
		return StatusMissed, nil
	case EventMissed:
		return StatusMissed, nil
	case EventDeclined:
		return StatusDeclined, nil
	case EventHangup:
		// We hung up: on an incoming ring that is a decline, on our own
		// outgoing ring it means nobody picked up.
		if ev.Direction == DirectionIncoming {
			return StatusDeclined, nil
		}
		return StatusMissed, nil
	case EventRemoteHangup:
		if ev.Direction == DirectionIncoming {
			return StatusMissed, nil
		}
		return StatusDeclined, nil
	case EventStarted, EventRinging:
		return StatusPending, nil
	default:
		return "", fmt.Errorf("%w: direct status %q, event %q", ErrUnhandledTransition, prior, ev.Event)
	}
}

// transitionGroup is the persistent-group call machine.
// States: GenericGroupCall, OutgoingRing, Ringing, Joined, Accepted,
// Missed, Declined (Deleted handled above).
func transitionGroup(prior CallStatus, ev CallEventDetails) (CallStatus, error) {
	// Group calls have no "declined remotely" wire event; receiving one
	// means the normalizer let garbage through.
	if ev.Event == EventRemoteNotAccepted {
		return "", fmt.Errorf("%w: group call received remote not_accepted", ErrUnhandledTransition)
	}

	if ev.Event == EventAccepted || ev.Event == EventRemoteAccepted {
		switch prior {
		case "", StatusGenericGroupCall:
			return StatusJoined, nil
		case StatusRinging, StatusMissed, StatusDeclined:
			return StatusAccepted, nil
		case StatusJoined, StatusOutgoingRing, StatusAccepted:
			return prior, nil
		default:
			return "", fmt.Errorf("%w: group status %q, event %q", ErrUnhandledTransition, prior, ev.Event)
		}
	}
	// Sticky accepted, as for direct calls.
	if prior == StatusAccepted {
		return StatusAccepted, nil
	}

	switch ev.Event {
	case EventStarted:
		return StatusGenericGroupCall, nil
	case EventRinging:
		// Ringing we initiated is tracked separately so the UI can show
		// "you rang the group" rather than an incoming ring.
		if ev.Direction == DirectionOutgoing {
			return StatusOutgoingRing, nil
		}
		return StatusRinging, nil
	case EventMissed:
		return StatusMissed, nil
	case EventDeclined:
		return StatusDeclined, nil
	case EventHangup:
		if ev.Direction == DirectionIncoming {
			return StatusDeclined, nil
		}
		return StatusMissed, nil
	case EventRemoteHangup:
		if ev.Direction == DirectionIncoming {
			return StatusMissed, nil
		}
		return StatusDeclined, nil
	default:
		return "", fmt.Errorf("%w: group status %q, event %q", ErrUnhandledTransition, prior, ev.Event)
	}
}

// transitionAdhoc is the call-link machine. Adhoc calls do not ring, so the
// ringing-family events are accepted for exhaustiveness but collapse into
// Pending; upstream never actually produces them.
func transitionAdhoc(prior CallStatus, ev CallEventDetails) (CallStatus, error) {
	if ev.Event == EventAccepted || ev.Event == EventRemoteAccepted {
		return StatusJoined, nil
	}
	if prior == StatusJoined {
		return StatusJoined, nil
	}

	switch ev.Event {
	case EventStarted, EventRinging, EventMissed, EventDeclined,
		EventHangup, EventRemoteHangup, EventRemoteNotAccepted:
		return StatusPending, nil
	default:
		return "", fmt.Errorf("%w: adhoc status %q, event %q", ErrUnhandledTransition, prior, ev.Event)
	}
}

// transitionTimestamp is the timestamp merge policy, independent of the
// status tables and applied after the status is known.
//
// Once a call reaches a confirmed state (accepted or declined), only a
// corroborating remote signal of the same kind may refine the timestamp.
// This stops a stale local Missed event arriving late from clobbering a
// confirmed Accepted time. Transient states always take the max so clocks
// across devices converge monotonically.
func transitionTimestamp(prior *CallRecord, ev CallEventDetails) int64 {
	if prior == nil {
		return ev.Timestamp
	}
	switch {
	case prior.Status == StatusDeleted:
		return prior.Timestamp
	case isSettledAccepted(prior.Status):
		if ev.Event == EventRemoteAccepted {
			return maxTimestamp(prior.Timestamp, ev.Timestamp)
		}
		return prior.Timestamp
	case prior.Status == StatusDeclined:
		if ev.Event == EventRemoteNotAccepted {
			return maxTimestamp(prior.Timestamp, ev.Timestamp)
		}
		return prior.Timestamp
	default:
		// Pending, GenericGroupCall, OutgoingRing, Ringing, Missed.
		return maxTimestamp(prior.Timestamp, ev.Timestamp)
	}
}

func maxTimestamp(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
