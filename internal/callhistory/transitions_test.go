package callhistory

import (
	"errors"
	"testing"
)

func directEvent(event CallEvent, direction CallDirection, ts int64) CallEventDetails {
	return CallEventDetails{
		CallID:    "123456789",
		PeerID:    "user-a",
		RingerID:  "user-a",
		Mode:      ModeDirect,
		Type:      TypeAudio,
		Direction: direction,
		Event:     event,
		Timestamp: ts,
	}
}

func groupEvent(event CallEvent, direction CallDirection, ts int64) CallEventDetails {
	return CallEventDetails{
		CallID:    "123456789",
		PeerID:    "group-a",
		RingerID:  "user-a",
		Mode:      ModeGroup,
		Type:      TypeGroup,
		Direction: direction,
		Event:     event,
		Timestamp: ts,
	}
}

func adhocEvent(event CallEvent, ts int64) CallEventDetails {
	return CallEventDetails{
		CallID:    "123456789",
		PeerID:    "room-a",
		Mode:      ModeAdhoc,
		Type:      TypeAdhoc,
		Direction: DirectionIncoming,
		Event:     event,
		Timestamp: ts,
	}
}

func recordFor(ev CallEventDetails, status CallStatus, ts int64) *CallRecord {
	return &CallRecord{
		CallID:    ev.CallID,
		PeerID:    ev.PeerID,
		RingerID:  ev.RingerID,
		Mode:      ev.Mode,
		Type:      ev.Type,
		Direction: ev.Direction,
		Status:    status,
		Timestamp: ts,
	}
}

func TestTransition_FreshIncomingRingIsPending(t *testing.T) {
	ev := directEvent(EventRinging, DirectionIncoming, 100)

	got, err := Transition(nil, ev)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("expected pending, got %q", got.Status)
	}
	if got.Timestamp != 100 {
		t.Fatalf("expected timestamp 100, got %d", got.Timestamp)
	}
}

func TestTransition_DirectIncomingHangupDeclines(t *testing.T) {
	ev := directEvent(EventHangup, DirectionIncoming, 150)
	prior := recordFor(ev, StatusPending, 100)

	got, err := Transition(prior, ev)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Status != StatusDeclined {
		t.Fatalf("expected declined, got %q", got.Status)
	}
	if got.Timestamp != 150 {
		t.Fatalf("expected timestamp 150, got %d", got.Timestamp)
	}
}

func TestTransition_DirectTable(t *testing.T) {
	tests := []struct {
		name      string
		prior     CallStatus // "" means no prior record
		event     CallEvent
		direction CallDirection
		want      CallStatus
	}{
		{"accepted wins fresh", "", EventAccepted, DirectionIncoming, StatusAccepted},
		{"remote accepted wins over missed", StatusMissed, EventRemoteAccepted, DirectionIncoming, StatusAccepted},
		{"accepted sticky vs missed", StatusAccepted, EventMissed, DirectionIncoming, StatusAccepted},
		{"accepted sticky vs ringing", StatusAccepted, EventRinging, DirectionIncoming, StatusAccepted},
		{"remote not accepted over pending", StatusPending, EventRemoteNotAccepted, DirectionIncoming, StatusMissed},
		{"remote not accepted keeps declined", StatusDeclined, EventRemoteNotAccepted, DirectionIncoming, StatusDeclined},
		{"missed", StatusPending, EventMissed, DirectionIncoming, StatusMissed},
		{"declined", StatusPending, EventDeclined, DirectionIncoming, StatusDeclined},
		{"outgoing hangup is missed", StatusPending, EventHangup, DirectionOutgoing, StatusMissed},
		{"incoming remote hangup is missed", StatusPending, EventRemoteHangup, DirectionIncoming, StatusMissed},
		{"outgoing remote hangup is declined", StatusPending, EventRemoteHangup, DirectionOutgoing, StatusDeclined},
		{"started is pending", "", EventStarted, DirectionOutgoing, StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := directEvent(tt.event, tt.direction, 200)
			var prior *CallRecord
			if tt.prior != "" {
				prior = recordFor(ev, tt.prior, 100)
			}
			got, err := Transition(prior, ev)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got.Status != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got.Status)
			}
		})
	}
}

func TestTransition_GroupTable(t *testing.T) {
	tests := []struct {
		name      string
		prior     CallStatus
		event     CallEvent
		direction CallDirection
		want      CallStatus
	}{
		{"fresh accepted joins", "", EventAccepted, DirectionIncoming, StatusJoined},
		{"generic accepted joins", StatusGenericGroupCall, EventAccepted, DirectionIncoming, StatusJoined},
		{"ringing accepted", StatusRinging, EventRemoteAccepted, DirectionIncoming, StatusAccepted},
		{"missed accepted", StatusMissed, EventAccepted, DirectionIncoming, StatusAccepted},
		{"declined accepted", StatusDeclined, EventAccepted, DirectionIncoming, StatusAccepted},
		{"joined unchanged by accepted", StatusJoined, EventAccepted, DirectionIncoming, StatusJoined},
		{"outgoing ring unchanged by accepted", StatusOutgoingRing, EventAccepted, DirectionOutgoing, StatusOutgoingRing},
		{"accepted sticky vs missed", StatusAccepted, EventMissed, DirectionIncoming, StatusAccepted},
		{"started is generic", "", EventStarted, DirectionIncoming, StatusGenericGroupCall},
		{"incoming ringing", StatusGenericGroupCall, EventRinging, DirectionIncoming, StatusRinging},
		{"outgoing ringing", StatusGenericGroupCall, EventRinging, DirectionOutgoing, StatusOutgoingRing},
		{"missed", StatusRinging, EventMissed, DirectionIncoming, StatusMissed},
		{"declined", StatusRinging, EventDeclined, DirectionIncoming, StatusDeclined},
		{"incoming hangup declines", StatusRinging, EventHangup, DirectionIncoming, StatusDeclined},
		{"outgoing hangup misses", StatusOutgoingRing, EventHangup, DirectionOutgoing, StatusMissed},
		{"incoming remote hangup misses", StatusRinging, EventRemoteHangup, DirectionIncoming, StatusMissed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := groupEvent(tt.event, tt.direction, 200)
			var prior *CallRecord
			if tt.prior != "" {
				prior = recordFor(ev, tt.prior, 100)
			}
			got, err := Transition(prior, ev)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got.Status != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got.Status)
			}
		})
	}
}

func TestTransition_GroupRejectsRemoteNotAccepted(t *testing.T) {
	ev := groupEvent(EventRemoteNotAccepted, DirectionIncoming, 200)

	_, err := Transition(nil, ev)
	if !errors.Is(err, ErrUnhandledTransition) {
		t.Fatalf("expected ErrUnhandledTransition, got %v", err)
	}
}

func TestTransition_AdhocJoinStickyAndIdempotent(t *testing.T) {
	// Scenario: pending room, local accept at ts 20, then the same event
	// replayed. Replays must converge without moving the timestamp.
	join := adhocEvent(EventAccepted, 20)
	prior := recordFor(join, StatusPending, 10)

	first, err := Transition(prior, join)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if first.Status != StatusJoined || first.Timestamp != 20 {
		t.Fatalf("expected joined@20, got %q@%d", first.Status, first.Timestamp)
	}

	second, err := Transition(&first, join)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if second != first {
		t.Fatalf("replay diverged: %+v vs %+v", second, first)
	}
}

func TestTransition_AdhocNonJoinEventsArePending(t *testing.T) {
	for _, event := range []CallEvent{EventStarted, EventRinging, EventMissed, EventDeclined, EventHangup, EventRemoteHangup} {
		got, err := Transition(nil, adhocEvent(event, 50))
		if err != nil {
			t.Fatalf("event %q: unexpected err: %v", event, err)
		}
		if got.Status != StatusPending {
			t.Fatalf("event %q: expected pending, got %q", event, got.Status)
		}
	}
}

func TestTransition_DeleteIsAbsorbing(t *testing.T) {
	for _, mode := range []CallMode{ModeDirect, ModeGroup, ModeAdhoc} {
		ev := CallEventDetails{
			CallID: "1", PeerID: "p", Mode: mode, Type: TypeAudio,
			Direction: DirectionIncoming, Event: EventMissed, Timestamp: 999,
		}
		prior := &CallRecord{
			CallID: "1", PeerID: "p", Mode: mode, Type: TypeAudio,
			Direction: DirectionIncoming, Status: StatusDeleted, Timestamp: 500,
		}
		got, err := Transition(prior, ev)
		if err != nil {
			t.Fatalf("mode %q: unexpected err: %v", mode, err)
		}
		if got.Status != StatusDeleted {
			t.Fatalf("mode %q: expected deleted, got %q", mode, got.Status)
		}
		if got.Timestamp != 500 {
			t.Fatalf("mode %q: deleted timestamp moved to %d", mode, got.Timestamp)
		}
	}
}

func TestTransition_DeleteEventsTombstone(t *testing.T) {
	for _, event := range []CallEvent{EventDelete, EventRemoteDelete} {
		ev := directEvent(event, DirectionIncoming, 300)
		prior := recordFor(ev, StatusAccepted, 200)
		got, err := Transition(prior, ev)
		if err != nil {
			t.Fatalf("event %q: unexpected err: %v", event, err)
		}
		if got.Status != StatusDeleted {
			t.Fatalf("event %q: expected deleted, got %q", event, got.Status)
		}
	}
}

func TestTransitionTimestamp_AcceptedFrozenUnlessRemoteAccepted(t *testing.T) {
	// Scenario C: group accepted at 500, stale local missed at 400 arrives.
	missed := groupEvent(EventMissed, DirectionIncoming, 400)
	prior := recordFor(missed, StatusAccepted, 500)

	got, err := Transition(prior, missed)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Fatalf("expected sticky accepted, got %q", got.Status)
	}
	if got.Timestamp != 500 {
		t.Fatalf("expected frozen timestamp 500, got %d", got.Timestamp)
	}

	// Scenario D: a remote accepted at 600 corroborates and refines.
	remote := groupEvent(EventRemoteAccepted, DirectionIncoming, 600)
	prior = recordFor(remote, StatusAccepted, 500)

	got, err = Transition(prior, remote)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %q", got.Status)
	}
	if got.Timestamp != 600 {
		t.Fatalf("expected timestamp 600, got %d", got.Timestamp)
	}
}

func TestTransitionTimestamp_DeclinedRefinedOnlyByRemoteNotAccepted(t *testing.T) {
	refine := directEvent(EventRemoteNotAccepted, DirectionIncoming, 700)
	prior := recordFor(refine, StatusDeclined, 600)

	got, err := Transition(prior, refine)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Status != StatusDeclined || got.Timestamp != 700 {
		t.Fatalf("expected declined@700, got %q@%d", got.Status, got.Timestamp)
	}

	stale := directEvent(EventRinging, DirectionIncoming, 900)
	prior = recordFor(stale, StatusDeclined, 600)
	got, err = Transition(prior, stale)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Timestamp != 600 {
		t.Fatalf("expected frozen timestamp 600, got %d", got.Timestamp)
	}
}

func TestTransitionTimestamp_TransientStatesTakeMax(t *testing.T) {
	transient := []CallStatus{StatusPending, StatusMissed}
	for _, status := range transient {
		// Newer event moves forward.
		newer := directEvent(EventRinging, DirectionIncoming, 300)
		got, err := Transition(recordFor(newer, status, 200), newer)
		if err != nil {
			t.Fatalf("status %q: unexpected err: %v", status, err)
		}
		if got.Timestamp != 300 {
			t.Fatalf("status %q: expected 300, got %d", status, got.Timestamp)
		}

		// Older event never regresses.
		older := directEvent(EventRinging, DirectionIncoming, 100)
		got, err = Transition(recordFor(older, status, 200), older)
		if err != nil {
			t.Fatalf("status %q: unexpected err: %v", status, err)
		}
		if got.Timestamp != 200 {
			t.Fatalf("status %q: expected 200, got %d", status, got.Timestamp)
		}
	}

	group := []CallStatus{StatusGenericGroupCall, StatusOutgoingRing, StatusRinging}
	for _, status := range group {
		older := groupEvent(EventStarted, DirectionIncoming, 100)
		got, err := Transition(recordFor(older, status, 200), older)
		if err != nil {
			t.Fatalf("status %q: unexpected err: %v", status, err)
		}
		if got.Timestamp != 200 {
			t.Fatalf("status %q: expected 200, got %d", status, got.Timestamp)
		}
	}
}

func TestTransition_IdentityMismatchFails(t *testing.T) {
	base := directEvent(EventRinging, DirectionIncoming, 100)
	prior := recordFor(base, StatusPending, 100)

	mutations := []func(*CallEventDetails){
		func(ev *CallEventDetails) { ev.CallID = "other" },
		func(ev *CallEventDetails) { ev.PeerID = "other" },
		func(ev *CallEventDetails) { ev.Mode = ModeGroup },
		func(ev *CallEventDetails) { ev.Type = TypeVideo },
		func(ev *CallEventDetails) { ev.Direction = DirectionOutgoing },
		func(ev *CallEventDetails) { ev.RingerID = "other" },
	}
	for i, mutate := range mutations {
		ev := base
		mutate(&ev)
		if _, err := Transition(prior, ev); !errors.Is(err, ErrContract) {
			t.Fatalf("mutation %d: expected ErrContract, got %v", i, err)
		}
	}
}

func TestTransition_RingerLearnedLate(t *testing.T) {
	ev := directEvent(EventRinging, DirectionIncoming, 100)
	prior := recordFor(ev, StatusPending, 100)
	prior.RingerID = ""

	got, err := Transition(prior, ev)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.RingerID != ev.RingerID {
		t.Fatalf("expected ringer filled in, got %q", got.RingerID)
	}

	// And an event without a ringer does not erase a known one.
	ev.RingerID = ""
	prior = recordFor(directEvent(EventRinging, DirectionIncoming, 100), StatusPending, 100)
	got, err = Transition(prior, ev)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.RingerID != "user-a" {
		t.Fatalf("expected ringer kept, got %q", got.RingerID)
	}
}

func TestTransition_Idempotent(t *testing.T) {
	events := []CallEventDetails{
		directEvent(EventRinging, DirectionIncoming, 100),
		directEvent(EventAccepted, DirectionIncoming, 100),
		groupEvent(EventRinging, DirectionIncoming, 100),
		groupEvent(EventRemoteAccepted, DirectionIncoming, 100),
		adhocEvent(EventAccepted, 100),
		directEvent(EventDelete, DirectionIncoming, 100),
	}
	for _, ev := range events {
		first, err := Transition(nil, ev)
		if err != nil {
			t.Fatalf("event %q: unexpected err: %v", ev.Event, err)
		}
		second, err := Transition(&first, ev)
		if err != nil {
			t.Fatalf("event %q replay: unexpected err: %v", ev.Event, err)
		}
		if second != first {
			t.Fatalf("event %q: replay diverged: %+v vs %+v", ev.Event, second, first)
		}
	}
}

func TestStatusValidForMode(t *testing.T) {
	if StatusValidForMode(ModeDirect, StatusJoined) {
		t.Fatalf("joined must not be a direct status")
	}
	if StatusValidForMode(ModeAdhoc, StatusRinging) {
		t.Fatalf("ringing must not be an adhoc status")
	}
	if !StatusValidForMode(ModeGroup, StatusOutgoingRing) {
		t.Fatalf("outgoing_ring must be a group status")
	}
	if !StatusValidForMode(ModeAdhoc, StatusDeleted) {
		t.Fatalf("deleted must be valid for every mode")
	}
}
