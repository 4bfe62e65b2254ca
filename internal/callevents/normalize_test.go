package callevents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"callsync-platform/internal/callhistory"
	"callsync-platform/internal/syncwire"
)

func TestFromSync_MapsVocabulary(t *testing.T) {
	tests := []struct {
		name     string
		in       SyncCallEvent
		wantMode callhistory.CallMode
		wantType callhistory.CallType
		wantEv   callhistory.CallEvent
	}{
		{
			"audio accepted",
			SyncCallEvent{CallID: "1", PeerID: "p", Type: syncwire.TypeAudio, Direction: syncwire.DirectionIncoming, Event: syncwire.EventAccepted, Timestamp: 10},
			callhistory.ModeDirect, callhistory.TypeAudio, callhistory.EventRemoteAccepted,
		},
		{
			"video not accepted",
			SyncCallEvent{CallID: "1", PeerID: "p", Type: syncwire.TypeVideo, Direction: syncwire.DirectionOutgoing, Event: syncwire.EventNotAccepted, Timestamp: 10},
			callhistory.ModeDirect, callhistory.TypeVideo, callhistory.EventRemoteNotAccepted,
		},
		{
			"group delete",
			SyncCallEvent{CallID: "1", PeerID: "g", Type: syncwire.TypeGroup, Direction: syncwire.DirectionIncoming, Event: syncwire.EventDelete, Timestamp: 10},
			callhistory.ModeGroup, callhistory.TypeGroup, callhistory.EventRemoteDelete,
		},
		{
			"adhoc accepted",
			SyncCallEvent{CallID: "1", PeerID: "r", Type: syncwire.TypeAdhoc, Direction: syncwire.DirectionIncoming, Event: syncwire.EventAccepted, Timestamp: 10},
			callhistory.ModeAdhoc, callhistory.TypeAdhoc, callhistory.EventRemoteAccepted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromSync(tt.in)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got.Mode != tt.wantMode || got.Type != tt.wantType || got.Event != tt.wantEv {
				t.Fatalf("got %q/%q/%q", got.Mode, got.Type, got.Event)
			}
			if got.EventSource != "sync" {
				t.Fatalf("expected sync provenance, got %q", got.EventSource)
			}
		})
	}
}

func TestFromSync_RejectsUnknownValuesByName(t *testing.T) {
	base := SyncCallEvent{CallID: "1", PeerID: "p", Type: syncwire.TypeAudio, Direction: syncwire.DirectionIncoming, Event: syncwire.EventAccepted}

	bad := base
	bad.Type = "smoke_signal"
	if _, err := FromSync(bad); !errors.Is(err, ErrUnknownWireValue) || !strings.Contains(err.Error(), "smoke_signal") {
		t.Fatalf("expected unknown wire value naming offender, got %v", err)
	}

	bad = base
	bad.Direction = "sideways"
	if _, err := FromSync(bad); !errors.Is(err, ErrUnknownWireValue) || !strings.Contains(err.Error(), "sideways") {
		t.Fatalf("expected unknown wire value naming offender, got %v", err)
	}

	// Remote peers cannot emit locally-derived events.
	bad = base
	bad.Event = "missed"
	if _, err := FromSync(bad); !errors.Is(err, ErrUnknownWireValue) {
		t.Fatalf("expected unknown wire value, got %v", err)
	}
}

func TestFromCallStateChange_EndReasonTable(t *testing.T) {
	tests := []struct {
		reason EndReason
		want   callhistory.CallEvent
	}{
		{EndReasonAcceptedOnAnotherDevice, callhistory.EventAccepted},
		{EndReasonLocalHangup, callhistory.EventHangup},
		{EndReasonRemoteHangup, callhistory.EventRemoteHangup},
		{EndReasonRemoteHangupNeedPermission, callhistory.EventRemoteHangup},
		{EndReasonDeclined, callhistory.EventDeclined},
		{EndReasonBusy, callhistory.EventMissed},
		{EndReasonGlare, callhistory.EventMissed},
		{EndReasonTimeout, callhistory.EventMissed},
		{EndReasonConnectionFailure, callhistory.EventMissed},
	}
	for _, tt := range tests {
		c := CallStateChange{
			CallID: "1", PeerID: "p",
			Mode: callhistory.ModeDirect, Type: callhistory.TypeAudio,
			Direction: callhistory.DirectionIncoming,
			State:     StateEnded, EndReason: tt.reason, Timestamp: 5,
		}
		got, err := FromCallStateChange(c)
		if err != nil {
			t.Fatalf("reason %q: unexpected err: %v", tt.reason, err)
		}
		if got.Event != tt.want {
			t.Fatalf("reason %q: expected %q, got %q", tt.reason, tt.want, got.Event)
		}
	}
}

func TestFromCallStateChange_LiveStates(t *testing.T) {
	for state, want := range map[EngineCallState]callhistory.CallEvent{
		StateStarted:  callhistory.EventStarted,
		StateRinging:  callhistory.EventRinging,
		StateAccepted: callhistory.EventAccepted,
	} {
		c := CallStateChange{
			CallID: "1", PeerID: "p",
			Mode: callhistory.ModeDirect, Type: callhistory.TypeVideo,
			Direction: callhistory.DirectionOutgoing, State: state,
		}
		got, err := FromCallStateChange(c)
		if err != nil {
			t.Fatalf("state %q: unexpected err: %v", state, err)
		}
		if got.Event != want {
			t.Fatalf("state %q: expected %q, got %q", state, want, got.Event)
		}
	}

	bad := CallStateChange{CallID: "1", PeerID: "p", State: StateEnded, EndReason: "cosmic_rays"}
	if _, err := FromCallStateChange(bad); !errors.Is(err, ErrUnknownWireValue) {
		t.Fatalf("expected unknown wire value, got %v", err)
	}
}

type stubIdentity struct {
	local map[string]bool
}

func (s stubIdentity) IsLocalUser(_ context.Context, id string) (bool, bool, error) {
	isLocal, ok := s.local[id]
	return isLocal, ok, nil
}

func TestNormalizer_RingUpdateDirectionFromRinger(t *testing.T) {
	n := NewNormalizer(stubIdentity{local: map[string]bool{"me": true, "them": false}})

	got, err := n.FromRingUpdate(context.Background(), RingUpdate{
		CallID: "1", GroupID: "g", RingerID: "them", Reason: RingReasonRequested, Timestamp: 7,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Direction != callhistory.DirectionIncoming || got.Event != callhistory.EventRinging {
		t.Fatalf("got %q/%q", got.Direction, got.Event)
	}

	got, err = n.FromRingUpdate(context.Background(), RingUpdate{
		CallID: "1", GroupID: "g", RingerID: "me", Reason: RingReasonCancelledByRinger, Timestamp: 7,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Direction != callhistory.DirectionOutgoing || got.Event != callhistory.EventMissed {
		t.Fatalf("got %q/%q", got.Direction, got.Event)
	}
}

func TestNormalizer_UnresolvedRingerFails(t *testing.T) {
	n := NewNormalizer(stubIdentity{local: map[string]bool{}})

	_, err := n.FromRingUpdate(context.Background(), RingUpdate{
		CallID: "1", GroupID: "g", RingerID: "stranger", Reason: RingReasonRequested,
	})
	if !errors.Is(err, ErrUnresolvedRinger) {
		t.Fatalf("expected ErrUnresolvedRinger, got %v", err)
	}
}

func TestNormalizer_JoinStateHeuristic(t *testing.T) {
	n := NewNormalizer(stubIdentity{local: map[string]bool{"me": true, "them": false}})

	tests := []struct {
		name    string
		js      GroupJoinStateChange
		want    callhistory.CallEvent
		wantDir callhistory.CallDirection
	}{
		{"joined accepts", GroupJoinStateChange{CallID: "1", GroupID: "g", RingerID: "them", JoinState: JoinStateJoined}, callhistory.EventAccepted, callhistory.DirectionIncoming},
		{"joining accepts", GroupJoinStateChange{CallID: "1", GroupID: "g", RingerID: "me", JoinState: JoinStateJoining}, callhistory.EventAccepted, callhistory.DirectionOutgoing},
		{"not joined ringing", GroupJoinStateChange{CallID: "1", GroupID: "g", RingerID: "them", JoinState: JoinStateNotJoined, Ringing: true}, callhistory.EventRinging, callhistory.DirectionIncoming},
		{"not joined quiet", GroupJoinStateChange{CallID: "1", GroupID: "g", RingerID: "them", JoinState: JoinStateNotJoined}, callhistory.EventStarted, callhistory.DirectionIncoming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.FromGroupJoinState(context.Background(), tt.js)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got.Event != tt.want || got.Direction != tt.wantDir {
				t.Fatalf("got %q/%q, want %q/%q", got.Event, got.Direction, tt.want, tt.wantDir)
			}
		})
	}
}
