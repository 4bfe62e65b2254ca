package callevents

import (
	"context"
	"errors"
	"fmt"

	"callsync-platform/internal/callhistory"
)

// ErrUnresolvedRinger marks a ringer identity that does not resolve to a
// known contact. Direction for group/adhoc calls hinges on whether the
// ringer is the local user, so an unresolvable ringer is a contract
// violation; we never silently default the direction.
var ErrUnresolvedRinger = errors.New("callevents: ringer does not resolve to a known contact")

// IdentityResolver answers identity questions about ringer/peer ids.
// The ok return is false when the id is not a known contact at all.
type IdentityResolver interface {
	IsLocalUser(ctx context.Context, id string) (isLocal bool, ok bool, err error)
}

// Normalizer converts engine-side group observations that need identity
// resolution. The pure conversions (FromSync, FromCallStateChange) are
// package functions; only ring/join handling needs collaborator state.
type Normalizer struct {
	identity IdentityResolver
}

func NewNormalizer(identity IdentityResolver) *Normalizer {
	return &Normalizer{identity: identity}
}

// resolveDirection derives direction from the ringer: self-as-ringer means
// we placed the call.
func (n *Normalizer) resolveDirection(ctx context.Context, ringerID string) (callhistory.CallDirection, error) {
	if n.identity == nil {
		return "", errors.New("callevents: identity resolver not configured")
	}
	isLocal, ok, err := n.identity.IsLocalUser(ctx, ringerID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnresolvedRinger, ringerID)
	}
	if isLocal {
		return callhistory.DirectionOutgoing, nil
	}
	return callhistory.DirectionIncoming, nil
}

// FromRingUpdate converts a group ring update into normalized event details.
func (n *Normalizer) FromRingUpdate(ctx context.Context, ru RingUpdate) (callhistory.CallEventDetails, error) {
	event, ok := ringReasonEvents[ru.Reason]
	if !ok {
		return callhistory.CallEventDetails{}, fmt.Errorf("%w: ring update reason %q", ErrUnknownWireValue, ru.Reason)
	}
	dir, err := n.resolveDirection(ctx, ru.RingerID)
	if err != nil {
		return callhistory.CallEventDetails{}, err
	}

	return callhistory.CallEventDetails{
		CallID:      ru.CallID,
		PeerID:      ru.GroupID,
		RingerID:    ru.RingerID,
		Mode:        callhistory.ModeGroup,
		Type:        callhistory.TypeGroup,
		Direction:   dir,
		Event:       event,
		Timestamp:   ru.Timestamp,
		EventSource: fmt.Sprintf("ring:%s", ru.Reason),
	}, nil
}

// FromGroupJoinState converts a join-state change into normalized event
// details. Joining/joined count as acceptance; while not joined the call is
// either ringing us or merely known to exist.
func (n *Normalizer) FromGroupJoinState(ctx context.Context, js GroupJoinStateChange) (callhistory.CallEventDetails, error) {
	var event callhistory.CallEvent
	switch js.JoinState {
	case JoinStateJoined, JoinStateJoining:
		event = callhistory.EventAccepted
	case JoinStateNotJoined:
		if js.Ringing {
			event = callhistory.EventRinging
		} else {
			event = callhistory.EventStarted
		}
	default:
		return callhistory.CallEventDetails{}, fmt.Errorf("%w: join state %q", ErrUnknownWireValue, js.JoinState)
	}

	dir, err := n.resolveDirection(ctx, js.RingerID)
	if err != nil {
		return callhistory.CallEventDetails{}, err
	}

	return callhistory.CallEventDetails{
		CallID:      js.CallID,
		PeerID:      js.GroupID,
		RingerID:    js.RingerID,
		Mode:        callhistory.ModeGroup,
		Type:        callhistory.TypeGroup,
		Direction:   dir,
		Event:       event,
		Timestamp:   js.Timestamp,
		EventSource: fmt.Sprintf("join_state:%s", js.JoinState),
	}, nil
}
