package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"callsync-platform/internal/callhistory"
	"callsync-platform/internal/syncwire"
)

// Reconciler merges observed call events into durable call history.
//
// All collaborators are injected; the transition engine itself stays pure
// and unit-testable. Failure policy (per taxonomy):
//   - transition failures: logged, event dropped, nothing written;
//   - persistence failures: logged, operation abandoned for this event;
//   - projection/outbox failures: logged and ignored — at-least-once
//     re-delivery plus sticky transitions give eventual convergence.
type Reconciler struct {
	repo          Repository
	messages      MessageStore
	conversations ConversationResolver
	outbox        Outbox
	projection    Projection

	queue *KeyedQueue
	log   *slog.Logger
	clock func() time.Time
}

func NewReconciler(
	repo Repository,
	messages MessageStore,
	conversations ConversationResolver,
	outbox Outbox,
	projection Projection,
	log *slog.Logger,
) (*Reconciler, error) {
	if repo == nil || messages == nil || conversations == nil {
		return nil, errors.New("reconcile: repository, message store and conversation resolver are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		repo:          repo,
		messages:      messages,
		conversations: conversations,
		outbox:        outbox,
		projection:    projection,
		queue:         NewKeyedQueue(),
		log:           log,
		clock:         time.Now,
	}, nil
}

// Reconcile applies one normalized event. Events for calls in the same
// conversation are strictly serialized in arrival order; adhoc events are
// serialized under their room id the same way.
func (s *Reconciler) Reconcile(ctx context.Context, ev callhistory.CallEventDetails) error {
	conversationID, err := s.conversations.ConversationFor(ctx, ev.PeerID, ev.Mode)
	if err != nil {
		return fmt.Errorf("reconcile: resolve conversation for peer %q: %w", ev.PeerID, err)
	}
	return s.queue.Do(ctx, conversationID, func(ctx context.Context) error {
		return s.reconcile(ctx, conversationID, ev)
	})
}

func (s *Reconciler) reconcile(ctx context.Context, conversationID string, ev callhistory.CallEventDetails) error {
	log := s.log.With("call_id", ev.CallID, "peer_id", ev.PeerID, "event", ev.Event, "source", ev.EventSource)

	var prior *callhistory.CallRecord
	existing, err := s.repo.GetCallHistory(ctx, ev.CallID, ev.PeerID)
	switch {
	case err == nil:
		prior = &existing
	case errors.Is(err, ErrNotFound):
		// First event for this call.
	default:
		log.Error("call history load failed", "err", err)
		return err
	}

	record, err := callhistory.Transition(prior, ev)
	if err != nil {
		// Contract or exhaustiveness failure: upstream bug. Drop the event;
		// the prior record stays untouched.
		log.Error("transition failed, event dropped", "err", err)
		return err
	}
	changed := prior == nil || *prior != record

	if err := s.repo.SaveCallHistory(ctx, record); err != nil {
		log.Error("call history save failed", "err", err)
		return err
	}

	if record.Status == callhistory.StatusDeleted {
		if err := s.messages.RemoveCallMessage(ctx, conversationID, record.CallID); err != nil {
			log.Error("call message removal failed", "err", err)
			return err
		}
		s.notifyRemoved(ctx, log, record.CallID, record.PeerID)
	} else {
		seen := SeenStatusNotApplicable
		if unseenFor(record) {
			seen = SeenStatusUnseen
		}
		if err := s.messages.UpsertCallMessage(ctx, conversationID, record, seen); err != nil {
			log.Error("call message upsert failed", "err", err)
			return err
		}
		s.notifyUpserted(ctx, log, record)
	}

	// Only local observations are echoed to linked devices, and only when
	// they changed something syncable. Remote events never bounce back.
	if changed && !ev.Event.IsRemote() {
		s.enqueueCallEventSync(ctx, log, record)
	}
	return nil
}

func (s *Reconciler) enqueueCallEventSync(ctx context.Context, log *slog.Logger, record callhistory.CallRecord) {
	if s.outbox == nil {
		return
	}
	wireEv, err := syncwire.BuildCallEvent(record)
	if errors.Is(err, syncwire.ErrNotSyncable) {
		return
	}
	if err != nil {
		log.Error("sync event build failed", "err", err)
		return
	}
	if err := s.outbox.EnqueueCallEvent(ctx, wireEv); err != nil {
		log.Error("sync event enqueue failed", "err", err)
	}
}

func (s *Reconciler) notifyUpserted(ctx context.Context, log *slog.Logger, record callhistory.CallRecord) {
	if s.projection == nil {
		return
	}
	if err := s.projection.RecordUpserted(ctx, record); err != nil {
		log.Warn("projection upsert notify failed", "err", err)
	}
}

func (s *Reconciler) notifyRemoved(ctx context.Context, log *slog.Logger, callID, peerID string) {
	if s.projection == nil {
		return
	}
	if err := s.projection.RecordRemoved(ctx, callID, peerID); err != nil {
		log.Warn("projection remove notify failed", "err", err)
	}
}

// ClearAll removes every call at or before the anchor record and tells
// linked devices to do the same.
func (s *Reconciler) ClearAll(ctx context.Context, before callhistory.CallRecord) error {
	removed, err := s.repo.ClearCallHistory(ctx, before)
	if err != nil {
		s.log.Error("clear call history failed", "err", err)
		return err
	}
	for _, ref := range removed {
		s.notifyRemoved(ctx, s.log, ref.CallID, ref.PeerID)
	}
	s.enqueueLogEventSync(ctx, syncwire.LogEventClear, before)
	return nil
}

// MarkAllRead marks every unseen call message at or before the anchor as
// seen.
func (s *Reconciler) MarkAllRead(ctx context.Context, before callhistory.CallRecord) error {
	if err := s.repo.MarkAllCallHistoryRead(ctx, before); err != nil {
		s.log.Error("mark all read failed", "err", err)
		return err
	}
	s.enqueueLogEventSync(ctx, syncwire.LogEventMarkedAsRead, before)
	return nil
}

// MarkAllReadInConversation is MarkAllRead scoped to one conversation.
func (s *Reconciler) MarkAllReadInConversation(ctx context.Context, conversationID string, before callhistory.CallRecord) error {
	if err := s.repo.MarkAllCallHistoryReadInConversation(ctx, conversationID, before); err != nil {
		s.log.Error("mark conversation read failed", "err", err, "conversation_id", conversationID)
		return err
	}
	s.enqueueLogEventSync(ctx, syncwire.LogEventMarkedAsReadInConversation, before)
	return nil
}

// enqueueLogEventSync reports a bulk operation to linked devices.
// Fire-and-forget: failures are logged and the bulk operation stands.
func (s *Reconciler) enqueueLogEventSync(ctx context.Context, logType string, before callhistory.CallRecord) {
	if s.outbox == nil {
		return
	}
	ev := syncwire.CallLogEvent{
		Type:      logType,
		Timestamp: uint64(before.Timestamp),
	}
	if before.PeerID != "" {
		if peer, err := syncwire.EncodePeerID(before.PeerID); err == nil {
			ev.PeerID = peer
		} else {
			s.log.Warn("log event peer encode failed", "err", err)
		}
	}
	if before.CallID != "" {
		if id, err := strconv.ParseUint(before.CallID, 10, 64); err == nil {
			ev.CallID = &id
		} else {
			s.log.Warn("log event call id parse failed", "err", err, "call_id", before.CallID)
		}
	}
	if err := s.outbox.EnqueueCallLogEvent(ctx, ev); err != nil {
		s.log.Error("log event enqueue failed", "err", err, "type", logType)
	}
}
