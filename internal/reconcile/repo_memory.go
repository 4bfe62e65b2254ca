package reconcile

import (
	"context"
	"sort"
	"sync"

	"callsync-platform/internal/callhistory"
)

// MemoryStore is an in-memory Repository + MessageStore useful for tests
// and local development. It is not intended for production use.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[recordKey]callhistory.CallRecord
	messages map[messageKey]CallMessage
}

type recordKey struct{ callID, peerID string }
type messageKey struct{ conversationID, callID string }

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[recordKey]callhistory.CallRecord),
		messages: make(map[messageKey]CallMessage),
	}
}

func (m *MemoryStore) GetCallHistory(_ context.Context, callID, peerID string) (callhistory.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordKey{callID, peerID}]
	if !ok {
		return callhistory.CallRecord{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) SaveCallHistory(_ context.Context, r callhistory.CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey{r.CallID, r.PeerID}] = r
	return nil
}

func (m *MemoryStore) ClearCallHistory(_ context.Context, before callhistory.CallRecord) ([]MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, r := range m.records {
		if r.Timestamp <= before.Timestamp {
			delete(m.records, k)
		}
	}
	var removed []MessageRef
	for k, msg := range m.messages {
		if msg.Timestamp <= before.Timestamp {
			removed = append(removed, MessageRef{ConversationID: msg.ConversationID, CallID: msg.CallID, PeerID: msg.PeerID})
			delete(m.messages, k)
		}
	}
	return removed, nil
}

func (m *MemoryStore) MarkAllCallHistoryRead(_ context.Context, before callhistory.CallRecord) error {
	return m.markRead(before, "")
}

func (m *MemoryStore) MarkAllCallHistoryReadInConversation(_ context.Context, conversationID string, before callhistory.CallRecord) error {
	return m.markRead(before, conversationID)
}

func (m *MemoryStore) markRead(before callhistory.CallRecord, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, msg := range m.messages {
		if conversationID != "" && msg.ConversationID != conversationID {
			continue
		}
		if msg.SeenStatus == SeenStatusUnseen && msg.Timestamp <= before.Timestamp {
			msg.SeenStatus = SeenStatusSeen
			m.messages[k] = msg
		}
	}
	return nil
}

func (m *MemoryStore) UpsertCallMessage(_ context.Context, conversationID string, r callhistory.CallRecord, seen SeenStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := messageKey{conversationID, r.CallID}
	if prior, ok := m.messages[key]; ok {
		seen = MergeSeen(prior.SeenStatus, seen)
	}
	m.messages[key] = CallMessage{
		ConversationID: conversationID,
		CallID:         r.CallID,
		PeerID:         r.PeerID,
		SeenStatus:     seen,
		Timestamp:      r.Timestamp,
	}
	return nil
}

func (m *MemoryStore) RemoveCallMessage(_ context.Context, conversationID, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, messageKey{conversationID, callID})
	return nil
}

// ListCallHistory returns non-deleted records, newest first.
func (m *MemoryStore) ListCallHistory(_ context.Context, limit int) ([]callhistory.CallRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]callhistory.CallRecord, 0, len(m.records))
	for _, r := range m.records {
		if r.Status == callhistory.StatusDeleted {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Message returns a copy of the stored display message, for tests.
func (m *MemoryStore) Message(conversationID, callID string) (CallMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageKey{conversationID, callID}]
	return msg, ok
}

// Records returns a copy of every stored record, for tests.
func (m *MemoryStore) Records() []callhistory.CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]callhistory.CallRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out
}
