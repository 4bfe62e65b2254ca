package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresUserAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeHistoryCleared}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{UserID: "u"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogHistoryCleared(context.Background(), "u", "d", "primary", "1.2.3.4", 1700000000000, "{}"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" {
		t.Fatalf("expected ip captured")
	}
	if evs[0].Type != EventTypeHistoryCleared {
		t.Fatalf("expected history_cleared")
	}
	if evs[0].AnchorTimestamp != 1700000000000 {
		t.Fatalf("expected anchor timestamp recorded")
	}
}

func TestService_MarkedReadScopesConversation(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogMarkedRead(context.Background(), "u", "d", "linked", "", "conv-1", 500); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.Events()
	if len(evs) != 1 || evs[0].ConversationID != "conv-1" {
		t.Fatalf("expected conversation scope recorded, got %+v", evs)
	}
}
