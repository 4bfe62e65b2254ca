package reporting

import (
	"context"
	"errors"
	"testing"

	"callsync-platform/internal/callhistory"
)

func TestHistorySummary_CountsByStatus(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Records = []callhistory.CallRecord{
		{CallID: "1", Mode: callhistory.ModeDirect, Direction: callhistory.DirectionIncoming, Status: callhistory.StatusAccepted, Timestamp: 100},
		{CallID: "2", Mode: callhistory.ModeDirect, Direction: callhistory.DirectionIncoming, Status: callhistory.StatusMissed, Timestamp: 200},
		{CallID: "3", Mode: callhistory.ModeDirect, Direction: callhistory.DirectionOutgoing, Status: callhistory.StatusDeclined, Timestamp: 300},
		{CallID: "4", Mode: callhistory.ModeAdhoc, Direction: callhistory.DirectionIncoming, Status: callhistory.StatusJoined, Timestamp: 400},
	}
	repo.Unseen = 1
	svc := NewService(repo)

	out, err := svc.HistorySummary(context.Background(), HistorySummaryRequest{Range: TimeRange{From: 0, To: 1000}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 4 {
		t.Fatalf("expected 4 calls, got %d", out.TotalCalls)
	}
	if out.AcceptedCalls != 1 || out.MissedCalls != 1 || out.DeclinedCalls != 1 || out.JoinedCalls != 1 {
		t.Fatalf("unexpected status counts: %+v", out)
	}
	if out.IncomingCalls != 3 || out.OutgoingCalls != 1 {
		t.Fatalf("unexpected direction counts: %+v", out)
	}
	if out.UnseenMessages != 1 {
		t.Fatalf("expected 1 unseen, got %d", out.UnseenMessages)
	}
}

func TestHistorySummary_ModeFilterAndRange(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Records = []callhistory.CallRecord{
		{CallID: "1", Mode: callhistory.ModeDirect, Direction: callhistory.DirectionIncoming, Status: callhistory.StatusAccepted, Timestamp: 100},
		{CallID: "2", Mode: callhistory.ModeGroup, Direction: callhistory.DirectionIncoming, Status: callhistory.StatusJoined, Timestamp: 200},
		{CallID: "3", Mode: callhistory.ModeDirect, Direction: callhistory.DirectionIncoming, Status: callhistory.StatusAccepted, Timestamp: 5000},
	}
	svc := NewService(repo)

	out, err := svc.HistorySummary(context.Background(), HistorySummaryRequest{
		Range: TimeRange{From: 0, To: 1000},
		Mode:  "direct",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 1 {
		t.Fatalf("expected 1 in-range direct call, got %d", out.TotalCalls)
	}
}

func TestHistorySummary_SkipsTombstones(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Records = []callhistory.CallRecord{
		{CallID: "1", Mode: callhistory.ModeDirect, Direction: callhistory.DirectionIncoming, Status: callhistory.StatusDeleted, Timestamp: 100},
	}
	svc := NewService(repo)

	out, err := svc.HistorySummary(context.Background(), HistorySummaryRequest{Range: TimeRange{From: 0, To: 1000}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 0 {
		t.Fatalf("deleted records must not be counted, got %d", out.TotalCalls)
	}
}

func TestHistorySummary_RejectsBadRequests(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if _, err := svc.HistorySummary(context.Background(), HistorySummaryRequest{Range: TimeRange{From: 100, To: 100}}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for empty range, got %v", err)
	}
	if _, err := svc.HistorySummary(context.Background(), HistorySummaryRequest{Range: TimeRange{From: 0, To: 100}, Mode: "broadcast"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for unknown mode, got %v", err)
	}
}
