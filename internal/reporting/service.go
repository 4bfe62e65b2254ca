package reporting

import (
	"context"
	"errors"

	"callsync-platform/internal/callhistory"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations should treat the call-history table as the immutable
// source: summaries never read the transient engine state.
type Repository interface {
	ListCallHistoryRange(ctx context.Context, from, to int64) ([]callhistory.CallRecord, error)
	CountUnseenMessages(ctx context.Context) (int, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) HistorySummary(ctx context.Context, req HistorySummaryRequest) (HistorySummary, error) {
	if req.Range.From < 0 || req.Range.To <= req.Range.From {
		return HistorySummary{}, ErrInvalidRequest
	}
	if req.Mode != "" && !isKnownMode(req.Mode) {
		return HistorySummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return HistorySummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCallHistoryRange(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return HistorySummary{}, err
	}

	out := HistorySummary{Mode: req.Mode}
	for _, r := range rows {
		if req.Mode != "" && string(r.Mode) != req.Mode {
			continue
		}
		if r.Status == callhistory.StatusDeleted {
			continue
		}
		out.TotalCalls++
		switch r.Direction {
		case callhistory.DirectionIncoming:
			out.IncomingCalls++
		case callhistory.DirectionOutgoing:
			out.OutgoingCalls++
		}
		switch r.Status {
		case callhistory.StatusAccepted:
			out.AcceptedCalls++
		case callhistory.StatusMissed:
			out.MissedCalls++
		case callhistory.StatusDeclined:
			out.DeclinedCalls++
		case callhistory.StatusJoined:
			out.JoinedCalls++
		case callhistory.StatusPending:
			out.PendingCalls++
		case callhistory.StatusRinging, callhistory.StatusOutgoingRing, callhistory.StatusGenericGroupCall:
			// transient states are counted in the total only
		}
	}

	unseen, err := s.repo.CountUnseenMessages(ctx)
	if err != nil {
		return HistorySummary{}, err
	}
	out.UnseenMessages = unseen
	return out, nil
}

func isKnownMode(m string) bool {
	switch callhistory.CallMode(m) {
	case callhistory.ModeDirect, callhistory.ModeGroup, callhistory.ModeAdhoc:
		return true
	default:
		return false
	}
}
