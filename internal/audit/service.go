package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.UserID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogHistoryCleared records a destructive clear of call history up to the
// anchor timestamp.
func (s *Service) LogHistoryCleared(ctx context.Context, userID, deviceID, deviceRole, ip string, anchorTimestamp int64, metadata string) error {
	return s.Append(ctx, Event{
		UserID:          userID,
		Type:            EventTypeHistoryCleared,
		ActorDeviceID:   deviceID,
		ActorDeviceRole: deviceRole,
		IPAddress:       ip,
		AnchorTimestamp: anchorTimestamp,
		Message:         "call history cleared",
		Metadata:        metadata,
	})
}

// LogMarkedRead records a bulk mark-read, optionally scoped to one
// conversation.
func (s *Service) LogMarkedRead(ctx context.Context, userID, deviceID, deviceRole, ip, conversationID string, anchorTimestamp int64) error {
	return s.Append(ctx, Event{
		UserID:          userID,
		Type:            EventTypeMarkedRead,
		ActorDeviceID:   deviceID,
		ActorDeviceRole: deviceRole,
		IPAddress:       ip,
		ConversationID:  conversationID,
		AnchorTimestamp: anchorTimestamp,
		Message:         "call history marked read",
	})
}
