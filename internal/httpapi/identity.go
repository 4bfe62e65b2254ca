package httpapi

import (
	"context"
	"errors"

	"callsync-platform/internal/auth"
)

// ContextIdentity resolves ringer identities against the authenticated
// user: the ringer is "local" when it is the account this token belongs
// to. Any non-empty id is considered known; contact-book validation
// happens upstream of this service.
type ContextIdentity struct{}

func (ContextIdentity) IsLocalUser(ctx context.Context, id string) (bool, bool, error) {
	if id == "" {
		return false, false, errors.New("httpapi: empty ringer id")
	}
	uid, err := auth.UserID(ctx)
	if err != nil {
		return false, false, err
	}
	return id == uid, true, nil
}
