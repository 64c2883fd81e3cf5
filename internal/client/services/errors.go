package services

import (
	"context"

	"github.com/dmitrijs2005/propscan/internal/client/session"
	"github.com/dmitrijs2005/propscan/internal/client/transport"
)

var (
	ErrNotLoggedIn = &transport.Error{
		Outcome: transport.OutcomeInvalidRequest,
		Message: "Please login first.",
		Reason:  "no active session",
	}

	ErrInsufficientBalance = &transport.Error{
		Outcome: transport.OutcomeInvalidRequest,
		Message: "You have no scans left on your plan.",
		Reason:  "local balance cannot cover the action",
	}
)

// currentUser returns the id of the logged-in user, or ErrNotLoggedIn when
// there is no valid token or no remembered user.
func currentUser(ctx context.Context, s *session.Manager) (string, error) {
	if _, ok := s.Token(ctx); !ok {
		return "", ErrNotLoggedIn
	}
	uid := s.UserID(ctx)
	if uid == "" {
		return "", ErrNotLoggedIn
	}
	return uid, nil
}
