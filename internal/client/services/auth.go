package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/propscan/internal/client/balance"
	"github.com/dmitrijs2005/propscan/internal/client/client"
	"github.com/dmitrijs2005/propscan/internal/client/models"
	"github.com/dmitrijs2005/propscan/internal/client/session"
	"github.com/dmitrijs2005/propscan/internal/logging"
)

// AuthService logs users in and out.
//
// A successful login or registration stores the token, remembers the user
// id, fetches the profile and adopts its balance, so the cache reflects the
// backend from the first screen on.
type AuthService struct {
	client     client.Client
	session    *session.Manager
	reconciler *balance.Reconciler
	log        logging.Logger
}

func NewAuthService(c client.Client, s *session.Manager, r *balance.Reconciler, log logging.Logger) *AuthService {
	return &AuthService{client: c, session: s, reconciler: r, log: log}
}

func (a *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, client.ErrEmptyInput
	}
	res, err := a.client.Register(ctx, strings.TrimSpace(email), password, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, res)
}

func (a *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, client.ErrEmptyInput
	}
	res, err := a.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, res)
}

func (a *AuthService) establish(ctx context.Context, res *models.AuthResult) (*models.User, error) {
	if res == nil || res.AccessToken == "" {
		return nil, client.ErrMissingToken
	}
	if err := a.session.SetToken(ctx, res.AccessToken); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	user := res.User
	if profile, err := a.client.Profile(ctx); err != nil {
		a.log.Warn(ctx, "auth: profile fetch after login failed", "error", err)
	} else {
		user = profile
	}
	if user == nil || user.ID == "" {
		a.log.Warn(ctx, "auth: login response without user")
		return &models.User{}, nil
	}

	if err := a.session.SetUserID(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("store user id: %w", err)
	}
	a.reconciler.Adopt(ctx, user.ID, snapshotOf(user))
	a.log.Info(ctx, "auth: logged in", "user_id", user.ID)
	return user, nil
}

// Logout clears the session. The cached balance stays so the next login of
// the same user starts from it.
func (a *AuthService) Logout(ctx context.Context) error {
	if err := a.session.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	a.log.Info(ctx, "auth: logged out")
	return nil
}

// CurrentUser returns the logged-in user id or ErrNotLoggedIn.
func (a *AuthService) CurrentUser(ctx context.Context) (string, error) {
	return currentUser(ctx, a.session)
}

func (a *AuthService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *AuthService) Close() error {
	return a.client.Close()
}
