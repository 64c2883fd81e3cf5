// Package session owns the bearer token used to authorise every backend call.
//
// The token lives in the persistent key-value store under "auth_token" so it
// survives restarts. It is written once after a successful login, removed on
// logout, and removed by the request engine when the backend answers 401.
// A token that is a JWT with an "exp" claim in the past is treated as expired
// by the server and reported as absent.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/propscan/internal/client/repositories/kv"
	"github.com/dmitrijs2005/propscan/internal/common"
	"github.com/dmitrijs2005/propscan/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptyToken = errors.New("empty token")

// Session is a point-in-time view of the authentication state.
type Session struct {
	Token string
	Valid bool
}

type Manager struct {
	store kv.Store
	log   logging.Logger
	now   func() time.Time

	mu sync.Mutex
}

func NewManager(store kv.Store, log logging.Logger) *Manager {
	return &Manager{store: store, log: log, now: time.Now}
}

// Token returns the stored bearer token. Store failures are logged and
// reported as "no token".
func (m *Manager) Token(ctx context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := m.store.Get(ctx, common.KeyAuthToken)
	if err != nil {
		m.log.Warn(ctx, "session: token read failed", "error", err)
		return "", false
	}
	if len(raw) == 0 {
		return "", false
	}

	token := string(raw)
	if m.expired(token) {
		m.log.Info(ctx, "session: stored token expired, clearing")
		if err := m.store.Delete(ctx, common.KeyAuthToken); err != nil {
			m.log.Warn(ctx, "session: expired token delete failed", "error", err)
		}
		return "", false
	}
	return token, true
}

func (m *Manager) Session(ctx context.Context) Session {
	token, ok := m.Token(ctx)
	return Session{Token: token, Valid: ok}
}

func (m *Manager) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.Set(ctx, common.KeyAuthToken, []byte(token))
}

// Clear removes the token and the remembered user id (logout).
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.WithinTx(ctx, func(ctx context.Context, s kv.Store) error {
		if err := s.Delete(ctx, common.KeyAuthToken); err != nil {
			return err
		}
		return s.Delete(ctx, common.KeyCurrentUserID)
	})
}

// Invalidate drops the token after the backend rejected it. It never fails;
// a store error is logged and the next read will still see the old token
// until the next 401.
func (m *Manager) Invalidate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, common.KeyAuthToken); err != nil {
		m.log.Error(ctx, "session: token invalidation failed", "error", err)
		return
	}
	m.log.Info(ctx, "session invalidated")
}

// SetUserID remembers which account the token belongs to. Per-user cache
// keys are derived from it.
func (m *Manager) SetUserID(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.Set(ctx, common.KeyCurrentUserID, []byte(userID))
}

func (m *Manager) UserID(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := m.store.Get(ctx, common.KeyCurrentUserID)
	if err != nil {
		m.log.Warn(ctx, "session: user id read failed", "error", err)
		return ""
	}
	return string(raw)
}

func (m *Manager) expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// opaque token, the server decides
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !m.now().Before(exp.Time)
}
