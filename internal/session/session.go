package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"dca-grid-console/internal/models"
	"dca-grid-console/internal/store"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrReauthenticate is returned when the session cannot be recovered by
// a token refresh. The caller owns the "go log in again" response; this
// package never navigates anywhere itself.
var ErrReauthenticate = errors.New("authentication required")

// Store is the slice of the local store the session manager needs.
type Store interface {
	Get(name string, out any) (bool, error)
	Put(name string, v any) error
	Delete(names ...string) error
}

// RefreshFunc exchanges a refresh token for a new token pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (models.Session, error)

// Manager owns the access/refresh token pair. It loads the persisted
// session on construction, attaches the access token to outgoing calls
// through Do, and transparently refreshes the pair on an authorization
// failure. Concurrent callers share a single in-flight refresh.
type Manager struct {
	store   Store
	refresh RefreshFunc
	logger  *zap.Logger

	mu      sync.RWMutex
	current models.Session

	group singleflight.Group
}

// NewManager creates a session manager, restoring any persisted session.
func NewManager(st Store, refresh RefreshFunc, logger *zap.Logger) *Manager {
	m := &Manager{store: st, refresh: refresh, logger: logger}

	var sess models.Session
	ok, err := st.Get(store.SlotSession, &sess)
	if err != nil {
		logger.Warn("Failed to restore session", zap.Error(err))
	}
	if ok {
		m.current = sess
	}
	return m
}

// AccessToken returns the current access token, empty when logged out.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.AccessToken
}

// Profile returns the cached operator profile, nil when unknown.
func (m *Manager) Profile() *models.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Profile
}

// IsAuthenticated reports whether a usable session exists: a refresh
// token is present and not past its expiry claim. An expired access
// token alone does not count against the session; it is refreshed on
// first use.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current.RefreshToken == "" {
		return false
	}
	return tokenLive(m.current.RefreshToken)
}

// tokenLive reads the exp claim without verifying the signature; only
// the backend holds the signing key. Tokens without a parsable exp are
// assumed live and left for the backend to reject.
func tokenLive(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(time.Now())
}

// Save replaces the token pair, in memory and in the store.
func (m *Manager) Save(sess models.Session) error {
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	if err := m.store.Put(store.SlotSession, sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Clear destroys the session, in memory and in the store.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.current = models.Session{}
	m.mu.Unlock()

	if err := m.store.Delete(store.SlotSession); err != nil {
		m.logger.Warn("Failed to clear persisted session", zap.Error(err))
	}
}

// Do executes send with the current access token. On a 401 it performs
// one refresh-and-retry: the refresh token is exchanged for a new pair,
// the pair is persisted, and send runs once more with the new token.
// The retried-already flag is local to this call, so concurrent
// requests can never chain refreshes; a second 401 after the retry is
// returned as-is. When the refresh exchange itself fails the session is
// cleared and ErrReauthenticate is returned.
func (m *Manager) Do(ctx context.Context, send func(token string) (*resty.Response, error)) (*resty.Response, error) {
	stale := m.AccessToken()

	resp, err := send(stale)
	if err != nil || resp == nil || resp.StatusCode() != http.StatusUnauthorized {
		return resp, err
	}

	fresh, rerr := m.refreshAccess(ctx, stale)
	if rerr != nil {
		return resp, rerr
	}

	return send(fresh)
}

// refreshAccess exchanges the refresh token for a new pair, collapsing
// concurrent callers onto one exchange. A caller whose stale token has
// already been replaced by a concurrent refresh gets the current token
// without a second exchange.
func (m *Manager) refreshAccess(ctx context.Context, stale string) (string, error) {
	v, err, _ := m.group.Do("refresh", func() (any, error) {
		if cur := m.AccessToken(); cur != "" && cur != stale {
			return cur, nil
		}

		m.mu.RLock()
		refreshToken := m.current.RefreshToken
		profile := m.current.Profile
		m.mu.RUnlock()

		if refreshToken == "" {
			m.Clear()
			return "", ErrReauthenticate
		}

		sess, err := m.refresh(ctx, refreshToken)
		if err != nil {
			m.logger.Warn("Token refresh failed", zap.Error(err))
			m.Clear()
			return "", fmt.Errorf("%w: %v", ErrReauthenticate, err)
		}

		sess.Profile = profile
		if err := m.Save(sess); err != nil {
			return "", err
		}
		m.logger.Debug("Session refreshed")
		return sess.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
