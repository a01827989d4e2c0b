package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"dca-grid-console/internal/config"
	"dca-grid-console/internal/models"
	"dca-grid-console/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory stand-in for the sqlite store.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(name string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (m *memStore) Put(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = raw
	return nil
}

func (m *memStore) Delete(names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		delete(m.data, name)
	}
	return nil
}

func testBackend(url string) *config.Backend {
	return &config.Backend{
		BaseURL:        url,
		RequestTimeout: 2 * time.Second,
		RateLimit:      100,
		RateLimitBurst: 10,
	}
}

// newTestClient wires a gateway and session against the test server,
// refreshing through the server's own /auth/refresh/ endpoint.
func newTestClient(t *testing.T, srv *httptest.Server) (*Client, *session.Manager) {
	t.Helper()
	cfg := testBackend(srv.URL)
	auth := NewAuthClient(cfg, zap.NewNop())
	sess := session.NewManager(newMemStore(), auth.Refresh, zap.NewNop())
	require.NoError(t, sess.Save(models.Session{AccessToken: "stale", RefreshToken: "refresh-1"}))
	return NewClient(cfg, sess, zap.NewNop()), sess
}

func TestGetStatsAttachesBearerToken(t *testing.T) {
	configID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats/", r.URL.Path)
		assert.Equal(t, configID.String(), r.URL.Query().Get("config_id"))
		assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"total_profit_usdt": 12.5,
			"completed_cycles":  2,
		})
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv)

	snap, err := client.GetStats(context.Background(), configID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, snap.TotalProfit)
	assert.Equal(t, 2, snap.CompletedCycles)
}

func TestSingleRefreshAndRetryOn401(t *testing.T) {
	var statsCalls, refreshCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "refresh-1", req["refresh_token"])
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "fresh",
			"refresh_token": "refresh-2",
		})
	})
	mux.HandleFunc("/stats/", func(w http.ResponseWriter, r *http.Request) {
		statsCalls++
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"total_profit_usdt": 1.0})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, sess := newTestClient(t, srv)

	snap, err := client.GetStats(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1.0, snap.TotalProfit)
	assert.Equal(t, 2, statsCalls)
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, "fresh", sess.AccessToken())
}

func TestSecond401DoesNotRefreshAgain(t *testing.T) {
	var refreshCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "fresh",
			"refresh_token": "refresh-2",
		})
	})
	mux.HandleFunc("/stats/", func(w http.ResponseWriter, r *http.Request) {
		// The token is rejected no matter what.
		w.WriteHeader(http.StatusUnauthorized)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := newTestClient(t, srv)

	_, err := client.GetStats(context.Background(), uuid.New())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, 1, refreshCalls)
}

func TestRefreshFailureSignalsReauthentication(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Refresh token revoked"})
	})
	mux.HandleFunc("/stats/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, sess := newTestClient(t, srv)

	_, err := client.GetStats(context.Background(), uuid.New())
	assert.ErrorIs(t, err, session.ErrReauthenticate)
	assert.False(t, sess.IsAuthenticated())
	assert.Empty(t, sess.AccessToken())
}

func TestServerDetailBecomesTheMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Insufficient balance"})
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv)

	err := client.StopBot(context.Background(), uuid.New())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Insufficient balance", apiErr.Message)
}

func TestStatusLineWhenNoDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv)

	err := client.StopBot(context.Background(), uuid.New())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "500")
}

func TestUnreachableServerIsANetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, _ := newTestClient(t, srv)
	srv.Close()

	_, err := client.CheckBalance(context.Background(), "k", "s")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "server unreachable", netErr.Error())
}
