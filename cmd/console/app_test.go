package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"dca-grid-console/internal/api"
	"dca-grid-console/internal/config"
	"dca-grid-console/internal/models"
	"dca-grid-console/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestApp wires an App against the test server with a real sqlite
// store in a temp dir, logged in with a placeholder token.
func newTestApp(t *testing.T, srv *httptest.Server) *App {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "console.db"), zap.NewNop())
	require.NoError(t, err)

	backend := &config.Backend{
		BaseURL:        srv.URL,
		RequestTimeout: 2 * time.Second,
		RateLimit:      100,
		RateLimitBurst: 10,
	}
	a := newApp(&config.Config{Backend: *backend}, st, zap.NewNop())
	require.NoError(t, a.session.Save(models.Session{AccessToken: "token", RefreshToken: "refresh"}))
	return a
}

func saveIdentity(t *testing.T, a *App, configID uuid.UUID) {
	t.Helper()
	require.NoError(t, a.store.Put(store.SlotLastConfigID, models.BotIdentity{ConfigID: configID}))
	require.NoError(t, a.store.Put(store.SlotLastConfig, models.Configuration{Symbol: "BTC/USDT", TotalBudget: 100}))
}

func slotPresent(t *testing.T, a *App, name string) bool {
	t.Helper()
	var raw json.RawMessage
	ok, err := a.store.Get(name, &raw)
	require.NoError(t, err)
	return ok
}

func TestWatchDropsSavedIdentityTheBackendForgot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats/", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Bot config not found"})
	}))
	defer srv.Close()

	a := newTestApp(t, srv)
	saveIdentity(t, a, uuid.New())

	identity, snap, err := a.resolveWatchTarget(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, identity)
	assert.Nil(t, snap)
	assert.False(t, slotPresent(t, a, store.SlotLastConfigID))
	assert.False(t, slotPresent(t, a, store.SlotLastConfig))
}

func TestWatchKeepsSavedIdentityOnTransientFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := newTestApp(t, srv)
	configID := uuid.New()
	saveIdentity(t, a, configID)

	_, _, err := a.resolveWatchTarget(context.Background(), "")
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.True(t, slotPresent(t, a, store.SlotLastConfigID))
	assert.True(t, slotPresent(t, a, store.SlotLastConfig))
}

func TestWatchExplicitConfigNeverTouchesSavedSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := newTestApp(t, srv)
	saveIdentity(t, a, uuid.New())

	_, _, err := a.resolveWatchTarget(context.Background(), uuid.NewString())
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.True(t, slotPresent(t, a, store.SlotLastConfigID))
	assert.True(t, slotPresent(t, a, store.SlotLastConfig))
}

func TestWatchProbeReturnsFirstSnapshot(t *testing.T) {
	configID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, configID.String(), r.URL.Query().Get("config_id"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"total_profit_usdt": 3.25,
			"completed_cycles":  4,
		})
	}))
	defer srv.Close()

	a := newTestApp(t, srv)
	saveIdentity(t, a, configID)

	identity, snap, err := a.resolveWatchTarget(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, configID, identity.ConfigID)
	require.NotNil(t, snap)
	assert.Equal(t, 3.25, snap.TotalProfit)
	assert.Equal(t, 4, snap.CompletedCycles)
}

func TestWatchNothingToWatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot_config/last-active/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("null"))
	}))
	defer srv.Close()

	a := newTestApp(t, srv)

	identity, snap, err := a.resolveWatchTarget(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, identity)
	assert.Nil(t, snap)
}
