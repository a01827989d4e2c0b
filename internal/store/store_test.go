package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "console.db"), zap.NewNop())
	require.NoError(t, err)
	return s
}

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("slot", payload{Name: "x", Value: 1.5}))

	var got payload
	ok, err := s.Get("slot", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Name: "x", Value: 1.5}, got)
}

func TestPutReplaces(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("slot", payload{Name: "first"}))
	require.NoError(t, s.Put("slot", payload{Name: "second"}))

	var got payload
	ok, err := s.Get("slot", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", got.Name)
}

func TestMissingSlot(t *testing.T) {
	s := openTestStore(t)

	var got payload
	ok, err := s.Get("nope", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMalformedValueTreatedAsAbsent(t *testing.T) {
	s := openTestStore(t)

	row := slot{Name: "broken", Value: "{not json"}
	require.NoError(t, s.db.Create(&row).Error)

	var got payload
	ok, err := s.Get("broken", &got)
	require.NoError(t, err, "corruption never propagates")
	assert.False(t, ok)

	// The broken row is gone for good.
	var count int64
	s.db.Model(&slot{}).Where("name = ?", "broken").Count(&count)
	assert.Zero(t, count)
}

func TestDeleteAndReset(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(SlotSession, payload{Name: "s"}))
	require.NoError(t, s.Put(SlotLastConfigID, payload{Name: "id"}))
	require.NoError(t, s.Put(SlotLastConfig, payload{Name: "cfg"}))

	require.NoError(t, s.Delete(SlotLastConfigID, SlotLastConfig))
	var got payload
	ok, _ := s.Get(SlotLastConfigID, &got)
	assert.False(t, ok)
	ok, _ = s.Get(SlotSession, &got)
	assert.True(t, ok)

	require.NoError(t, s.Reset())
	ok, _ = s.Get(SlotSession, &got)
	assert.False(t, ok)
}

func TestStoreFileIsPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.db")
	_, err := Open(path, zap.NewNop())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
