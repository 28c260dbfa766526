package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prema-client/internal/config"
)

func intPtr(v int) *int { return &v }

// stores returns every driver available in the test environment.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	out := map[string]Store{"memory": NewMemoryStore()}

	sq, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	out["sqlite"] = sq

	if dsn := os.Getenv("PREMA_TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := OpenPostgres(ctx, dsn, "test-"+t.Name())
		require.NoError(t, err)
		out["postgres"] = pg
	}

	t.Cleanup(func() {
		for _, s := range out {
			_ = s.Close()
		}
	})
	return out
}

func TestStore_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "k", "v1"))
			require.NoError(t, s.Set(ctx, "k", "v2"))
			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "v2", got)

			require.NoError(t, s.Remove(ctx, "k"))
			_, err = s.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			// removing a missing key is not an error
			assert.NoError(t, s.Remove(ctx, "k"))
		})
	}
}

func TestToken(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			tok, err := LoadToken(ctx, s)
			require.NoError(t, err)
			assert.Empty(t, tok)

			require.NoError(t, SaveToken(ctx, s, "abc"))
			tok, err = LoadToken(ctx, s)
			require.NoError(t, err)
			assert.Equal(t, "abc", tok)

			require.NoError(t, ClearToken(ctx, s))
			tok, err = LoadToken(ctx, s)
			require.NoError(t, err)
			assert.Empty(t, tok)
		})
	}
}

func TestFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := LoadFilters(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)

	prefs := FilterPreferences{MaxDistance: intPtr(50), MinAge: intPtr(21)}
	require.NoError(t, SaveFilters(ctx, s, prefs))

	raw, err := s.Get(ctx, KeyBrowseFilters)
	require.NoError(t, err)
	assert.JSONEq(t, `{"maxDistance":50,"minAge":21}`, raw)

	got, ok, err := LoadFilters(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, prefs, got)

	require.NoError(t, s.Set(ctx, KeyBrowseFilters, "{broken"))
	_, _, err = LoadFilters(ctx, s)
	assert.Error(t, err)
}

func TestLastLocationUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := LastLocationUpdate(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.UnixMilli(1_700_000_000_123)
	require.NoError(t, SetLastLocationUpdate(ctx, s, at))

	raw, err := s.Get(ctx, KeyLastLocationUpdate)
	require.NoError(t, err)
	assert.Equal(t, "1700000000123", raw)

	got, ok, err := LastLocationUpdate(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, SaveToken(ctx, s, "persisted"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	tok, err := LoadToken(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "persisted", tok)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StorageConfig{Driver: "redis"})
	assert.Error(t, err)
}
