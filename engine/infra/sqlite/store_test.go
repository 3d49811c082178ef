package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/senvr/senvr/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	return logger.ContextWithLogger(t.Context(), logger.NewForTests())
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := testCtx(t)
	store, err := NewStore(ctx, &Config{Path: filepath.Join(t.TempDir(), "senvr.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close(ctx))
	})
	return store
}

func TestBuildDSN(t *testing.T) {
	t.Run("Should build DSN for file path with pragmas", func(t *testing.T) {
		d := buildDSN((&Config{Path: "/tmp/test.db"}).withDefaults())
		assert.Contains(t, d, "file:/tmp/test.db")
		assert.Contains(t, d, "_pragma=journal_mode(WAL)")
		assert.Contains(t, d, "_pragma=foreign_keys(ON)")
		assert.Contains(t, d, "_pragma=busy_timeout(5000)")
	})
	t.Run("Should build DSN for a private in-memory database", func(t *testing.T) {
		cfg := (&Config{Path: ":memory:"}).withDefaults()
		d := buildDSN(cfg)
		assert.Contains(t, d, "file::memory:?")
		assert.NotContains(t, d, "journal_mode")
		assert.Equal(t, 1, cfg.MaxOpenConns)
	})
}

func TestMigrations(t *testing.T) {
	t.Run("Should create all required tables", func(t *testing.T) {
		store := setupStore(t)
		ctx := testCtx(t)
		expected := map[string]bool{
			"channel_watermarks": true,
			"message_records":    true,
		}
		rows, err := store.DB().QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
		require.NoError(t, err)
		defer rows.Close()
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			delete(expected, name)
		}
		require.NoError(t, rows.Err())
		assert.Empty(t, expected)
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		store := setupStore(t)
		require.NoError(t, ApplyMigrations(testCtx(t), store.DB()))
		version, err := SchemaVersion(testCtx(t), store.DB())
		require.NoError(t, err)
		assert.Equal(t, int64(20250101000002), version)
	})

	t.Run("Should work in memory", func(t *testing.T) {
		ctx := testCtx(t)
		store, err := NewStore(ctx, &Config{Path: ":memory:"})
		require.NoError(t, err)
		defer store.Close(ctx)
		repo := store.Watermarks()
		require.NoError(t, repo.Advance(ctx, "c1", "1"))
		_, ok, err := repo.Get(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
