package helpers

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("Should write indented JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteJSON(&buf, map[string]int{"units": 2}))
		assert.Equal(t, "{\n  \"units\": 2\n}\n", buf.String())
	})
}

func TestWithFileLock(t *testing.T) {
	t.Run("Should run the callback and create the parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "snap.json")
		called := false
		err := WithFileLock(t.Context(), path, true, func() error {
			called = true
			return os.WriteFile(path, []byte("{}"), 0o600)
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.FileExists(t, lockPath(path))
	})
	t.Run("Should propagate the callback error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "snap.json")
		boom := errors.New("boom")
		assert.ErrorIs(t, WithFileLock(t.Context(), path, false, func() error { return boom }), boom)
	})
	t.Run("Should wait for an exclusive holder until the context ends", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "snap.json")
		holder := flock.New(lockPath(path))
		locked, err := holder.TryLock()
		require.NoError(t, err)
		require.True(t, locked)
		defer holder.Unlock()
		ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
		defer cancel()
		err = WithFileLock(ctx, path, true, func() error { return nil })
		assert.Error(t, err)
	})
}
