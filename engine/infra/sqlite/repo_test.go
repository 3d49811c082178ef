package sqlite

import (
	"testing"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermarkRepo(t *testing.T) {
	t.Run("Should report unknown channels as absent", func(t *testing.T) {
		repo := setupStore(t).Watermarks()
		_, ok, err := repo.Get(testCtx(t), "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should upsert the latest watermark", func(t *testing.T) {
		repo := setupStore(t).Watermarks()
		ctx := testCtx(t)
		require.NoError(t, repo.Advance(ctx, "c1", "10"))
		require.NoError(t, repo.Advance(ctx, "c1", "11"))
		require.NoError(t, repo.Advance(ctx, "c2", "5"))
		id, ok, err := repo.Get(ctx, "c1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, corpus.MessageID("11"), id)
		all, err := repo.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[corpus.ChannelID]corpus.MessageID{"c1": "11", "c2": "5"}, all)
	})
}

func TestMessageRepo(t *testing.T) {
	t.Run("Should record each message once", func(t *testing.T) {
		store := setupStore(t)
		repo, err := store.Messages()
		require.NoError(t, err)
		ctx := testCtx(t)
		unit := corpus.TextUnit{ID: "1", Channel: "c1", Author: "x", Content: "hello world"}
		require.NoError(t, repo.Record(ctx, unit))
		require.NoError(t, repo.Record(ctx, unit))
		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Should find records missing from the cache", func(t *testing.T) {
		store := setupStore(t)
		ctx := testCtx(t)
		writer, err := store.Messages()
		require.NoError(t, err)
		require.NoError(t, writer.Record(ctx, corpus.TextUnit{ID: "1", Channel: "c1", Author: "x", Content: "a"}))
		reader, err := store.Messages()
		require.NoError(t, err)
		seen, err := reader.Seen(ctx, "1")
		require.NoError(t, err)
		assert.True(t, seen)
		seen, err = reader.Seen(ctx, "2")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("Should replay records in insertion order", func(t *testing.T) {
		store := setupStore(t)
		repo, err := store.Messages()
		require.NoError(t, err)
		ctx := testCtx(t)
		for _, u := range []corpus.TextUnit{
			{ID: "b", Channel: "c1", Author: "x", Content: "first"},
			{ID: "a", Channel: "c1", Author: "y", Content: "second"},
		} {
			require.NoError(t, repo.Record(ctx, u))
		}
		var got []corpus.TextUnit
		require.NoError(t, repo.Each(ctx, func(rec MessageRecord) error {
			got = append(got, rec.Unit())
			return nil
		}))
		require.Len(t, got, 2)
		assert.Equal(t, "first", got[0].Content)
		assert.Equal(t, corpus.AuthorID("y"), got[1].Author)
	})

	t.Run("Should ignore units without an id", func(t *testing.T) {
		store := setupStore(t)
		repo, err := store.Messages()
		require.NoError(t, err)
		ctx := testCtx(t)
		require.NoError(t, repo.Record(ctx, corpus.TextUnit{Content: "anonymous"}))
		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
