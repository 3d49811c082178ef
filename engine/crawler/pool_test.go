package crawler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/watermark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestPool_Run(t *testing.T) {
	t.Run("Should never exceed the task limit", func(t *testing.T) {
		src := newFakeSource()
		src.delay = 5 * time.Millisecond
		for i := range 8 {
			src.add(corpus.ChannelID(fmt.Sprintf("c%d", i)), "x", 3)
		}
		in := newIngestor(trainer.ModeGlobal, 4)
		pool, err := NewPool(src, in, watermark.NewMemory(), Options{
			Tasks: 3,
			Meter: noop.NewMeterProvider().Meter("test"),
		})
		require.NoError(t, err)
		report, err := pool.Run(t.Context())
		require.NoError(t, err)
		assert.Len(t, report.Results, 8)
		assert.Equal(t, 24, report.Accepted())
		assert.LessOrEqual(t, report.MaxActive, 3)
		assert.GreaterOrEqual(t, report.MaxActive, 1)
		assert.LessOrEqual(t, src.peak(), 3)
		assert.Zero(t, pool.Active())
		assert.NotEmpty(t, report.Session)
		assert.Equal(t, uint64(24), in.Registry().Total())
	})

	t.Run("Should keep crawling siblings of a forbidden channel", func(t *testing.T) {
		src := newFakeSource()
		src.add("a", "x", 3)
		src.add("b", "x", 3)
		src.add("c", "x", 3)
		src.forbidAt["b"] = 0
		in := newIngestor(trainer.ModeGlobal, 100)
		marks := watermark.NewMemory()
		pool, err := NewPool(src, in, marks, Options{Tasks: 2, Shuffle: true})
		require.NoError(t, err)
		report, err := pool.Run(t.Context())
		require.NoError(t, err)
		forbidden := 0
		for _, res := range report.Results {
			if res.Forbidden {
				forbidden++
				assert.Equal(t, corpus.ChannelID("b"), res.Channel)
			}
		}
		assert.Equal(t, 1, forbidden)
		assert.Equal(t, 6, report.Accepted())
		all, err := marks.All(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[corpus.ChannelID]corpus.MessageID{"a": "a-3", "c": "c-3"}, all)
		assert.True(t, in.Registry().Global().Store.Ready())
	})

	t.Run("Should admit nothing once stopped", func(t *testing.T) {
		src := newFakeSource()
		src.add("a", "x", 3)
		in := newIngestor(trainer.ModeGlobal, 100)
		pool, err := NewPool(src, in, watermark.NewMemory(), Options{Tasks: 1})
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		report, err := pool.Run(ctx)
		require.NoError(t, err)
		assert.Empty(t, report.Results)
		assert.Zero(t, src.fetches.Load())
	})
}
