package export

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/model/markov"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/watermark"
	"github.com/senvr/senvr/engine/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(p *markov.Provider) *trainer.Registry {
	return trainer.NewRegistry(trainer.RegistryOptions{
		SampleSize: 10,
		Provider:   p,
		Pool:       worker.NewPool(1),
	})
}

func TestTake(t *testing.T) {
	t.Run("Should export a null model before training", func(t *testing.T) {
		p := markov.NewProvider()
		reg := newRegistry(p)
		snap, err := Take(t.Context(), reg.Global(), watermark.NewMemory(), p)
		require.NoError(t, err)
		assert.False(t, snap.HasModel())
		assert.Equal(t, trainer.GlobalScope, snap.Scope)
		assert.Zero(t, snap.Units)
		assert.Empty(t, snap.Watermarks)
	})

	t.Run("Should round trip a trained scope", func(t *testing.T) {
		p := markov.NewProvider()
		reg := newRegistry(p)
		scope := reg.Global()
		lines := []string{"the cat sat on the mat", "the dog sat on the rug", "a bird sat on the fence"}
		for i, line := range lines {
			require.NoError(t, scope.Buffer.Put(t.Context(), corpus.TextUnit{
				ID:      corpus.MessageID(strconv.Itoa(i)),
				Content: line,
			}))
		}
		_, err := scope.RunCycle(t.Context())
		require.NoError(t, err)
		marks := watermark.NewMemoryFrom(map[corpus.ChannelID]corpus.MessageID{"c1": "42"})

		snap, err := Take(t.Context(), scope, marks, p)
		require.NoError(t, err)
		require.True(t, snap.HasModel())
		assert.Equal(t, uint64(3), snap.Units)
		assert.Equal(t, uint64(1), snap.Generation)

		var buf bytes.Buffer
		require.NoError(t, Write(&buf, snap, true))
		read, err := Read(&buf)
		require.NoError(t, err)
		assert.Equal(t, snap.Watermarks, read.Watermarks)
		assert.JSONEq(t, string(snap.Model), string(read.Model))

		fresh := newRegistry(p).Global()
		require.NoError(t, Restore(read, fresh, p))
		assert.True(t, fresh.Store.Ready())
		assert.ErrorIs(t, Restore(read, fresh, p), ErrScopeNotEmpty)
	})
}
