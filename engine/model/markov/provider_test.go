package markov

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senvr/senvr/engine/model"
)

const diverseCorpus = `the cat sat on the mat
the cat ate the fish
the dog sat on the rug
the dog ate the bone
a cat sat on the rug
a dog sat on the mat`

func TestProvider_Build(t *testing.T) {
	t.Run("Should fail on an empty corpus", func(t *testing.T) {
		_, err := NewProvider().Build("  \n \n")
		assert.ErrorIs(t, err, model.ErrBuildFailed)
	})

	t.Run("Should build a chain from newline text", func(t *testing.T) {
		m, err := NewProvider().Build(diverseCorpus)
		require.NoError(t, err)
		chain, ok := m.(*Chain)
		require.True(t, ok)
		assert.Positive(t, chain.Transitions())
	})
}

func TestProvider_Sample(t *testing.T) {
	t.Run("Should report nothing when the corpus has no variety", func(t *testing.T) {
		p := NewProvider()
		m, err := p.Build("a\nb\nc")
		require.NoError(t, err)

		_, ok := p.Sample(m)

		assert.False(t, ok)
	})

	t.Run("Should produce novel sentences from a diverse corpus", func(t *testing.T) {
		p := NewProvider(WithTries(200))
		m, err := p.Build(diverseCorpus)
		require.NoError(t, err)

		text, ok := p.Sample(m)

		require.True(t, ok)
		assert.NotContains(t, strings.Split(diverseCorpus, "\n"), text)
	})

	t.Run("Should round trip html special characters", func(t *testing.T) {
		p := NewProvider(WithStateSize(1), WithTries(500))
		m, err := p.Build("tom & jerry run\njerry & tom hide\ntom & tom run")
		require.NoError(t, err)

		text, ok := p.Sample(m)

		require.True(t, ok)
		assert.NotContains(t, text, "&amp;")
	})

	t.Run("Should reject foreign model values", func(t *testing.T) {
		_, ok := NewProvider().Sample("not a chain")
		assert.False(t, ok)
	})
}

func TestProvider_Combine(t *testing.T) {
	t.Run("Should keep both inputs unchanged", func(t *testing.T) {
		p := NewProvider()
		a, err := p.Build("the cat sat")
		require.NoError(t, err)
		b, err := p.Build("the dog ran")
		require.NoError(t, err)
		before := a.(*Chain).Transitions()

		c, err := p.Combine(a, b)

		require.NoError(t, err)
		assert.Equal(t, before, a.(*Chain).Transitions())
		assert.Greater(t, c.(*Chain).Transitions(), before)
		assert.Len(t, c.(*Chain).sentences, 2)
	})

	t.Run("Should fail for mismatched state sizes", func(t *testing.T) {
		a, err := NewProvider(WithStateSize(1)).Build("x y z")
		require.NoError(t, err)
		b, err := NewProvider(WithStateSize(2)).Build("x y z")
		require.NoError(t, err)

		_, err = NewProvider().Combine(a, b)

		assert.ErrorIs(t, err, model.ErrCombineFailed)
	})
}

func TestProvider_Codec(t *testing.T) {
	t.Run("Should restore an equivalent chain", func(t *testing.T) {
		p := NewProvider()
		m, err := p.Build(diverseCorpus)
		require.NoError(t, err)

		data, err := p.Marshal(m)
		require.NoError(t, err)
		restored, err := p.Unmarshal(data)
		require.NoError(t, err)

		assert.Equal(t, m.(*Chain).transitions, restored.(*Chain).transitions)
		assert.Equal(t, m.(*Chain).sentences, restored.(*Chain).sentences)
	})
}
