package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Apply(t *testing.T) {
	t.Run("Should reject blank content", func(t *testing.T) {
		_, ok := Filter{}.Apply("  \n\t ")
		assert.False(t, ok)
	})

	t.Run("Should trim lines and drop empty ones", func(t *testing.T) {
		out, ok := Filter{MinWords: 1}.Apply("  hello there \n\n  general kenobi ")
		assert.True(t, ok)
		assert.Equal(t, "hello there\ngeneral kenobi", out)
	})

	t.Run("Should drop lines shorter than the minimum word count", func(t *testing.T) {
		out, ok := Filter{MinWords: 2}.Apply("lol\nthat is funny\nok")
		assert.True(t, ok)
		assert.Equal(t, "that is funny", out)
	})

	t.Run("Should reject content when no line survives", func(t *testing.T) {
		_, ok := Filter{MinWords: 2}.Apply("lol\nok")
		assert.False(t, ok)
	})

	t.Run("Should compose accents and strip invisible characters", func(t *testing.T) {
		out, ok := Filter{}.Apply("cafe\u0301 au\u200b lait\x07\nsplit\tby tab")
		assert.True(t, ok)
		assert.Equal(t, "caf\u00e9 au lait\nsplit by tab", out)
	})

	t.Run("Should reject content made only of format characters", func(t *testing.T) {
		_, ok := Filter{}.Apply("\u200b\u200d\ufeff")
		assert.False(t, ok)
	})
}
