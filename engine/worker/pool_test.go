package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	t.Run("Should return the job result", func(t *testing.T) {
		pool := NewPool(2)

		v, err := Do(t.Context(), pool, func() (int, error) { return 42, nil })

		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("Should return the job error", func(t *testing.T) {
		boom := errors.New("boom")

		_, err := Do(t.Context(), NewPool(1), func() (string, error) { return "", boom })

		assert.ErrorIs(t, err, boom)
	})

	t.Run("Should convert panics into errors", func(t *testing.T) {
		_, err := Do(t.Context(), NewPool(1), func() (int, error) { panic("kaput") })

		assert.ErrorIs(t, err, ErrPanic)
		assert.Contains(t, err.Error(), "kaput")
	})

	t.Run("Should never run more jobs than the pool size", func(t *testing.T) {
		pool := NewPool(3)
		var wg sync.WaitGroup
		for range 12 {
			wg.Go(func() {
				_, err := Do(t.Context(), pool, func() (struct{}, error) {
					time.Sleep(10 * time.Millisecond)
					return struct{}{}, nil
				})
				assert.NoError(t, err)
			})
		}
		wg.Wait()

		assert.LessOrEqual(t, pool.Peak(), 3)
		assert.Equal(t, 0, pool.Active())
	})

	t.Run("Should stop waiting when the context ends", func(t *testing.T) {
		pool := NewPool(1)
		release := make(chan struct{})
		ctx, cancel := context.WithCancel(t.Context())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, err := Do(ctx, pool, func() (int, error) {
			<-release
			return 1, nil
		})

		assert.ErrorIs(t, err, context.Canceled)
		close(release)
	})

	t.Run("Should default to the number of CPUs", func(t *testing.T) {
		assert.Positive(t, NewPool(0).Size())
	})
}
