package generate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/senvr/senvr/engine/model"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

// scriptedProvider returns the queued samples in order, then nothing.
type scriptedProvider struct {
	samples []string
	calls   atomic.Int64
	panics  bool
}

func (p *scriptedProvider) Build(corpus string) (model.Model, error) { return corpus, nil }

func (p *scriptedProvider) Combine(a, b model.Model) (model.Model, error) { return a, nil }

func (p *scriptedProvider) Sample(model.Model) (string, bool) {
	n := int(p.calls.Add(1))
	if p.panics {
		panic("boom")
	}
	if n <= len(p.samples) {
		return p.samples[n-1], true
	}
	return "", false
}

func readyStore(t *testing.T) *trainer.Store {
	t.Helper()
	s := trainer.NewStore()
	require.True(t, s.CompareAndSwap(0, "corpus"))
	return s
}

func newService(t *testing.T, p model.Provider, tries int, typing time.Duration) *Service {
	t.Helper()
	svc, err := NewService(p, worker.NewPool(2), Options{
		MaxTries:    tries,
		RetryDelay:  time.Millisecond,
		TypingDelay: typing,
		Meter:       noop.NewMeterProvider().Meter("test"),
	})
	require.NoError(t, err)
	return svc
}

func TestService_Generate(t *testing.T) {
	t.Run("Should return ErrNotReady without a model", func(t *testing.T) {
		p := &scriptedProvider{}
		svc := newService(t, p, 3, 0)
		_, err := svc.Generate(t.Context(), trainer.NewStore())
		assert.ErrorIs(t, err, ErrNotReady)
		assert.Zero(t, p.calls.Load())
	})

	t.Run("Should return the first non-empty sample", func(t *testing.T) {
		p := &scriptedProvider{samples: []string{"", "  ", "hello"}}
		svc := newService(t, p, 5, 0)
		text, err := svc.Generate(t.Context(), readyStore(t))
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
		assert.Equal(t, int64(3), p.calls.Load())
	})

	t.Run("Should try exactly MaxTries times before the sentinel", func(t *testing.T) {
		p := &scriptedProvider{}
		svc := newService(t, p, 4, 0)
		text, err := svc.Generate(t.Context(), readyStore(t))
		require.NoError(t, err)
		assert.Equal(t, Sentinel, text)
		assert.Equal(t, int64(4), p.calls.Load())
	})

	t.Run("Should try once when MaxTries is one", func(t *testing.T) {
		p := &scriptedProvider{}
		svc := newService(t, p, 1, 0)
		text, err := svc.Generate(t.Context(), readyStore(t))
		require.NoError(t, err)
		assert.Equal(t, Sentinel, text)
		assert.Equal(t, int64(1), p.calls.Load())
	})

	t.Run("Should treat provider panics as empty attempts", func(t *testing.T) {
		p := &scriptedProvider{panics: true}
		svc := newService(t, p, 2, 0)
		text, err := svc.Generate(t.Context(), readyStore(t))
		require.NoError(t, err)
		assert.Equal(t, Sentinel, text)
		assert.Equal(t, int64(2), p.calls.Load())
	})

	t.Run("Should return the context error when canceled", func(t *testing.T) {
		svc := newService(t, &scriptedProvider{}, 3, 0)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := svc.Generate(ctx, readyStore(t))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestService_Reply(t *testing.T) {
	t.Run("Should reply with the not ready message", func(t *testing.T) {
		svc := newService(t, &scriptedProvider{}, 1, 0)
		var got string
		err := svc.Reply(t.Context(), trainer.NewStore(), ReplierFunc(func(_ context.Context, text string) error {
			got = text
			return nil
		}))
		require.NoError(t, err)
		assert.Equal(t, NotReadyMessage, got)
	})

	t.Run("Should wait the typing delay before replying", func(t *testing.T) {
		svc := newService(t, &scriptedProvider{samples: []string{"hi"}}, 1, 30*time.Millisecond)
		start := time.Now()
		var got string
		err := svc.Reply(t.Context(), readyStore(t), ReplierFunc(func(_ context.Context, text string) error {
			got = text
			return nil
		}))
		require.NoError(t, err)
		assert.Equal(t, "hi", got)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("Should propagate replier errors", func(t *testing.T) {
		svc := newService(t, &scriptedProvider{samples: []string{"hi"}}, 1, 0)
		boom := errors.New("send failed")
		err := svc.Reply(t.Context(), readyStore(t), ReplierFunc(func(context.Context, string) error {
			return boom
		}))
		assert.ErrorIs(t, err, boom)
	})
}
