// Package generate serves text from the live model of a scope while training keeps
// replacing it.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	monitoringmetrics "github.com/senvr/senvr/engine/infra/monitoring/metrics"
	"github.com/senvr/senvr/engine/model"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/worker"
	"github.com/senvr/senvr/pkg/logger"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// Sentinel is returned when every attempt produced nothing.
	Sentinel = "?"
	// NotReadyMessage is the reply sent while a scope has no model yet.
	NotReadyMessage = "No accessible model yet, please wait"

	minRetryDelay = time.Millisecond
)

var (
	// ErrNotReady is returned when the scope has not trained a model yet.
	ErrNotReady = errors.New("no model ready")

	errEmptySample = errors.New("model produced no text")
)

// Replier delivers generated text to whoever asked for it.
type Replier interface {
	Reply(ctx context.Context, text string) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, text string) error

func (f ReplierFunc) Reply(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Options configures a Service.
type Options struct {
	MaxTries    int
	RetryDelay  time.Duration
	TypingDelay time.Duration
	Meter       metric.Meter
}

// Service samples models on the worker pool with a bounded number of attempts.
type Service struct {
	provider model.Provider
	pool     *worker.Pool
	opts     Options
	requests metric.Int64Counter
}

func NewService(provider model.Provider, pool *worker.Pool, opts Options) (*Service, error) {
	if opts.MaxTries < 1 {
		opts.MaxTries = 1
	}
	if opts.RetryDelay < minRetryDelay {
		opts.RetryDelay = minRetryDelay
	}
	s := &Service{provider: provider, pool: pool, opts: opts}
	if opts.Meter != nil {
		counter, err := opts.Meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem("generate", "requests_total"),
			metric.WithDescription("Generation requests by outcome"),
			metric.WithUnit("1"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create generate requests counter: %w", err)
		}
		s.requests = counter
	}
	return s, nil
}

type sample struct {
	text string
	ok   bool
}

// Generate returns one sample from store. Every attempt re-reads the live model. After
// MaxTries empty attempts it returns Sentinel without error.
func (s *Service) Generate(ctx context.Context, store *trainer.Store) (string, error) {
	if !store.Ready() {
		s.record(ctx, "not_ready")
		return "", ErrNotReady
	}
	var text string
	attempts := 0
	backoff := retry.WithMaxRetries(uint64(s.opts.MaxTries-1), retry.NewConstant(s.opts.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		m, _, _ := store.Current()
		out, err := worker.Do(ctx, s.pool, func() (sample, error) {
			generated, ok := s.provider.Sample(m)
			return sample{text: generated, ok: ok}, nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		if !out.ok || strings.TrimSpace(out.text) == "" {
			return retry.RetryableError(errEmptySample)
		}
		text = out.text
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.record(ctx, "canceled")
			return "", ctxErr
		}
		logger.FromContext(ctx).Debug("Generation exhausted", "attempts", attempts, "error", err)
		s.record(ctx, "exhausted")
		return Sentinel, nil
	}
	s.record(ctx, "ok")
	return text, nil
}

// Reply generates text, waits the typing delay and hands the result to r. A scope
// without a model gets NotReadyMessage.
func (s *Service) Reply(ctx context.Context, store *trainer.Store, r Replier) error {
	text, err := s.Generate(ctx, store)
	switch {
	case errors.Is(err, ErrNotReady):
		text = NotReadyMessage
	case err != nil:
		return err
	}
	if s.opts.TypingDelay > 0 {
		timer := time.NewTimer(s.opts.TypingDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.Reply(ctx, text)
}

func (s *Service) record(ctx context.Context, outcome string) {
	if s.requests == nil {
		return
	}
	s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
