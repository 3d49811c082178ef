// Package cmd holds the wiring shared by the CLI subcommands: it turns a loaded
// configuration into the training pipeline and its storage.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/generate"
	"github.com/senvr/senvr/engine/infra/cache"
	"github.com/senvr/senvr/engine/infra/server/appstate"
	"github.com/senvr/senvr/engine/infra/sqlite"
	"github.com/senvr/senvr/engine/model/markov"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/watermark"
	"github.com/senvr/senvr/engine/worker"
	"github.com/senvr/senvr/pkg/config"
	"github.com/senvr/senvr/pkg/logger"
	"go.opentelemetry.io/otel/metric"
)

const (
	driverMemory    = "memory"
	driverSQLite    = "sqlite"
	driverRedis     = "redis"
	driverMiniredis = "miniredis"
)

// Pipeline is every long-lived component a command needs.
type Pipeline struct {
	Config     *config.Config
	Provider   *markov.Provider
	Registry   *trainer.Registry
	Ingestor   *trainer.Ingestor
	Generator  *generate.Service
	Watermarks watermark.Store

	// Messages is set for the sqlite driver only.
	Messages *sqlite.MessageRepo

	// Seen dedupes live intake. It is the message repository for sqlite and an
	// expiring redis log for the redis drivers.
	Seen appstate.MessageLog

	// Redis is set for the redis and miniredis drivers.
	Redis  redis.UniversalClient
	Prefix string

	// Meter may be nil.
	Meter metric.Meter

	closers []func(context.Context) error
}

// NewPipeline opens the configured store and builds the registry, ingestor and
// generator on one shared worker pool. meter may be nil.
func NewPipeline(ctx context.Context, cfg *config.Config, meter metric.Meter) (*Pipeline, error) {
	p := &Pipeline{
		Config:   cfg,
		Provider: markov.NewProvider(),
		Prefix:   cfg.Redis.Prefix,
		Meter:    meter,
	}
	if err := p.openStore(ctx); err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	metrics, err := trainer.NewMetrics(meter)
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	pool := worker.NewPool(cfg.ML.Workers)
	p.Registry = trainer.NewRegistry(trainer.RegistryOptions{
		Mode:       trainer.Mode(cfg.ML.Scope),
		SampleSize: cfg.ML.SampleSize,
		Provider:   p.Provider,
		Pool:       pool,
		Metrics:    metrics,
	})
	var opts []trainer.IngestorOption
	if recorder, ok := p.Seen.(trainer.Recorder); ok {
		opts = append(opts, trainer.WithRecorder(recorder))
	}
	p.Ingestor = trainer.NewIngestor(p.Registry, corpus.Filter{MinWords: cfg.ML.MinWords}, opts...)
	p.Generator, err = generate.NewService(p.Provider, pool, generate.Options{
		MaxTries:    cfg.ML.MaxTries,
		RetryDelay:  cfg.ML.RetryDelay,
		TypingDelay: cfg.ML.TypingDelay(),
		Meter:       meter,
	})
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	logger.FromContext(ctx).Info("Pipeline ready",
		"scope", cfg.ML.Scope,
		"sample_size", cfg.ML.SampleSize,
		"workers", pool.Size(),
		"store", cfg.Store.Driver,
	)
	return p, nil
}

func (p *Pipeline) openStore(ctx context.Context) error {
	switch p.Config.Store.Driver {
	case "", driverMemory:
		p.Watermarks = watermark.NewMemory()
	case driverSQLite:
		store, err := sqlite.NewStore(ctx, &sqlite.Config{Path: p.Config.Store.SQLitePath})
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		p.closers = append(p.closers, store.Close)
		messages, err := store.Messages()
		if err != nil {
			return fmt.Errorf("failed to create message repository: %w", err)
		}
		p.Watermarks = store.Watermarks()
		p.Messages = messages
		p.Seen = messages
	case driverRedis:
		client, err := cache.NewRedis(ctx, &cache.Config{
			URL:         p.Config.Redis.URL,
			Prefix:      p.Config.Redis.Prefix,
			PingTimeout: p.Config.Redis.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		p.closers = append(p.closers, func(context.Context) error { return client.Close() })
		p.Redis = client.Client()
		p.Watermarks = cache.NewWatermarkStore(p.Redis, p.Prefix)
		p.Seen = cache.NewMessageLog(p.Redis, p.Prefix, 0)
	case driverMiniredis:
		embedded, err := cache.NewMiniredisEmbedded(ctx)
		if err != nil {
			return err
		}
		p.closers = append(p.closers, embedded.Close)
		p.Redis = embedded.Client()
		p.Watermarks = cache.NewWatermarkStore(p.Redis, p.Prefix)
		p.Seen = cache.NewMessageLog(p.Redis, p.Prefix, 0)
	default:
		return fmt.Errorf("unknown store driver %q", p.Config.Store.Driver)
	}
	return nil
}

// Replay feeds every recorded message back through the ingestor and flushes. Records
// are read in full first so the single sqlite connection is free for re-recording.
// It is a no-op for drivers that keep no records.
func (p *Pipeline) Replay(ctx context.Context) (int, error) {
	if p.Messages == nil {
		return 0, nil
	}
	var units []corpus.TextUnit
	err := p.Messages.Each(ctx, func(rec sqlite.MessageRecord) error {
		units = append(units, rec.Unit())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replay message records: %w", err)
	}
	replayed := 0
	for _, unit := range units {
		accepted, err := p.Ingestor.Accept(ctx, unit)
		if accepted {
			replayed++
		}
		if err != nil {
			return replayed, fmt.Errorf("replay message %s: %w", unit.ID, err)
		}
	}
	if err := p.Registry.FlushAll(context.WithoutCancel(ctx)); err != nil {
		return replayed, err
	}
	logger.FromContext(ctx).Info("Replayed message records", "units", replayed)
	return replayed, nil
}

// Scope resolves a scope by name: "global" or an author that has been seen.
func (p *Pipeline) Scope(name string) (*trainer.Scope, bool) {
	return p.Registry.Lookup(name)
}

// Close releases the store in reverse order of opening.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
