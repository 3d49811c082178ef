// Package trainer turns drained sample batches into models and merges them into the
// live model of a scope.
package trainer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/model"
	"github.com/senvr/senvr/engine/worker"
	"github.com/senvr/senvr/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "senvr.trainer"

// CycleResult describes one drain-build-merge cycle.
type CycleResult struct {
	Units     int
	Trained   bool
	Conflicts int
	Duration  time.Duration
	// Err is the provider failure that caused the batch to be dropped.
	Err error
}

// Coordinator runs training cycles for one scope.
type Coordinator struct {
	name     string
	provider model.Provider
	pool     *worker.Pool
	store    *Store
	metrics  *Metrics
	tracer   trace.Tracer
	counters Counters
}

// NewCoordinator wires a coordinator for scope name. metrics may be nil.
func NewCoordinator(
	name string,
	provider model.Provider,
	pool *worker.Pool,
	store *Store,
	metrics *Metrics,
) *Coordinator {
	return &Coordinator{
		name:     name,
		provider: provider,
		pool:     pool,
		store:    store,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

func (c *Coordinator) Name() string {
	return c.name
}

// Counters returns the throughput counters of this coordinator.
func (c *Coordinator) Counters() CountersSnapshot {
	return c.counters.Snapshot()
}

// RunCycle drains buf and merges a model built from the batch into the store. An empty
// buffer is a no-op. Provider failures drop the batch, leave the live model untouched
// and are reported through CycleResult.Err. A ctx that is already done returns its
// error and leaves the buffer as it was; once drained, a batch is always carried
// through build and merge.
func (c *Coordinator) RunCycle(ctx context.Context, buf *corpus.Buffer) (CycleResult, error) {
	if err := ctx.Err(); err != nil {
		return CycleResult{}, fmt.Errorf("training cycle for %s: %w", c.name, err)
	}
	ctx, span := c.tracer.Start(ctx, "senvr.trainer.run_cycle",
		trace.WithAttributes(attribute.String("scope", c.name)))
	defer span.End()
	log := logger.FromContext(ctx).With("scope", c.name)
	start := time.Now()
	batch := buf.DrainAll()
	if len(batch) == 0 {
		c.metrics.recordCycle(ctx, c.name, outcomeEmpty, 0, 0)
		return CycleResult{}, nil
	}
	span.SetAttributes(attribute.Int("units", len(batch)))
	work := context.WithoutCancel(ctx)
	result := CycleResult{Units: len(batch)}
	text := strings.Join(corpus.Contents(batch), "\n")
	built, err := worker.Do(work, c.pool, func() (model.Model, error) {
		return c.provider.Build(text)
	})
	if err == nil {
		result.Conflicts, err = c.merge(work, built)
	}
	result.Duration = time.Since(start)
	c.counters.record(result.Units, result.Duration)
	if err != nil {
		result.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch dropped")
		log.Warn("Dropping training batch", "units", result.Units, "error", err)
		c.metrics.recordCycle(ctx, c.name, outcomeFailed, result.Units, result.Duration)
		return result, nil
	}
	result.Trained = true
	span.SetAttributes(attribute.Int("conflicts", result.Conflicts))
	log.Debug("Training cycle complete",
		"units", result.Units,
		"duration", result.Duration,
		"conflicts", result.Conflicts,
	)
	c.metrics.recordCycle(ctx, c.name, outcomeTrained, result.Units, result.Duration)
	return result, nil
}

// merge combines built into the live model off-lock and installs the result. When
// another cycle swapped first the combine is redone against the newer model so no
// batch is lost.
func (c *Coordinator) merge(ctx context.Context, built model.Model) (int, error) {
	conflicts := 0
	for {
		live, gen, ok := c.store.Current()
		next := built
		if ok {
			combined, err := worker.Do(ctx, c.pool, func() (model.Model, error) {
				return c.provider.Combine(live, built)
			})
			if err != nil {
				return conflicts, err
			}
			next = combined
		}
		if c.store.CompareAndSwap(gen, next) {
			return conflicts, nil
		}
		conflicts++
		c.metrics.recordConflict(ctx, c.name)
	}
}
