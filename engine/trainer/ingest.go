package trainer

import (
	"context"
	"fmt"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/pkg/logger"
)

// Recorder persists accepted units, for example as a dedup table.
type Recorder interface {
	Record(ctx context.Context, unit corpus.TextUnit) error
}

// Ingestor is the single entry point for units coming from crawlers and live intake.
type Ingestor struct {
	registry *Registry
	filter   corpus.Filter
	recorder Recorder
}

// IngestorOption customizes an Ingestor.
type IngestorOption func(*Ingestor)

// WithRecorder records every accepted unit. Recording failures are logged only.
func WithRecorder(r Recorder) IngestorOption {
	return func(i *Ingestor) {
		i.recorder = r
	}
}

func NewIngestor(registry *Registry, filter corpus.Filter, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{registry: registry, filter: filter}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Ingestor) Registry() *Registry {
	return i.registry
}

// Accept filters unit and queues it into its scope. When the put fills the buffer the
// scope trains synchronously before Accept returns. accepted is false for content the
// filter rejects.
func (i *Ingestor) Accept(ctx context.Context, unit corpus.TextUnit) (bool, error) {
	scope, ok, err := i.Enqueue(ctx, unit)
	if err != nil || !ok {
		return false, err
	}
	if _, err := i.TrainIfFull(ctx, scope); err != nil {
		return true, err
	}
	return true, nil
}

// Enqueue filters unit and puts it into its scope without training. It returns the
// scope the unit went to. In author mode units from an author whose id is the global
// scope name are skipped like filtered content.
func (i *Ingestor) Enqueue(ctx context.Context, unit corpus.TextUnit) (*Scope, bool, error) {
	if i.registry.Reserved(unit.Author) {
		logger.FromContext(ctx).Debug("Skipping unit from reserved author id", "message", unit.ID, "author", unit.Author)
		return nil, false, nil
	}
	content, ok := i.filter.Apply(unit.Content)
	if !ok {
		return nil, false, nil
	}
	unit.Content = content
	scope := i.registry.Select(unit)
	if err := scope.Buffer.Put(ctx, unit); err != nil {
		return nil, false, fmt.Errorf("queue unit %s: %w", unit.ID, err)
	}
	if i.recorder != nil {
		if err := i.recorder.Record(ctx, unit); err != nil {
			logger.FromContext(ctx).Warn("Failed to record message", "message", unit.ID, "error", err)
		}
	}
	return scope, true, nil
}

// TrainIfFull runs a cycle on scope when its buffer reached capacity. A started cycle
// is not interrupted by ctx since its batch has already left the buffer.
func (i *Ingestor) TrainIfFull(ctx context.Context, scope *Scope) (bool, error) {
	if !scope.Buffer.Full() {
		return false, nil
	}
	_, err := scope.RunCycle(context.WithoutCancel(ctx))
	return true, err
}
