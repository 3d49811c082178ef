package status

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/senvr/senvr/pkg/logger"
)

// Publisher shows a status to users, for example as a presence line.
type Publisher interface {
	PublishStatus(ctx context.Context, text string) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, text string) error

func (f PublisherFunc) PublishStatus(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Pump moves the freshest status from a Slot to a Publisher.
type Pump struct {
	slot      *Slot
	publisher Publisher
}

func NewPump(slot *Slot, publisher Publisher) *Pump {
	return &Pump{slot: slot, publisher: publisher}
}

// Publish pops one status and publishes it. It reports false when the slot was empty.
func (p *Pump) Publish(ctx context.Context) (bool, error) {
	text, ok := p.slot.Pop()
	if !ok {
		return false, nil
	}
	if err := p.publisher.PublishStatus(ctx, text); err != nil {
		return true, fmt.Errorf("publish status: %w", err)
	}
	return true, nil
}

// Runner schedules the reporter and the pump on their own intervals.
type Runner struct {
	reporter        *Reporter
	pump            *Pump
	interval        time.Duration
	publishInterval time.Duration
}

func NewRunner(reporter *Reporter, pump *Pump, interval, publishInterval time.Duration) *Runner {
	return &Runner{
		reporter:        reporter,
		pump:            pump,
		interval:        interval,
		publishInterval: publishInterval,
	}
}

// Run ticks until ctx ends. Intervals are rounded down to whole seconds, one second
// at least.
func (r *Runner) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(r.interval), cron.FuncJob(func() {
		if text, ok := r.reporter.Tick(ctx); ok {
			log.Debug("Status updated", "status", text)
		}
	}))
	if r.pump != nil {
		c.Schedule(cron.Every(r.publishInterval), cron.FuncJob(func() {
			if _, err := r.pump.Publish(ctx); err != nil {
				log.Warn("Failed to publish status", "error", err)
			}
		}))
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
