package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/watermark"
	"github.com/senvr/senvr/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "senvr.crawler"

// Result summarizes one channel crawl.
type Result struct {
	Channel   corpus.ChannelID
	Accepted  int
	Skipped   int
	Watermark corpus.MessageID
	// Stopped is set when the crawl ended because its context was canceled.
	Stopped   bool
	Forbidden bool
	Err       error
}

// Crawler replays the history of one channel. It runs once; schedule a new Crawler to
// crawl the channel again.
type Crawler struct {
	channel  corpus.ChannelID
	source   Source
	ingestor *trainer.Ingestor
	marks    watermark.Store
	state    atomic.Int32
	touched  map[*trainer.Scope]struct{}
	order    []*trainer.Scope
}

func New(
	channel corpus.ChannelID,
	source Source,
	ingestor *trainer.Ingestor,
	marks watermark.Store,
) *Crawler {
	return &Crawler{
		channel:  channel,
		source:   source,
		ingestor: ingestor,
		marks:    marks,
		touched:  make(map[*trainer.Scope]struct{}),
	}
}

func (c *Crawler) State() State {
	return State(c.state.Load())
}

func (c *Crawler) setState(s State) {
	c.state.Store(int32(s))
}

// Crawl feeds every message after the channel watermark into the ingestor, advancing
// the watermark after each accepted unit, then flushes the partial batches it left
// behind. Cancellation of ctx stops the replay between messages; the flush and the
// watermark writes still complete.
func (c *Crawler) Crawl(ctx context.Context) Result {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "senvr.crawler.crawl",
		trace.WithAttributes(attribute.String("channel", string(c.channel))))
	log := logger.FromContext(ctx).With("channel", c.channel)
	res := Result{Channel: c.channel}
	defer func() {
		span.SetAttributes(
			attribute.Int("accepted", res.Accepted),
			attribute.Int("skipped", res.Skipped),
			attribute.Bool("stopped", res.Stopped),
			attribute.Bool("forbidden", res.Forbidden),
		)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, "crawl failed")
		}
		span.End()
	}()
	defer c.setState(StateDone)
	c.setState(StateCrawling)
	persist := context.WithoutCancel(ctx)
	after, ok, err := c.marks.Get(persist, c.channel)
	if err != nil {
		res.Err = fmt.Errorf("read watermark: %w", err)
		log.Error("Failed to read watermark", "error", err)
		return res
	}
	var from *corpus.MessageID
	if ok {
		from = &after
		res.Watermark = after
	}
	log.Debug("Crawling channel", "after", after)
	for msg, err := range c.source.FetchHistory(ctx, c.channel, from) {
		if ctx.Err() != nil {
			res.Stopped = true
			break
		}
		if err != nil {
			c.fail(ctx, &res, err)
			break
		}
		accepted, err := c.process(ctx, msg)
		if accepted {
			res.Accepted++
			if err := c.marks.Advance(persist, c.channel, msg.ID); err != nil {
				res.Err = fmt.Errorf("advance watermark: %w", err)
				log.Error("Failed to advance watermark", "message", msg.ID, "error", err)
				break
			}
			res.Watermark = msg.ID
		} else if err == nil {
			res.Skipped++
		}
		if err != nil {
			if ctx.Err() != nil {
				res.Stopped = true
			} else {
				res.Err = err
				log.Error("Failed to process message", "message", msg.ID, "error", err)
			}
			break
		}
		c.setState(StateCrawling)
	}
	if !res.Stopped && ctx.Err() != nil {
		res.Stopped = true
	}
	c.flush(persist, log)
	log.Info("Channel crawl finished",
		"accepted", res.Accepted,
		"skipped", res.Skipped,
		"watermark", res.Watermark,
		"stopped", res.Stopped,
	)
	return res
}

func (c *Crawler) fail(ctx context.Context, res *Result, err error) {
	log := logger.FromContext(ctx).With("channel", c.channel)
	switch {
	case errors.Is(err, ErrForbidden):
		res.Forbidden = true
		log.Warn("No read access to channel", "error", err)
	case ctx.Err() != nil:
		res.Stopped = true
		return
	default:
		log.Error("Failed to fetch channel history", "error", err)
	}
	res.Err = err
}

func (c *Crawler) process(ctx context.Context, msg Message) (bool, error) {
	c.setState(StateFiltering)
	if msg.Bot || c.source.IsBotAuthor(msg) {
		return false, nil
	}
	c.setState(StateEnqueuing)
	scope, accepted, err := c.ingestor.Enqueue(ctx, msg.Unit())
	if err != nil || !accepted {
		return false, err
	}
	if _, ok := c.touched[scope]; !ok {
		c.touched[scope] = struct{}{}
		c.order = append(c.order, scope)
	}
	if scope.Buffer.Full() {
		c.setState(StateTraining)
		if _, err := c.ingestor.TrainIfFull(ctx, scope); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (c *Crawler) flush(ctx context.Context, log logger.Logger) {
	c.setState(StateFlushing)
	for _, scope := range c.order {
		if _, err := scope.RunCycle(ctx); err != nil {
			log.Error("Failed to flush scope", "scope", scope.Name, "error", err)
		}
	}
}
