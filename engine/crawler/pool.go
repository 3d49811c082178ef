package crawler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/senvr/senvr/engine/corpus"
	monitoringmetrics "github.com/senvr/senvr/engine/infra/monitoring/metrics"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/watermark"
	"github.com/senvr/senvr/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"
)

// Options configures a Pool.
type Options struct {
	// Tasks caps how many channels are crawled at once.
	Tasks   int
	Shuffle bool
	Meter   metric.Meter
}

// Report summarizes one pool run.
type Report struct {
	Session   string
	Results   []Result
	MaxActive int
	Duration  time.Duration
}

// Accepted sums accepted units across channels.
func (r *Report) Accepted() int {
	total := 0
	for i := range r.Results {
		total += r.Results[i].Accepted
	}
	return total
}

// Pool crawls every channel of a Source with at most Tasks crawlers in flight.
type Pool struct {
	source   Source
	ingestor *trainer.Ingestor
	marks    watermark.Store
	opts     Options
	active   atomic.Int64
	peak     atomic.Int64
	gauge    metric.Int64UpDownCounter
	channels metric.Int64Counter
}

func NewPool(source Source, ingestor *trainer.Ingestor, marks watermark.Store, opts Options) (*Pool, error) {
	if opts.Tasks < 1 {
		opts.Tasks = 1
	}
	p := &Pool{source: source, ingestor: ingestor, marks: marks, opts: opts}
	if opts.Meter != nil {
		var err error
		p.gauge, err = opts.Meter.Int64UpDownCounter(
			monitoringmetrics.MetricNameWithSubsystem("crawler", "active"),
			metric.WithDescription("Channel crawlers currently running"),
			metric.WithUnit("1"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create crawler active gauge: %w", err)
		}
		p.channels, err = opts.Meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem("crawler", "channels_total"),
			metric.WithDescription("Channel crawls by outcome"),
			metric.WithUnit("1"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create crawler channels counter: %w", err)
		}
	}
	return p, nil
}

// MaxActive returns the highest number of concurrently running crawlers observed.
func (p *Pool) MaxActive() int {
	return int(p.peak.Load())
}

// Active returns the number of crawlers running right now.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Run crawls every channel and then flushes every scope once. Per-channel failures
// are reported in the Report and never abort siblings. Cancellation stops admitting
// new channels; crawlers already running stop between messages and flush.
func (p *Pool) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	session := uuid.NewString()
	log := logger.FromContext(ctx).With("session", session)
	ctx = logger.ContextWithLogger(ctx, log)
	channels, err := p.source.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	if p.opts.Shuffle {
		channels = slices.Clone(channels)
		rand.Shuffle(len(channels), func(i, j int) { channels[i], channels[j] = channels[j], channels[i] })
	}
	log.Info("Starting crawl", "channels", len(channels), "tasks", p.opts.Tasks)
	results := make([]Result, len(channels))
	admitted := make([]bool, len(channels))
	sem := semaphore.NewWeighted(int64(p.opts.Tasks))
	var wg sync.WaitGroup
	for i, channel := range channels {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		admitted[i] = true
		wg.Go(func() {
			defer sem.Release(1)
			results[i] = p.crawl(ctx, channel)
		})
	}
	wg.Wait()
	report := &Report{Session: session, MaxActive: p.MaxActive()}
	for i := range channels {
		if admitted[i] {
			report.Results = append(report.Results, results[i])
		}
	}
	if err := p.ingestor.Registry().FlushAll(context.WithoutCancel(ctx)); err != nil {
		log.Error("Failed to flush scopes after crawl", "error", err)
	}
	report.Duration = time.Since(start)
	log.Info("All caught up",
		"channels", len(report.Results),
		"accepted", report.Accepted(),
		"max_active", report.MaxActive,
		"duration", report.Duration,
	)
	return report, nil
}

func (p *Pool) crawl(ctx context.Context, channel corpus.ChannelID) (res Result) {
	p.enter(ctx)
	defer p.leave(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("Crawler panicked",
				"channel", channel,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = Result{Channel: channel, Err: fmt.Errorf("crawler panic: %v", r)}
		}
		p.recordOutcome(ctx, &res)
	}()
	return New(channel, p.source, p.ingestor, p.marks).Crawl(ctx)
}

func (p *Pool) enter(ctx context.Context) {
	n := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if p.gauge != nil {
		p.gauge.Add(ctx, 1)
	}
}

func (p *Pool) leave(ctx context.Context) {
	p.active.Add(-1)
	if p.gauge != nil {
		p.gauge.Add(ctx, -1)
	}
}

func (p *Pool) recordOutcome(ctx context.Context, res *Result) {
	if p.channels == nil {
		return
	}
	outcome := "completed"
	switch {
	case res.Forbidden:
		outcome = "forbidden"
	case res.Err != nil:
		outcome = "failed"
	case res.Stopped:
		outcome = "stopped"
	}
	p.channels.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
