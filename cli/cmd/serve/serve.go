package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/senvr/senvr/cli/cmd"
	"github.com/senvr/senvr/engine/crawler"
	"github.com/senvr/senvr/engine/infra/cache"
	"github.com/senvr/senvr/engine/infra/monitoring"
	"github.com/senvr/senvr/engine/infra/server"
	"github.com/senvr/senvr/engine/infra/server/appstate"
	"github.com/senvr/senvr/engine/infra/server/middleware/ratelimit"
	"github.com/senvr/senvr/engine/source/jsonexport"
	"github.com/senvr/senvr/engine/status"
	"github.com/senvr/senvr/pkg/config"
	"github.com/senvr/senvr/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Options tunes a serve run beyond the loaded configuration.
type Options struct {
	// History lists JSON export files crawled once at startup.
	History []string
	// OnCrawled is called after the startup crawl finished.
	OnCrawled func(*crawler.Report)
}

// NewServeCommand creates the long-running serve command
func NewServeCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Run the trainer, its HTTP surface and the status reporter",
		RunE:    executeServeCommand,
	}
	command.Flags().StringSlice("history", nil, "JSON history export files to crawl at startup")
	return command
}

func executeServeCommand(cobraCmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cobraCmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return fmt.Errorf("configuration missing from context")
	}
	history, err := cobraCmd.Flags().GetStringSlice("history")
	if err != nil {
		return fmt.Errorf("failed to get history flag: %w", err)
	}
	gin.SetMode(gin.ReleaseMode)
	return Run(ctx, cfg, Options{History: history})
}

// Run starts every component and blocks until ctx is canceled or one of them fails.
// Buffered units are flushed before it returns.
func Run(ctx context.Context, cfg *config.Config, opts Options) (err error) {
	log := logger.FromContext(ctx)
	mon := monitoring.NewWithFallback(ctx, &monitoring.Config{
		Enabled: cfg.Monitoring.Enabled,
		Path:    cfg.Monitoring.Path,
	})
	defer func() {
		if shutdownErr := mon.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			log.Warn("Failed to shut down monitoring", "error", shutdownErr)
		}
	}()
	pipeline, err := cmd.NewPipeline(ctx, cfg, mon.Meter())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := pipeline.Close(context.WithoutCancel(ctx)); closeErr != nil {
			log.Warn("Failed to close store", "error", closeErr)
		}
	}()
	if cfg.Store.Replay {
		if _, err := pipeline.Replay(ctx); err != nil {
			return err
		}
	}
	slot := status.NewSlot()
	runner := status.NewRunner(
		status.NewReporter(pipeline.Registry.Rate, slot),
		status.NewPump(slot, publisherFor(pipeline)),
		cfg.Status.Interval,
		cfg.Status.PublishInterval,
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	if cfg.Server.Enabled {
		srv, err := newServer(ctx, cfg, pipeline, slot, mon)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(gctx) })
	}
	if len(opts.History) > 0 {
		g.Go(func() error { return crawlHistory(gctx, cfg, pipeline, opts) })
	}
	err = g.Wait()
	pipeline.Registry.Close()
	if flushErr := pipeline.Registry.FlushAll(context.WithoutCancel(ctx)); flushErr != nil {
		log.Error("Failed to flush scopes on shutdown", "error", flushErr)
	}
	log.Info("Stopped", "total", pipeline.Registry.Total())
	return err
}

func publisherFor(pipeline *cmd.Pipeline) status.Publisher {
	if pipeline.Redis != nil {
		return cache.NewStatusChannel(pipeline.Redis, pipeline.Prefix)
	}
	return status.PublisherFunc(func(ctx context.Context, text string) error {
		logger.FromContext(ctx).Info("Status", "status", text)
		return nil
	})
}

func newServer(
	ctx context.Context,
	cfg *config.Config,
	pipeline *cmd.Pipeline,
	slot *status.Slot,
	mon *monitoring.Service,
) (*server.Server, error) {
	state, err := appstate.NewState(appstate.BaseDeps{
		Ingestor:   pipeline.Ingestor,
		Generator:  pipeline.Generator,
		Watermarks: pipeline.Watermarks,
		Messages:   pipeline.Seen,
		Slot:       slot,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create app state: %w", err)
	}
	opts := []server.Option{server.WithMonitoring(mon)}
	if cfg.Server.RateLimit.Enabled {
		limiter, err := newRateLimiter(cfg, pipeline, mon)
		if err != nil {
			return nil, err
		}
		opts = append(opts, server.WithRateLimiter(limiter))
	}
	return server.NewServer(ctx, server.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Timeout: cfg.Server.Timeout,
		MaxBody: cfg.Server.MaxBody,
	}, state, opts...), nil
}

func newRateLimiter(cfg *config.Config, pipeline *cmd.Pipeline, mon *monitoring.Service) (*ratelimit.Manager, error) {
	rl := ratelimit.DefaultConfig()
	rl.GlobalRate = ratelimit.RateConfig{
		Limit:  cfg.Server.RateLimit.Limit,
		Period: cfg.Server.RateLimit.Period,
	}
	if p := cfg.Monitoring.Path; p != "" {
		rl.ExcludedPaths = append(rl.ExcludedPaths, p)
	}
	client := pipeline.Redis
	if !cfg.Server.RateLimit.Shared {
		client = nil
	}
	manager, err := ratelimit.NewManager(rl, client, ratelimit.WithMeter(mon.Meter()))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}
	return manager, nil
}

func crawlHistory(ctx context.Context, cfg *config.Config, pipeline *cmd.Pipeline, opts Options) error {
	source, err := jsonexport.Open(opts.History...)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	pool, err := crawler.NewPool(source, pipeline.Ingestor, pipeline.Watermarks, crawler.Options{
		Tasks:   cfg.ML.Tasks,
		Shuffle: cfg.ML.ShuffleChannels,
		Meter:   pipeline.Meter,
	})
	if err != nil {
		return err
	}
	report, err := pool.Run(ctx)
	if err != nil {
		return err
	}
	if opts.OnCrawled != nil {
		opts.OnCrawled(report)
	}
	return nil
}
