package crawl

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/senvr/senvr/cli/cmd"
	"github.com/senvr/senvr/cli/helpers"
	"github.com/senvr/senvr/engine/crawler"
	"github.com/senvr/senvr/engine/export"
	"github.com/senvr/senvr/engine/source/jsonexport"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/pkg/config"
	"github.com/spf13/cobra"
)

// Options controls one crawl run.
type Options struct {
	Paths  []string
	Out    string
	Scope  string
	Indent bool
	Format helpers.OutputFormat
}

// Summary is what a crawl prints when it is done.
type Summary struct {
	Session   string          `json:"session"`
	Channels  []ChannelResult `json:"channels"`
	Accepted  int             `json:"accepted"`
	Total     uint64          `json:"total"`
	MaxActive int             `json:"max_active"`
	Duration  string          `json:"duration"`
	Snapshot  string          `json:"snapshot,omitempty"`
}

// ChannelResult is the per-channel part of a Summary.
type ChannelResult struct {
	Channel   string `json:"channel"`
	Accepted  int    `json:"accepted"`
	Skipped   int    `json:"skipped"`
	Watermark string `json:"watermark,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewCrawlCommand creates the one-shot crawl command
func NewCrawlCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "crawl <export.json|dir>...",
		Short: "Train on JSON history exports until caught up, then exit",
		Args:  cobra.MinimumNArgs(1),
		RunE:  executeCrawlCommand,
	}
	command.Flags().String("out", "", "Write a snapshot of the trained scope to this file")
	command.Flags().String("snapshot-scope", trainer.GlobalScope, "Scope written with --out")
	command.Flags().Bool("indent", false, "Indent the snapshot JSON")
	command.Flags().String("format", string(helpers.OutputFormatAuto), "Summary format: auto, json or text")
	return command
}

func executeCrawlCommand(cobraCmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cobraCmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return fmt.Errorf("configuration missing from context")
	}
	opts := Options{Paths: args}
	flags := cobraCmd.Flags()
	var err error
	if opts.Out, err = flags.GetString("out"); err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	if opts.Scope, err = flags.GetString("snapshot-scope"); err != nil {
		return fmt.Errorf("failed to get snapshot-scope flag: %w", err)
	}
	if opts.Indent, err = flags.GetBool("indent"); err != nil {
		return fmt.Errorf("failed to get indent flag: %w", err)
	}
	format, err := flags.GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if opts.Format, err = helpers.ParseOutputFormat(format); err != nil {
		return err
	}
	summary, err := Run(ctx, cfg, opts)
	if err != nil {
		return err
	}
	return Print(cobraCmd.OutOrStdout(), summary, opts.Format)
}

// Run crawls every channel in opts.Paths once, flushes, and optionally writes a
// snapshot of one scope.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Summary, error) {
	pipeline, err := cmd.NewPipeline(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	defer pipeline.Close(context.WithoutCancel(ctx))
	if cfg.Store.Replay {
		if _, err := pipeline.Replay(ctx); err != nil {
			return nil, err
		}
	}
	source, err := jsonexport.Open(opts.Paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	pool, err := crawler.NewPool(source, pipeline.Ingestor, pipeline.Watermarks, crawler.Options{
		Tasks:   cfg.ML.Tasks,
		Shuffle: cfg.ML.ShuffleChannels,
	})
	if err != nil {
		return nil, err
	}
	report, err := pool.Run(ctx)
	if err != nil {
		return nil, err
	}
	summary := summarize(report, pipeline.Registry.Total())
	if opts.Out != "" {
		if err := writeSnapshot(ctx, pipeline, opts); err != nil {
			return nil, err
		}
		summary.Snapshot = opts.Out
	}
	return summary, nil
}

func summarize(report *crawler.Report, total uint64) *Summary {
	s := &Summary{
		Session:   report.Session,
		Channels:  make([]ChannelResult, 0, len(report.Results)),
		Accepted:  report.Accepted(),
		Total:     total,
		MaxActive: report.MaxActive,
		Duration:  report.Duration.Round(time.Millisecond).String(),
	}
	for _, res := range report.Results {
		ch := ChannelResult{
			Channel:   string(res.Channel),
			Accepted:  res.Accepted,
			Skipped:   res.Skipped,
			Watermark: string(res.Watermark),
		}
		if res.Err != nil {
			ch.Error = res.Err.Error()
		}
		s.Channels = append(s.Channels, ch)
	}
	return s
}

func writeSnapshot(ctx context.Context, pipeline *cmd.Pipeline, opts Options) error {
	scope, ok := pipeline.Scope(opts.Scope)
	if !ok {
		return fmt.Errorf("scope %q not found", opts.Scope)
	}
	snap, err := export.Take(ctx, scope, pipeline.Watermarks, pipeline.Provider)
	if err != nil {
		return err
	}
	return helpers.WithFileLock(ctx, opts.Out, true, func() error {
		tmp := opts.Out + ".tmp"
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}
		if err := export.Write(f, snap, opts.Indent); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close snapshot: %w", err)
		}
		return os.Rename(tmp, opts.Out)
	})
}

// Print writes the summary as JSON or as a short human report.
func Print(w io.Writer, s *Summary, format helpers.OutputFormat) error {
	if helpers.ResolveOutputFormat(format, helpers.OutputFile(w)) == helpers.OutputFormatJSON {
		return helpers.WriteJSON(w, s)
	}
	fmt.Fprintf(w, "All caught up: %d units from %d channels in %s\n", s.Accepted, len(s.Channels), s.Duration)
	for _, ch := range s.Channels {
		line := fmt.Sprintf("  %-20s accepted=%d skipped=%d", ch.Channel, ch.Accepted, ch.Skipped)
		if ch.Error != "" {
			line += " error=" + ch.Error
		}
		fmt.Fprintln(w, line)
	}
	if s.Snapshot != "" {
		fmt.Fprintf(w, "Snapshot written to %s\n", s.Snapshot)
	}
	return nil
}
