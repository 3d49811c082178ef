package speak

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/senvr/senvr/cli/helpers"
	"github.com/senvr/senvr/engine/export"
	"github.com/senvr/senvr/engine/generate"
	"github.com/senvr/senvr/engine/model/markov"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/worker"
	"github.com/senvr/senvr/pkg/config"
	"github.com/senvr/senvr/pkg/logger"
	"github.com/spf13/cobra"
)

// NewSpeakCommand creates the command that samples text from a snapshot
func NewSpeakCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "speak",
		Short: "Generate text from a model snapshot",
		Args:  cobra.NoArgs,
		RunE:  executeSpeakCommand,
	}
	command.Flags().String("snapshot", "", "Snapshot file written by crawl --out or GET /export")
	command.Flags().IntP("count", "n", 1, "Number of lines to generate")
	_ = command.MarkFlagRequired("snapshot")
	return command
}

func executeSpeakCommand(cobraCmd *cobra.Command, _ []string) error {
	ctx := cobraCmd.Context()
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return fmt.Errorf("configuration missing from context")
	}
	path, err := cobraCmd.Flags().GetString("snapshot")
	if err != nil {
		return fmt.Errorf("failed to get snapshot flag: %w", err)
	}
	count, err := cobraCmd.Flags().GetInt("count")
	if err != nil {
		return fmt.Errorf("failed to get count flag: %w", err)
	}
	return Run(ctx, cfg, path, count, cobraCmd.OutOrStdout())
}

// Run restores the snapshot at path into a fresh scope and writes count generated
// lines to w. A snapshot without a model prints the not-ready message once.
func Run(ctx context.Context, cfg *config.Config, path string, count int, w io.Writer) error {
	snap, err := readSnapshot(ctx, path)
	if err != nil {
		return err
	}
	provider := markov.NewProvider()
	pool := worker.NewPool(cfg.ML.Workers)
	registry := trainer.NewRegistry(trainer.RegistryOptions{
		SampleSize: max(cfg.ML.SampleSize, 1),
		Provider:   provider,
		Pool:       pool,
	})
	scope := registry.Global()
	if err := export.Restore(snap, scope, provider); err != nil {
		return err
	}
	generator, err := generate.NewService(provider, pool, generate.Options{
		MaxTries:   cfg.ML.MaxTries,
		RetryDelay: cfg.ML.RetryDelay,
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("Snapshot restored", "scope", snap.Scope, "units", snap.Units)
	for range max(count, 1) {
		text, err := generator.Generate(ctx, scope.Store)
		if errors.Is(err, generate.ErrNotReady) {
			_, err = fmt.Fprintln(w, generate.NotReadyMessage)
			return err
		}
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return err
		}
	}
	return nil
}

func readSnapshot(ctx context.Context, path string) (*export.Snapshot, error) {
	var snap *export.Snapshot
	err := helpers.WithFileLock(ctx, path, false, func() error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		snap, err = export.Read(f)
		return err
	})
	return snap, err
}
