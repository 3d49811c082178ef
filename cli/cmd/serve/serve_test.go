package serve

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/senvr/senvr/engine/crawler"
	"github.com/senvr/senvr/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyExport = `{
  "guild": {"id": "1", "name": "test"},
  "channel": {"id": "100", "name": "general"},
  "messages": [
    {"id": "1001", "type": "Default", "content": "hello there", "author": {"id": "7", "isBot": false}},
    {"id": "1003", "type": "Default", "content": "beep", "author": {"id": "9", "isBot": true}},
    {"id": "1004", "type": "Reply", "content": "general kenobi", "author": {"id": "8", "isBot": false}}
  ]
}`

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ML.SampleSize = 2
	cfg.ML.Tasks = 2
	cfg.ML.MaxTries = 3
	cfg.ML.Workers = 2
	cfg.Server.Enabled = false
	cfg.Monitoring.Enabled = false
	return cfg
}

func TestRun(t *testing.T) {
	t.Run("Should crawl startup history and stop on cancel", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "general.json")
		require.NoError(t, os.WriteFile(path, []byte(historyExport), 0o600))
		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
		defer cancel()
		var report *crawler.Report
		err := Run(ctx, testConfig(), Options{
			History: []string{path},
			OnCrawled: func(r *crawler.Report) {
				report = r
				cancel()
			},
		})
		require.NoError(t, err)
		require.NotNil(t, report)
		assert.Equal(t, 2, report.Accepted())
		require.Len(t, report.Results, 1)
		assert.NoError(t, report.Results[0].Err)
	})
	t.Run("Should fail when history cannot be opened", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
		defer cancel()
		err := Run(ctx, testConfig(), Options{History: []string{filepath.Join(t.TempDir(), "missing.json")}})
		assert.ErrorContains(t, err, "failed to open history")
	})
	t.Run("Should return when the context ends without work", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		assert.NoError(t, Run(ctx, testConfig(), Options{}))
	})
}
