package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/senvr/senvr/pkg/config"
	"github.com/senvr/senvr/pkg/logger"
	"github.com/spf13/cobra"
)

const defaultEnvFile = ".env"

// flagConfigPaths maps persistent flags to the configuration keys they override.
var flagConfigPaths = map[string]string{
	"log-level":   "runtime.log_level",
	"log-json":    "runtime.log_json",
	"sample-size": "ml.sample_size",
	"tasks":       "ml.tasks",
	"max-tries":   "ml.max_tries",
	"scope":       "ml.scope",
	"store":       "store.driver",
	"db":          "store.sqlite_path",
	"port":        "server.port",
}

// loadEnvFile loads the --env-file into the process environment. The default file
// is optional; an explicitly named one must exist.
func loadEnvFile(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// cliOverrides collects the flags the user actually set.
func cliOverrides(cmd *cobra.Command) (map[string]any, error) {
	overrides := make(map[string]any)
	for flag, path := range flagConfigPaths {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		overrides[path] = f.Value.String()
	}
	return overrides, nil
}

// loadConfig resolves defaults, environment, the YAML file and flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, config.Service, error) {
	if err := loadEnvFile(cmd); err != nil {
		return nil, nil, err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	overrides, err := cliOverrides(cmd)
	if err != nil {
		return nil, nil, err
	}
	svc := config.NewService()
	cfg, err := svc.Load(context.Background(), config.NewYAMLProvider(configFile), config.NewCLIProvider(overrides))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, svc, nil
}

// SetupGlobalConfig loads configuration, initializes the logger and stores both in
// the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logSource, err := cmd.Flags().GetBool("log-source")
	if err != nil {
		return fmt.Errorf("failed to get log-source flag: %w", err)
	}
	log := logger.Setup(logger.LogLevel(cfg.Runtime.LogLevel), cfg.Runtime.LogJSON, logSource)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = logger.ContextWithLogger(ctx, log)
	cmd.SetContext(ctx)
	return nil
}
