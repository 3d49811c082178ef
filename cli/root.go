package cli

import (
	"github.com/senvr/senvr/cli/cmd/crawl"
	"github.com/senvr/senvr/cli/cmd/serve"
	"github.com/senvr/senvr/cli/cmd/speak"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "senvr",
		Short:        "Incremental text model trainer",
		SilenceUsage: true,
	}
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return SetupGlobalConfig(cmd)
	}
	addGlobalFlags(root)
	root.AddCommand(
		serve.NewServeCommand(),
		crawl.NewCrawlCommand(),
		speak.NewSpeakCommand(),
		ConfigCmd(),
	)
	return root
}

func addGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.String("log-level", "", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Output logs in JSON format")
	flags.Bool("log-source", false, "Include source code location in logs")
	flags.String("env-file", defaultEnvFile, "Path to the environment variables file")
	flags.String("config", "", "Path to a YAML configuration file")
	flags.Int("sample-size", 0, "Units buffered per scope before a training cycle (ML_SAMPLE_SIZE)")
	flags.Int("tasks", 0, "Maximum channels crawled at once (ML_TASKS)")
	flags.Int("max-tries", 0, "Generation attempts before giving up (ML_MAX_TRIES)")
	flags.String("scope", "", "Training scope: global or author (ML_SCOPE)")
	flags.String("store", "", "Store driver: memory, sqlite, redis or miniredis")
	flags.String("db", "", "SQLite database path for the sqlite store")
	flags.Int("port", 0, "HTTP server port")
}
