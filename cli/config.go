package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/senvr/senvr/cli/helpers"
	"github.com/senvr/senvr/pkg/config"
	"github.com/spf13/cobra"
)

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration diagnostics",
	}
	cmd.AddCommand(configShowCmd())
	return cmd
}

type configShowOutput struct {
	Config  *config.Config               `json:"config"`
	Sources map[string]config.SourceType `json:"sources,omitempty"`
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration and where each value came from",
		RunE:  runConfigShow,
	}
	cmd.Flags().String("format", string(helpers.OutputFormatAuto), "Output format: auto, json or text")
	cmd.Flags().Bool("sources", false, "Include the source of every environment-backed value")
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, svc, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	parsed, err := helpers.ParseOutputFormat(format)
	if err != nil {
		return err
	}
	showSources, err := cmd.Flags().GetBool("sources")
	if err != nil {
		return fmt.Errorf("failed to get sources flag: %w", err)
	}
	out := configShowOutput{Config: cfg}
	if showSources {
		out.Sources = make(map[string]config.SourceType)
		for _, path := range config.GenerateEnvToConfigMap() {
			out.Sources[path] = svc.GetSource(path)
		}
	}
	w := cmd.OutOrStdout()
	if helpers.ResolveOutputFormat(parsed, helpers.OutputFile(w)) == helpers.OutputFormatJSON {
		return helpers.WriteJSON(w, out)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ml.sample_size\t%d\n", cfg.ML.SampleSize)
	fmt.Fprintf(tw, "ml.tasks\t%d\n", cfg.ML.Tasks)
	fmt.Fprintf(tw, "ml.max_tries\t%d\n", cfg.ML.MaxTries)
	fmt.Fprintf(tw, "ml.scope\t%s\n", cfg.ML.Scope)
	fmt.Fprintf(tw, "store.driver\t%s\n", cfg.Store.Driver)
	fmt.Fprintf(tw, "server.address\t%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	if showSources {
		keys := make([]string, 0, len(out.Sources))
		for key := range out.Sources {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		fmt.Fprintln(tw, strings.Repeat("-", 20))
		for _, key := range keys {
			fmt.Fprintf(tw, "%s\t%s\n", key, out.Sources[key])
		}
	}
	return tw.Flush()
}
