package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print routing metrics for a freshly built engine",
		Long: `stats builds a new engine and prints its Router.Stats() snapshot.

Because routerctl holds no state between invocations, this is mostly
useful as a schema reference; "route" and "route-batch" report their
own decisions directly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd)
		},
	}
	return cmd
}

func runStats(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine := buildEngine(cfg)

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(engine.Stats())
}
