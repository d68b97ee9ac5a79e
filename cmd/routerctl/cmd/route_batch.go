package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/foldermind/router/internal/capability"
)

func newRouteBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route-batch <dir>",
		Short: "Route every file in a directory and run batch clustering",
		Long: `route-batch reads every regular file directly inside the named
directory as a concept candidate, routes each one, then runs the
greedy single-link clusterer over the batch and prints the resulting
cluster proposals and folder suggestions as JSON.`,
		Example: `  # Route and cluster a batch of notes
  routerctl route-batch notes/inbox`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRouteBatch(cmd, args[0])
		},
	}
	return cmd
}

func runRouteBatch(cmd *cobra.Command, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var candidates []capability.ConceptCandidate
	for i, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		candidates = append(candidates, capability.ConceptCandidate{
			ID:      entry.Name(),
			RawText: string(raw),
			Source:  capability.ConceptSource{BatchID: "cli-batch", Timestamp: time.Now()},
			Index:   i,
		})
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine := buildEngine(cfg)

	result, err := engine.RouteBatch(context.Background(), candidates)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(struct {
		Clusters    interface{} `json:"clusters"`
		Suggestions interface{} `json:"suggestions"`
	}{
		Clusters:    result.Clusters,
		Suggestions: result.Suggestions,
	})
}
