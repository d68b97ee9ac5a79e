package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/cluster"
)

// routeOutput is the JSON shape printed by `route`: the routing
// decision plus any expansion opportunity DetectExpansion surfaced for
// an unsorted placement.
type routeOutput struct {
	Decision  capability.RoutingDecision    `json:"decision"`
	Expansion *cluster.ExpansionOpportunity `json:"expansion,omitempty"`
}

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route <file>",
		Short: "Distill, embed, and route a single candidate read from a file",
		Long: `route reads the named file's contents as a concept candidate's raw
text, runs it through distill, embed, duplicate-check, and decision
stages, and prints the resulting routing decision as JSON. When the
candidate lands in Unsorted, it also checks whether enough similar
unsorted concepts now exist to propose a new folder, reporting that
under "expansion" when found.`,
		Example: `  # Route a single note
  routerctl route notes/graph-theory.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, args[0])
		},
	}
	return cmd
}

func runRoute(cmd *cobra.Command, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine := buildEngine(cfg)

	candidate := capability.ConceptCandidate{
		ID:      filepath.Base(path),
		RawText: string(raw),
		Source:  capability.ConceptSource{BatchID: "cli", Timestamp: time.Now()},
	}

	result, err := engine.Route(context.Background(), candidate)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(routeOutput{Decision: result.Decision, Expansion: result.Expansion})
}
