// Package cmd provides the CLI commands for routerctl.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/config"
	"github.com/foldermind/router/internal/logging"
	"github.com/foldermind/router/internal/router"
	"github.com/foldermind/router/pkg/version"
)

// defaultDims is the embedding dimensionality routerctl uses when no
// embedder model is wired in. Production callers supply their own
// capability.Embedder via router.Build; routerctl's StaticEmbedder
// exists only to drive the demo/ops subcommands end to end.
const defaultDims = 64

var (
	configPath string
	debugMode  bool
	logCleanup func()
)

// NewRootCmd creates the root command for the routerctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "routerctl",
		Short:   "Drive the semantic folder-routing engine from the command line",
		Version: version.Version,
		Long: `routerctl is a thin operational surface over the routing core.

It distills, embeds, and routes concept candidates against an
in-memory vector index using the same stages a production embedder
would run. It's meant for demos and diagnostics, not as a persistent
service.`,
	}

	cmd.SetVersionTemplate("routerctl version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a router config YAML file (defaults to built-in config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.foldermind/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newRouteCmd())
	cmd.AddCommand(newRouteBatchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// startLogging enables file-based debug logging when --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	logCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

// stopLogging flushes and closes the debug log file, if one was opened.
func stopLogging(_ *cobra.Command, _ []string) error {
	if logCleanup != nil {
		slog.Info("debug logging stopped")
		logCleanup()
		logCleanup = nil
	}
	return nil
}

// loadConfig resolves the effective config from the --config flag.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// buildEngine wires a fresh Router against an in-memory vector index
// and the static embeddings fallback, mirroring router.Build's
// production wiring path.
func buildEngine(cfg *config.Config) *router.Router {
	index := capability.NewMemoryVectorIndex(defaultDims)
	distiller := capability.NewStaticDistiller()
	embedder := capability.NewStaticEmbedder(defaultDims)
	return router.Build(*cfg, index, distiller, embedder)
}
