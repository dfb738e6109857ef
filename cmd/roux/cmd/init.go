package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rouxgraph/roux/internal/coordinator"
	"github.com/rouxgraph/roux/internal/config"
	"github.com/rouxgraph/roux/internal/embed"
	"github.com/rouxgraph/roux/internal/output"
	"github.com/rouxgraph/roux/internal/reader"
	"github.com/rouxgraph/roux/internal/store"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a roux vault in the current directory",
		Long: `Initialize roux for the current directory.

This command:
1. Writes a .roux.yaml configuration template (unless one exists)
2. Opens the document cache and vector index under .roux/
3. Runs an initial sync over the vault's source files

After running, start the MCP server with 'roux serve'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runInit(ctx, cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .roux.yaml")
	return cmd
}

func runInit(ctx context.Context, cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	out.Statusf("📁", "Vault: %s", root)

	yamlPath := filepath.Join(root, config.ConfigFileName)
	if _, statErr := os.Stat(yamlPath); statErr == nil && !force {
		out.Status("ℹ️ ", ".roux.yaml already exists (use --force to overwrite)")
	} else {
		cfg := config.NewConfig()
		cfg.Paths.Root = root
		if err := cfg.WriteYAML(yamlPath); err != nil {
			return fmt.Errorf("failed to write .roux.yaml: %w", err)
		}
		out.Statusf("📝", "Created %s", yamlPath)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	coord, cache, vectors, _, err := buildCoordinator(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = cache.Close() }()
	defer func() { _ = vectors.Close() }()

	out.Status("📊", "Running initial sync...")
	if err := coord.Sync(ctx); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	nodes, err := cache.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}
	var ghosts int
	for _, n := range nodes {
		if n.IsGhost {
			ghosts++
		}
	}
	out.SyncSummary(coord.Graph().NodeCount(), ghosts)
	out.Newline()
	out.Status("📋", "Next step: run 'roux serve' to start the MCP server")
	return nil
}

// buildCoordinator opens the document cache and vector index under
// cfg.Paths.Root/.roux and wires them into a Store Coordinator with the
// default reader registry and a static fallback embedder. A nil logger
// defaults to slog.Default() in every component that takes one.
func buildCoordinator(cfg *config.Config, logger *slog.Logger) (*coordinator.Coordinator, *store.Cache, *store.VectorIndex, *reader.Registry, error) {
	dataDir := filepath.Join(cfg.Paths.Root, ".roux")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, nil, nil, err
	}

	cache, err := store.OpenCache(filepath.Join(dataDir, "cache.db"))
	if err != nil {
		return nil, nil, nil, nil, err
	}

	vectors, err := store.OpenVectorIndex(filepath.Join(dataDir, "vectors.db"), logger)
	if err != nil {
		_ = cache.Close()
		return nil, nil, nil, nil, err
	}

	registry := reader.NewDefaultRegistry()
	embeds := embed.NewRegistry()
	if err := embeds.Register(context.Background(), embed.NewStaticEmbedder()); err != nil {
		_ = cache.Close()
		_ = vectors.Close()
		return nil, nil, nil, nil, fmt.Errorf("failed to register embedder: %w", err)
	}

	coord := coordinator.New(coordinator.Config{
		RootDir:     cfg.Paths.Root,
		CacheDir:    dataDir,
		Extensions:  registry.Extensions(),
		GracePeriod: cfg.Watcher.GracePeriodDuration(),
	}, cache, vectors, registry, embeds, logger)

	return coord, cache, vectors, registry, nil
}
