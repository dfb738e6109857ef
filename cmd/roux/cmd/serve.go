package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rouxgraph/roux/internal/config"
	"github.com/rouxgraph/roux/internal/facade"
	"github.com/rouxgraph/roux/internal/logging"
	"github.com/rouxgraph/roux/internal/mcp"
	"github.com/rouxgraph/roux/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over the vault's knowledge graph",
		Long: `Starts the MCP server: opens the document cache and vector
index, attaches a filesystem watcher for live reconciliation, and serves
the query façade's tool set over the given transport (stdio only).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	return cmd
}

func runServe(ctx context.Context, transport string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	root, err = config.FindProjectRoot(root)
	if err != nil {
		return fmt.Errorf("failed to resolve vault root: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if transport != "" {
		cfg.Server.Transport = transport
	}

	// The stdio transport below owns stdout for JSON-RPC frames, so the
	// server's own logger must never touch stdout or stderr regardless of
	// whatever the --debug flag configured at the root command.
	mcpLoggingCleanup, err := logging.SetupMCPMode()
	if err != nil {
		return fmt.Errorf("failed to set up MCP-mode logging: %w", err)
	}
	defer mcpLoggingCleanup()
	logger := slog.Default()

	coord, cache, vectors, registry, err := buildCoordinator(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = cache.Close() }()
	defer func() { _ = vectors.Close() }()

	logger.Info("running initial sync", slog.String("root", cfg.Paths.Root))
	if err := coord.Sync(ctx); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	w := watcher.New(watcher.Options{
		RootDir:      cfg.Paths.Root,
		Extensions:   registry.Extensions(),
		Debounce:     cfg.Watcher.DebounceDuration(),
		PollInterval: cfg.Watcher.PollIntervalDuration(),
	}, logger)
	coord.AttachWatcher(ctx, w)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	f := facade.New(cache, vectors, coord, logger)

	srv, err := mcp.NewServer(f, logger)
	if err != nil {
		return fmt.Errorf("failed to build MCP server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	return srv.Serve(ctx, cfg.Server.Transport)
}
