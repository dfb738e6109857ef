package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rouxgraph/roux/internal/config"
	"github.com/rouxgraph/roux/internal/coordinator"
	"github.com/rouxgraph/roux/internal/graph"
	"github.com/rouxgraph/roux/internal/ui"
)

var statusStyles = ui.DefaultStyles()

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show knowledge graph health and hub summary",
		Long: `Display a one-screen health summary of the vault's knowledge
graph: node and ghost counts, and the top nodes by in-degree.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
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

	coord, cache, vectors, _, err := buildCoordinator(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = cache.Close() }()
	defer func() { _ = vectors.Close() }()

	nodes, err := cache.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}

	var ghosts int
	links := make([]graph.NodeLinks, 0, len(nodes))
	for _, n := range nodes {
		if n.IsGhost {
			ghosts++
		}
		links = append(links, graph.NodeLinks{ID: n.ID, OutgoingLinks: n.OutgoingLinks})
	}
	g := graph.Build(links)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, statusStyles.Header.Render("roux status"), "—", root)
	fmt.Fprintf(out, "%s %d\n", statusStyles.Label.Render("nodes:"), g.NodeCount())
	if ghosts > 0 {
		fmt.Fprintf(out, "%s %s\n", statusStyles.Label.Render("ghosts:"),
			statusStyles.Warning.Render(fmt.Sprintf("%d (wiki-links with no matching file)", ghosts)))
	} else {
		fmt.Fprintf(out, "%s %s\n", statusStyles.Label.Render("ghosts:"), statusStyles.Success.Render("0"))
	}
	fmt.Fprintf(out, "%s %s\n", statusStyles.Label.Render("embedder:"), activeEmbedderModel(coord))

	hubs := g.Hubs(graph.MetricInDegree, 5)
	if len(hubs) > 0 {
		var body strings.Builder
		body.WriteString(statusStyles.Label.Render("top hubs (in-degree)"))
		body.WriteString("\n")
		for _, h := range hubs {
			fmt.Fprintf(&body, "%-14s %d\n", h.ID, h.Degree)
		}
		fmt.Fprintln(out, statusStyles.Panel.Render(strings.TrimRight(body.String(), "\n")))
	}

	return nil
}

func activeEmbedderModel(coord *coordinator.Coordinator) string {
	active := coord.Embeds().Active()
	if active == nil {
		return "none"
	}
	return active.ModelID()
}
