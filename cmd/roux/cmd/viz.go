package cmd

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rouxgraph/roux/internal/config"
	"github.com/rouxgraph/roux/internal/facade"
)

func newVizCmd() *cobra.Command {
	var out string
	var limit int

	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Export a static HTML snapshot of the knowledge graph",
		Long: `Renders a read-only snapshot of the knowledge graph (node
id/title/tags and the edges between them) as a single self-contained HTML
file with an embedded JSON payload. Rendering the graph visually is left
to the browser; roux only produces the data.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runViz(cmd, out, limit)
		},
	}

	cmd.Flags().StringVar(&out, "out", "roux-graph.html", "Output HTML file path")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of nodes to include (0 = all, capped at 1000)")
	return cmd
}

func runViz(cmd *cobra.Command, outPath string, limit int) error {
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

	f := facade.New(cache, vectors, coord, nil)
	snap, err := f.GraphSnapshot(limit)
	if err != nil {
		return fmt.Errorf("failed to build graph snapshot: %w", err)
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal graph snapshot: %w", err)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer func() { _ = file.Close() }()

	if err := vizTemplate.Execute(file, vizData{GraphText: string(payload), GraphJS: template.JS(payload)}); err != nil {
		return fmt.Errorf("failed to render %s: %w", outPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d of %d node(s))\n", outPath, len(snap.Nodes), snap.Total)
	return nil
}

type vizData struct {
	// GraphText is rendered inside a <pre> block and HTML-escaped normally.
	GraphText string
	// GraphJS is valid JSON, safe to inline verbatim inside a <script> block.
	GraphJS template.JS
}

var vizTemplate = template.Must(template.New("viz").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>roux graph snapshot</title>
<style>
  body { font-family: sans-serif; margin: 2rem; }
  pre { background: #111; color: #9f9; padding: 1rem; overflow: auto; }
</style>
</head>
<body>
<h1>roux graph snapshot</h1>
<p>Embedded below as JSON; bring your own renderer (d3, cytoscape, vis-network).</p>
<pre id="graph-data">{{.GraphText}}</pre>
<script>
  window.ROUX_GRAPH = {{.GraphJS}};
</script>
</body>
</html>
`))
