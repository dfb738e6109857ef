package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rouxgraph/roux/internal/coordinator"
	"github.com/rouxgraph/roux/internal/facade"
	"github.com/rouxgraph/roux/internal/graph"
	"github.com/rouxgraph/roux/internal/store"
	"github.com/rouxgraph/roux/pkg/version"
)

// Server is the tool protocol adapter: it bridges MCP clients (Claude Code,
// Cursor) with the Query Façade over the knowledge graph.
type Server struct {
	mcp    *mcp.Server
	facade *facade.Facade
	logger *slog.Logger
}

// NewServer creates a new MCP server bound to f.
func NewServer(f *facade.Facade, logger *slog.Logger) (*Server, error) {
	if f == nil {
		return nil, errors.New("facade is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{facade: f, logger: logger}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "roux",
			Version: version.Version,
		},
		nil, // ServerOptions - capabilities are inferred from registered tools
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "roux", version.Version
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// registerTools registers every §4.9 operation as an MCP tool.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Embeds the query and returns the nearest nodes by vector distance. Requires an active embedder.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_node",
		Description: "Fetches a node by id, optionally including its immediate neighbors.",
	}, s.handleGetNode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_neighbors",
		Description: "Lists a node's neighbors in a given direction, capped at 20 with the true total reported.",
	}, s.handleGetNeighbors)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_path",
		Description: "Finds the shortest id path between two nodes, if one exists.",
	}, s.handleFindPath)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_hubs",
		Description: "Ranks nodes by in-degree or out-degree.",
	}, s.handleGetHubs)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_by_tags",
		Description: "Finds nodes matching a non-empty tag list, under any/all matching.",
	}, s.handleSearchByTags)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "random_node",
		Description: "Returns a uniformly-chosen node, optionally filtered by a tag. Excludes ghosts.",
	}, s.handleRandomNode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_node",
		Description: "Creates a new node at a source-relative path.",
	}, s.handleCreateNode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "update_node",
		Description: "Updates an existing node's title, content, or tags. Fails on ghosts.",
	}, s.handleUpdateNode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_node",
		Description: "Deletes a node and its backing file.",
	}, s.handleDeleteNode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_nodes",
		Description: "Lists nodes under a filter, paged and capped at 1000.",
	}, s.handleListNodes)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "resolve_nodes",
		Description: "Matches candidate names against known node titles using an exact, fuzzy, or semantic strategy.",
	}, s.handleResolveNodes)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "nodes_exist",
		Description: "Reports which of a list of ids are present in the cache.",
	}, s.handleNodesExist)

	s.logger.Info("MCP tools registered", slog.Int("count", 13))
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	results, err := s.facade.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	out := SearchOutput{Results: make([]SearchResultPayload, len(results))}
	for i, r := range results {
		out.Results[i] = SearchResultPayload{Node: toNodePayload(r.Node), Distance: r.Distance}
	}
	return nil, out, nil
}

func (s *Server) handleGetNode(_ context.Context, _ *mcp.CallToolRequest, input GetNodeInput) (*mcp.CallToolResult, GetNodeOutput, error) {
	if input.ID == "" {
		return nil, GetNodeOutput{}, NewInvalidParamsError("id is required")
	}

	node, neighbors, found, err := s.facade.GetNode(input.ID, input.Depth)
	if err != nil {
		return nil, GetNodeOutput{}, MapError(err)
	}
	if !found {
		return nil, GetNodeOutput{Found: false}, nil
	}

	payload := toNodePayload(node)
	out := GetNodeOutput{Found: true, Node: &payload}
	if len(neighbors) > 0 {
		out.Neighbors = toSummaryPayloads(neighbors)
	}
	return nil, out, nil
}

func (s *Server) handleGetNeighbors(_ context.Context, _ *mcp.CallToolRequest, input GetNeighborsInput) (*mcp.CallToolResult, GetNeighborsOutput, error) {
	if input.ID == "" {
		return nil, GetNeighborsOutput{}, NewInvalidParamsError("id is required")
	}
	direction := graph.Direction(input.Direction)
	if direction == "" {
		direction = graph.DirectionBoth
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	resp, err := s.facade.GetNeighbors(input.ID, direction, limit)
	if err != nil {
		return nil, GetNeighborsOutput{}, MapError(err)
	}
	return nil, GetNeighborsOutput{Neighbors: toSummaryPayloads(resp.Neighbors), Total: resp.Total}, nil
}

func (s *Server) handleFindPath(_ context.Context, _ *mcp.CallToolRequest, input FindPathInput) (*mcp.CallToolResult, FindPathOutput, error) {
	if input.Source == "" || input.Target == "" {
		return nil, FindPathOutput{}, NewInvalidParamsError("source and target are required")
	}
	path, ok := s.facade.FindPath(input.Source, input.Target)
	return nil, FindPathOutput{Found: ok, Path: path}, nil
}

func (s *Server) handleGetHubs(_ context.Context, _ *mcp.CallToolRequest, input GetHubsInput) (*mcp.CallToolResult, GetHubsOutput, error) {
	metric := graph.Metric(input.Metric)
	if metric == "" {
		metric = graph.MetricInDegree
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	hubs := s.facade.GetHubs(metric, limit)
	out := GetHubsOutput{Hubs: make([]HubPayload, len(hubs))}
	for i, h := range hubs {
		out.Hubs[i] = HubPayload{ID: h.ID, Score: h.Score}
	}
	return nil, out, nil
}

func (s *Server) handleSearchByTags(_ context.Context, _ *mcp.CallToolRequest, input SearchByTagsInput) (*mcp.CallToolResult, SearchByTagsOutput, error) {
	mode := store.TagMode(input.Mode)
	if mode == "" {
		mode = store.TagModeAny
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	nodes, err := s.facade.SearchByTags(input.Tags, mode, limit)
	if err != nil {
		return nil, SearchByTagsOutput{}, MapError(err)
	}
	return nil, SearchByTagsOutput{Nodes: toSummaryPayloads(nodes)}, nil
}

func (s *Server) handleRandomNode(_ context.Context, _ *mcp.CallToolRequest, input RandomNodeInput) (*mcp.CallToolResult, RandomNodeOutput, error) {
	mode := store.TagMode(input.Mode)
	if mode == "" {
		mode = store.TagModeAny
	}
	summary, found, err := s.facade.RandomNode(input.Tags, mode)
	if err != nil {
		return nil, RandomNodeOutput{}, MapError(err)
	}
	if !found {
		return nil, RandomNodeOutput{Found: false}, nil
	}
	payload := SummaryPayload{ID: summary.ID, Title: summary.Title, IsGhost: summary.IsGhost, Tags: summary.Tags}
	return nil, RandomNodeOutput{Found: true, Node: &payload}, nil
}

func (s *Server) handleCreateNode(ctx context.Context, _ *mcp.CallToolRequest, input CreateNodeInput) (*mcp.CallToolResult, CreateNodeOutput, error) {
	if input.Path == "" || input.Content == "" {
		return nil, CreateNodeOutput{}, NewInvalidParamsError("path and content are required")
	}

	node, err := s.facade.CreateNode(ctx, coordinator.CreateRequest{
		RelativePath: input.Path,
		Title:        input.Title,
		Content:      input.Content,
		Tags:         input.Tags,
	})
	if err != nil {
		return nil, CreateNodeOutput{}, MapError(err)
	}
	return nil, CreateNodeOutput{Node: toNodePayload(node)}, nil
}

func (s *Server) handleUpdateNode(ctx context.Context, _ *mcp.CallToolRequest, input UpdateNodeInput) (*mcp.CallToolResult, UpdateNodeOutput, error) {
	if input.ID == "" {
		return nil, UpdateNodeOutput{}, NewInvalidParamsError("id is required")
	}
	if input.Title == nil && input.Content == nil && !input.SetTags {
		return nil, UpdateNodeOutput{}, NewInvalidParamsError("at least one of title, content, or tags must be set")
	}

	updates := coordinator.NodeUpdates{Title: input.Title, Content: input.Content}
	if input.SetTags {
		tags := input.Tags
		updates.Tags = &tags
	}

	node, err := s.facade.UpdateNode(ctx, input.ID, updates)
	if err != nil {
		return nil, UpdateNodeOutput{}, MapError(err)
	}
	return nil, UpdateNodeOutput{Node: toNodePayload(node)}, nil
}

func (s *Server) handleDeleteNode(_ context.Context, _ *mcp.CallToolRequest, input DeleteNodeInput) (*mcp.CallToolResult, DeleteNodeOutput, error) {
	if input.ID == "" {
		return nil, DeleteNodeOutput{}, NewInvalidParamsError("id is required")
	}
	deleted, err := s.facade.DeleteNode(input.ID)
	if err != nil {
		return nil, DeleteNodeOutput{}, MapError(err)
	}
	return nil, DeleteNodeOutput{Deleted: deleted}, nil
}

func (s *Server) handleListNodes(_ context.Context, _ *mcp.CallToolRequest, input ListNodesInput) (*mcp.CallToolResult, ListNodesOutput, error) {
	filter := store.ListFilter{
		Tag:        input.Tag,
		PathPrefix: input.PathPrefix,
		Ghosts:     store.GhostFilter(input.Ghosts),
	}
	if filter.Ghosts == "" {
		filter.Ghosts = store.GhostFilterInclude
	}
	paging := store.Paging{Limit: input.Limit, Offset: input.Offset}

	summaries, total, err := s.facade.ListNodes(filter, paging)
	if err != nil {
		return nil, ListNodesOutput{}, MapError(err)
	}

	out := ListNodesOutput{Nodes: make([]SummaryPayload, len(summaries)), Total: total}
	for i, n := range summaries {
		out.Nodes[i] = SummaryPayload{ID: n.ID, Title: n.Title, IsGhost: n.IsGhost, Tags: n.Tags}
	}
	return nil, out, nil
}

func (s *Server) handleResolveNodes(ctx context.Context, _ *mcp.CallToolRequest, input ResolveNodesInput) (*mcp.CallToolResult, ResolveNodesOutput, error) {
	if len(input.Names) == 0 {
		return nil, ResolveNodesOutput{}, nil
	}
	strategy := facade.ResolveStrategy(input.Strategy)
	if strategy == "" {
		strategy = facade.ResolveExact
	}

	matches, err := s.facade.ResolveNodes(ctx, input.Names, strategy, input.Threshold)
	if err != nil {
		return nil, ResolveNodesOutput{}, MapError(err)
	}

	out := ResolveNodesOutput{Results: make([]ResolveResultPayload, len(matches))}
	for i, m := range matches {
		r := ResolveResultPayload{Query: m.Query, Score: m.Score}
		if m.Match != nil {
			r.Match = &SummaryPayload{ID: m.Match.ID, Title: m.Match.Title, IsGhost: m.Match.IsGhost, Tags: m.Match.Tags}
		}
		out.Results[i] = r
	}
	return nil, out, nil
}

func (s *Server) handleNodesExist(_ context.Context, _ *mcp.CallToolRequest, input NodesExistInput) (*mcp.CallToolResult, NodesExistOutput, error) {
	exists, err := s.facade.NodesExist(input.IDs)
	if err != nil {
		return nil, NodesExistOutput{}, MapError(err)
	}
	return nil, NodesExistOutput{Exists: exists}, nil
}

func toNodePayload(n facade.NodeResponse) NodePayload {
	return NodePayload{
		ID:            n.ID,
		Title:         n.Title,
		Content:       n.Content,
		IsGhost:       n.IsGhost,
		Tags:          n.Tags,
		Properties:    n.Properties,
		OutgoingLinks: n.OutgoingLinks,
	}
}

func toSummaryPayloads(summaries []facade.NodeSummary) []SummaryPayload {
	out := make([]SummaryPayload, len(summaries))
	for i, s := range summaries {
		out[i] = SummaryPayload{ID: s.ID, Title: s.Title, IsGhost: s.IsGhost, Tags: s.Tags}
	}
	return out
}
