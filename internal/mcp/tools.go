package mcp

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to embed and search for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, 1-50, default 10"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultPayload `json:"results"`
}

// SearchResultPayload is one ranked search hit.
type SearchResultPayload struct {
	Node     NodePayload `json:"node"`
	Distance float32     `json:"distance"`
}

// GetNodeInput is the input schema for the get_node tool.
type GetNodeInput struct {
	ID    string `json:"id" jsonschema:"node identifier"`
	Depth int    `json:"depth,omitempty" jsonschema:"0 for node only, 1 to include immediate neighbors"`
}

// GetNodeOutput is the output schema for the get_node tool.
type GetNodeOutput struct {
	Found     bool             `json:"found"`
	Node      *NodePayload     `json:"node,omitempty"`
	Neighbors []SummaryPayload `json:"neighbors,omitempty"`
}

// NodePayload is the rendered node shape returned to MCP clients.
type NodePayload struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	IsGhost       bool           `json:"is_ghost"`
	Tags          []string       `json:"tags,omitempty"`
	Properties    map[string]any `json:"properties,omitempty"`
	OutgoingLinks []string       `json:"outgoing_links,omitempty"`
}

// SummaryPayload is the trimmed node projection used in list-shaped results.
type SummaryPayload struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	IsGhost bool     `json:"is_ghost"`
	Tags    []string `json:"tags,omitempty"`
}

// GetNeighborsInput is the input schema for the get_neighbors tool.
type GetNeighborsInput struct {
	ID        string `json:"id" jsonschema:"node identifier"`
	Direction string `json:"direction,omitempty" jsonschema:"in, out, or both; default both"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of neighbors, 1-50, default 20"`
}

// GetNeighborsOutput is the output schema for the get_neighbors tool.
type GetNeighborsOutput struct {
	Neighbors []SummaryPayload `json:"neighbors"`
	Total     int              `json:"total"`
}

// FindPathInput is the input schema for the find_path tool.
type FindPathInput struct {
	Source string `json:"source" jsonschema:"source node identifier"`
	Target string `json:"target" jsonschema:"target node identifier"`
}

// FindPathOutput is the output schema for the find_path tool.
type FindPathOutput struct {
	Found bool     `json:"found"`
	Path  []string `json:"path,omitempty"`
}

// GetHubsInput is the input schema for the get_hubs tool.
type GetHubsInput struct {
	Metric string `json:"metric,omitempty" jsonschema:"in_degree or out_degree; default in_degree"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of hubs, 1-50, default 10"`
}

// GetHubsOutput is the output schema for the get_hubs tool.
type GetHubsOutput struct {
	Hubs []HubPayload `json:"hubs"`
}

// HubPayload is one ranked hub entry.
type HubPayload struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// SearchByTagsInput is the input schema for the search_by_tags tool.
type SearchByTagsInput struct {
	Tags  []string `json:"tags" jsonschema:"non-empty list of tags to match"`
	Mode  string   `json:"mode,omitempty" jsonschema:"any or all; default any"`
	Limit int      `json:"limit,omitempty" jsonschema:"maximum number of results, 1-50, default 10"`
}

// SearchByTagsOutput is the output schema for the search_by_tags tool.
type SearchByTagsOutput struct {
	Nodes []SummaryPayload `json:"nodes"`
}

// RandomNodeInput is the input schema for the random_node tool.
type RandomNodeInput struct {
	Tags []string `json:"tags,omitempty" jsonschema:"optional tag filter"`
	Mode string   `json:"mode,omitempty" jsonschema:"any or all when tags has 2+ entries; default any"`
}

// RandomNodeOutput is the output schema for the random_node tool.
type RandomNodeOutput struct {
	Found bool            `json:"found"`
	Node  *SummaryPayload `json:"node,omitempty"`
}

// CreateNodeInput is the input schema for the create_node tool.
type CreateNodeInput struct {
	Path    string   `json:"path" jsonschema:"source-relative path; must end in a registered extension"`
	Title   string   `json:"title,omitempty" jsonschema:"node title; derived from the filename if absent"`
	Content string   `json:"content" jsonschema:"note body"`
	Tags    []string `json:"tags,omitempty"`
}

// CreateNodeOutput is the output schema for the create_node tool.
type CreateNodeOutput struct {
	Node NodePayload `json:"node"`
}

// UpdateNodeInput is the input schema for the update_node tool.
type UpdateNodeInput struct {
	ID      string   `json:"id" jsonschema:"node identifier"`
	Title   *string  `json:"title,omitempty"`
	Content *string  `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	SetTags bool     `json:"set_tags,omitempty" jsonschema:"true if tags should be replaced, even with an empty list"`
}

// UpdateNodeOutput is the output schema for the update_node tool.
type UpdateNodeOutput struct {
	Node NodePayload `json:"node"`
}

// DeleteNodeInput is the input schema for the delete_node tool.
type DeleteNodeInput struct {
	ID string `json:"id" jsonschema:"node identifier"`
}

// DeleteNodeOutput is the output schema for the delete_node tool.
type DeleteNodeOutput struct {
	Deleted bool `json:"deleted"`
}

// ListNodesInput is the input schema for the list_nodes tool.
type ListNodesInput struct {
	Tag        string `json:"tag,omitempty"`
	PathPrefix string `json:"path_prefix,omitempty"`
	Ghosts     string `json:"ghosts,omitempty" jsonschema:"include, exclude, or only; default include"`
	Limit      int    `json:"limit,omitempty" jsonschema:"page size, capped at 1000"`
	Offset     int    `json:"offset,omitempty"`
}

// ListNodesOutput is the output schema for the list_nodes tool.
type ListNodesOutput struct {
	Nodes []SummaryPayload `json:"nodes"`
	Total int              `json:"total"`
}

// ResolveNodesInput is the input schema for the resolve_nodes tool.
type ResolveNodesInput struct {
	Names     []string `json:"names" jsonschema:"candidate titles to resolve"`
	Strategy  string   `json:"strategy,omitempty" jsonschema:"exact, fuzzy, or semantic; default exact"`
	Threshold float64  `json:"threshold,omitempty" jsonschema:"match threshold in [0,1]; strategy-specific default"`
}

// ResolveNodesOutput is the output schema for the resolve_nodes tool.
type ResolveNodesOutput struct {
	Results []ResolveResultPayload `json:"results"`
}

// ResolveResultPayload is one resolved (or unresolved) name.
type ResolveResultPayload struct {
	Query string          `json:"query"`
	Match *SummaryPayload `json:"match,omitempty"`
	Score float64         `json:"score"`
}

// NodesExistInput is the input schema for the nodes_exist tool.
type NodesExistInput struct {
	IDs []string `json:"ids"`
}

// NodesExistOutput is the output schema for the nodes_exist tool.
type NodesExistOutput struct {
	Exists map[string]bool `json:"exists"`
}
