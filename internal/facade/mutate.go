package facade

import (
	"context"

	"github.com/rouxgraph/roux/internal/coordinator"
)

// CreateNode creates a new real node. See coordinator.CreateRequest.
func (f *Facade) CreateNode(ctx context.Context, req coordinator.CreateRequest) (NodeResponse, error) {
	n, err := f.coordinator.CreateNode(ctx, req)
	if err != nil {
		return NodeResponse{}, err
	}
	return toNodeResponse(n), nil
}

// UpdateNode applies a partial update to an existing real node. The
// coordinator's OnChange hook only fires for watcher-driven reconciliation,
// so direct CRUD invalidates the response cache here.
func (f *Facade) UpdateNode(ctx context.Context, id string, updates coordinator.NodeUpdates) (NodeResponse, error) {
	n, err := f.coordinator.UpdateNode(ctx, id, updates)
	if err != nil {
		return NodeResponse{}, err
	}
	f.nodeCache.Remove(id)
	return toNodeResponse(n), nil
}

// DeleteNode removes a real node's file and its cache/vector/graph entries.
func (f *Facade) DeleteNode(id string) (bool, error) {
	ok, err := f.coordinator.DeleteNode(id)
	if err == nil {
		f.nodeCache.Remove(id)
	}
	return ok, err
}
