// Package embed defines the Embedder capability the core depends on and a
// dependency-free default implementation. Model execution itself is
// explicitly outside the core's scope; real providers plug in behind this
// interface.
package embed

import "context"

// Embedder maps text to a fixed-length, unit-norm f32 vector.
type Embedder interface {
	// Embed returns a unit-norm vector of Dimensions() length.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds multiple texts; an empty input returns an empty
	// output rather than an error.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelID() string
}

// Lifecycle is an optional capability an Embedder may implement; the
// registry calls these hooks when an embedder becomes the active provider.
type Lifecycle interface {
	OnRegister(ctx context.Context) error
	OnUnregister(ctx context.Context) error
}

// Registry holds the single active Embedder for a process, invoking
// lifecycle hooks on swap. A nil active embedder is valid: the Query
// Façade's semantic operations then fail with a provider-unavailable error.
type Registry struct {
	active Embedder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register installs e as the active embedder, unregistering any previous
// one first. Passing nil clears the active embedder.
func (r *Registry) Register(ctx context.Context, e Embedder) error {
	if r.active != nil {
		if lc, ok := r.active.(Lifecycle); ok {
			if err := lc.OnUnregister(ctx); err != nil {
				return err
			}
		}
	}
	r.active = e
	if e != nil {
		if lc, ok := e.(Lifecycle); ok {
			if err := lc.OnRegister(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Active returns the current embedder, or nil if none is registered.
func (r *Registry) Active() Embedder {
	return r.active
}
