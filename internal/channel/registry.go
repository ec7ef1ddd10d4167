// Package channel selects and describes the outbound message channels.
package channel

import (
	"fmt"
	"sort"
	"strings"

	"CatalogNotifier/internal/config"
	"CatalogNotifier/internal/ports"
)

// Factory builds a channel from configuration.
type Factory func(cfg config.Config) (ports.MessageChannel, error)

// Registry keeps a mapping from channel kinds to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces a factory.
func (r *Registry) Register(kind string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[strings.ToLower(kind)] = factory
}

// Build resolves kind and constructs the channel, or fails if it is absent.
func (r *Registry) Build(kind string, cfg config.Config) (ports.MessageChannel, error) {
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return nil, fmt.Errorf("channel %q is not registered (known: %s)", kind, strings.Join(r.Kinds(), ", "))
	}
	ch, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("build channel %s: %w", kind, err)
	}
	return ch, nil
}

// Kinds lists registered kinds in order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
