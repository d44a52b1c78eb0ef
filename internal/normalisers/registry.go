package normalisers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry selects normalisers by MIME type and priority.
type Registry struct {
	mu          sync.RWMutex
	byMIMEType  map[string][]driven.Normaliser
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byMIMEType: make(map[string][]driven.Normaliser),
	}
}

// Register adds a normaliser for all its supported MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, n)
	for _, mimeType := range n.SupportedMIMETypes() {
		candidates := append(r.byMIMEType[mimeType], n)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Priority() > candidates[j].Priority()
		})
		r.byMIMEType[mimeType] = candidates
	}
}

// ForMIMEType returns the highest-priority normaliser for the type.
func (r *Registry) ForMIMEType(mimeType string) (driven.Normaliser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := r.byMIMEType[mimeType]
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no normaliser for %q", domain.ErrUnsupportedType, mimeType)
	}
	return candidates[0], nil
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIMEType))
	for mimeType := range r.byMIMEType {
		types = append(types, mimeType)
	}
	sort.Strings(types)
	return types
}
