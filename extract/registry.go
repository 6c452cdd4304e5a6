package extract

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory creates a fresh extractor instance. Factories are invoked
// once per worker so extractors never need to be goroutine-safe.
type Factory func() Extractor

// Registry maps file extensions to extractor factories.
type Registry struct {
	mu        sync.RWMutex
	kinds     map[string]UnitKind // ext -> kind
	factories map[string]Factory  // ext -> factory
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds:     make(map[string]UnitKind),
		factories: make(map[string]Factory),
	}
}

// Register adds a factory for the given extensions. Extensions are
// normalized to lowercase with a leading dot. First registration wins
// so callers can override defaults before use.
func (r *Registry) Register(kind UnitKind, exts []string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("nil factory for kind %q", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range exts {
		ext = normalizeExt(ext)
		if _, exists := r.factories[ext]; exists {
			continue
		}
		r.factories[ext] = factory
		r.kinds[ext] = kind
	}
	return nil
}

// ForExtension creates an extractor for the given file extension.
// Returns false when no extractor is registered.
func (r *Registry) ForExtension(ext string) (Extractor, bool) {
	r.mu.RLock()
	factory, ok := r.factories[normalizeExt(ext)]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}

// KindForExtension returns the unit kind handled for the extension.
func (r *Registry) KindForExtension(ext string) (UnitKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.kinds[normalizeExt(ext)]
	return kind, ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.factories))
	for ext := range r.factories {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// DefaultRegistry holds the extractors registered by this package.
var DefaultRegistry = NewRegistry()
