package processing

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

type entry struct {
	processor Processor
	config    ProcessorConfig
}

// Registry maps processor names to processors. Registries are built
// explicitly at startup and handed to a Runner.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds p under its name. A second processor with the same name is
// rejected with domain.ErrDuplicateProcessor.
func (r *Registry) Register(p Processor, cfg ProcessorConfig) error {
	if p == nil {
		return fmt.Errorf("%w: nil processor", domain.ErrInvalidConfig)
	}
	name := strings.TrimSpace(p.Name())
	if name == "" {
		return fmt.Errorf("%w: processor name is required", domain.ErrInvalidConfig)
	}
	if cfg.WindowDays < 0 || cfg.MinAlerts < 0 {
		return fmt.Errorf("%w: processor %s has a negative window or minimum", domain.ErrInvalidConfig, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateProcessor, name)
	}
	r.entries[name] = entry{processor: p, config: cfg}
	return nil
}

// Get returns the processor registered under name
func (r *Registry) Get(name string) (Processor, ProcessorConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e.processor, e.config, ok
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered processors
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Info describes every registered processor in name order
func (r *Registry) Info() []Info {
	names := r.Names()
	infos := make([]Info, 0, len(names))
	for _, name := range names {
		p, cfg, ok := r.Get(name)
		if !ok {
			continue
		}
		info := Info{
			Name:       name,
			Version:    p.Version(),
			WindowDays: cfg.WindowDays,
			MinAlerts:  cfg.MinAlerts,
		}
		if d, ok := p.(Describer); ok {
			info.Description = d.Description()
		}
		_, info.PreFilter = p.(PreFilterer)
		infos = append(infos, info)
	}
	return infos
}
