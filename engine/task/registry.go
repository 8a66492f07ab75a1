package task

import (
	"fmt"
	"sync"

	"github.com/bricoler/bricoler/engine/core"
)

// Registry is the catalog of named task definitions. It is populated as
// definitions are declared and is read-only during a run.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	order []string
}

// DefaultRegistry is the process-wide registry, populated at process start
// by the concrete task packages.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

func (r *Registry) register(def *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.name]; ok {
		return core.NewError(
			fmt.Errorf("task %q is already defined", def.name),
			"DUPLICATE_TASK",
			map[string]any{"task": def.name},
		)
	}
	r.defs[def.name] = def
	r.order = append(r.order, def.name)
	return nil
}

func (r *Registry) Lookup(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names returns all registered task names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
