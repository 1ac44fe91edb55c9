package artifact

import (
	"fmt"
	"sort"
	"sync"

	"bento-registry/internal/core/ports/output"
)

// Registry maps library names to the model libraries linked into the binary.
// A library that is not registered is treated as a missing dependency.
type Registry struct {
	mu   sync.RWMutex
	libs map[string]ports.ModelLibrary
}

func NewRegistry() *Registry {
	return &Registry{libs: make(map[string]ports.ModelLibrary)}
}

// Register makes lib available under lib.Name(). It panics if lib is nil or
// the name is already taken, like database/sql.Register.
func (r *Registry) Register(lib ports.ModelLibrary) {
	if lib == nil {
		panic("artifact: Register library is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.libs[lib.Name()]; dup {
		panic(fmt.Sprintf("artifact: Register called twice for library %q", lib.Name()))
	}
	r.libs[lib.Name()] = lib
}

func (r *Registry) Lookup(name string) (ports.ModelLibrary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lib, ok := r.libs[name]
	return lib, ok
}

// Names returns the registered library names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.libs))
	for name := range r.libs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// DefaultRegistry is the registry libraries add themselves to from init.
func DefaultRegistry() *Registry { return defaultRegistry }

func Register(lib ports.ModelLibrary) { defaultRegistry.Register(lib) }

func Libraries() []string { return defaultRegistry.Names() }
