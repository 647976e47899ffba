package engine

import (
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

// Registry holds the set of adapters available to the pipeline, keyed by
// engine name. Registration happens once at startup; reads are not locked.
type Registry struct {
	adapters map[string]Adapter
	logger   hclog.Logger
}

func NewRegistry(logger hclog.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		logger:   logger,
	}
}

// Register adds an adapter, replacing any previous adapter with the same name.
func (r *Registry) Register(a Adapter) {
	r.logger.Debug("registering engine adapter", "engine", a.Name(), "version", a.Version())
	r.adapters[a.Name()] = a
}

// Get returns the adapter for the named engine.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Resolve maps engine names to adapters, failing with a ConfigurationError if
// any required engine has no registered adapter.
func (r *Registry) Resolve(names []string) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(names))
	for _, name := range names {
		a, ok := r.adapters[name]
		if !ok {
			return nil, errors.NewConfigurationError("no adapter registered for engine %q", name)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// Names returns the registered engine names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Versions returns the pinned tool-version map of the registered adapters,
// recorded on every run for reproducibility.
func (r *Registry) Versions() map[string]string {
	versions := make(map[string]string, len(r.adapters))
	for name, a := range r.adapters {
		versions[name] = a.Version()
	}
	return versions
}
