package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// Registry resolves named cloth setups. It starts with the built-in
// presets and "default".
type Registry struct {
	setups map[string]func() *config.Config
}

func NewRegistry() *Registry {
	r := &Registry{setups: make(map[string]func() *config.Config)}
	r.Register("default", config.DefaultConfig)
	for _, name := range config.ListPresets() {
		r.Register(name, func() *config.Config { return config.GetPreset(name) })
	}
	return r
}

// Register adds or replaces a setup. fn must return a fresh config on
// every call.
func (r *Registry) Register(name string, fn func() *config.Config) {
	r.setups[name] = fn
}

func (r *Registry) Get(name string) (*config.Config, error) {
	fn, ok := r.setups[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %s (available: %v): %w", name, r.Names(), dynamo.ErrInvalidConfig)
	}
	return fn(), nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.setups))
	for name := range r.setups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the starting config for a run. A config file wins over a
// preset; with neither the default is used.
func (r *Registry) Resolve(preset, path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if preset == "" {
		preset = "default"
	}
	return r.Get(preset)
}
