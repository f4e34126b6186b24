package benchmark

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/copyleftdev/bbdob/internal/objective"
)

// Registry holds named objective instances. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	objectives map[string]objective.Objective
	presets    map[string]Preset
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		objectives: make(map[string]objective.Objective),
		presets:    make(map[string]Preset),
	}
}

// Build constructs every preset. Nasbench presets are skipped when deps
// carries no dataset; any other construction error aborts.
func Build(presets []Preset, deps Deps) (*Registry, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := NewRegistry()
	for _, p := range presets {
		if p.Kind == KindNasBench && deps.Dataset == nil {
			logger.Warn("skipping preset without nasbench dataset", zap.String("preset", p.Name))
			continue
		}
		o, err := New(p, deps)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		if deps.Instrument != nil {
			o = deps.Instrument(o)
		}
		if err := r.register(p, o); err != nil {
			return nil, err
		}
		logger.Debug("registered objective", zap.String("preset", p.Name), zap.String("kind", string(p.Kind)))
	}
	return r, nil
}

// Register adds o under name.
func (r *Registry) Register(name string, o objective.Objective) error {
	return r.register(Preset{Name: name}, o)
}

func (r *Registry) register(p Preset, o objective.Objective) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.objectives[p.Name]; ok {
		return fmt.Errorf("objective %q already registered", p.Name)
	}
	r.objectives[p.Name] = o
	r.presets[p.Name] = p
	return nil
}

// Get returns the objective registered under name.
func (r *Registry) Get(name string) (objective.Objective, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.objectives[name]
	return o, ok
}

// Preset returns the preset an objective was built from. Objectives added
// with Register carry only their name.
func (r *Registry) Preset(name string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[name]
	return p, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.objectives))
	for n := range r.objectives {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered objectives.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objectives)
}
