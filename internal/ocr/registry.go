package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// EngineAuto selects the first healthy engine in registration order.
const EngineAuto = "auto"

// Registry holds the engines a process can use, in preference order.
type Registry struct {
	engines map[string]Engine
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds an engine. Earlier registrations are preferred by "auto".
func (r *Registry) Register(e Engine) error {
	name := strings.ToLower(e.Name())
	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("ocr engine %s already registered", name)
	}
	r.engines[name] = e
	r.order = append(r.order, name)
	return nil
}

// Get retrieves an engine by name.
func (r *Registry) Get(name string) (Engine, bool) {
	e, ok := r.engines[strings.ToLower(name)]
	return e, ok
}

// Names returns the registered engine names in preference order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Select resolves a preference to an engine. A named engine is returned as
// is; "auto" returns the first engine whose health check passes.
func (r *Registry) Select(ctx context.Context, preference string) (Engine, error) {
	preference = strings.ToLower(strings.TrimSpace(preference))
	if preference == "" {
		preference = EngineAuto
	}
	if preference != EngineAuto {
		e, ok := r.Get(preference)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrEngineNotFound, preference)
		}
		return e, nil
	}

	var errs []error
	for _, name := range r.order {
		e := r.engines[name]
		hc, ok := e.(HealthChecker)
		if !ok {
			return e, nil
		}
		if err := hc.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		return e, nil
	}
	return nil, errors.Join(append([]error{ErrNoEnginesAvailable}, errs...)...)
}
