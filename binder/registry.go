package binder

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	errspkg "github.com/drblury/bindflow/internal/runtime/errors"
)

// Registry maps configuration names to Binders. It is safe for concurrent use
// and usually immutable once populated.
type Registry struct {
	mu          sync.RWMutex
	binders     map[string]Binder
	defaultName string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{binders: make(map[string]Binder)}
}

// Register adds b under name. Names must be unique and must not contain '#'.
func (r *Registry) Register(name string, b Binder) error {
	if name == "" {
		return errspkg.ErrNameRequired
	}
	if b == nil {
		return fmt.Errorf("%w: %q", errspkg.ErrBinderRequired, name)
	}
	if strings.ContainsRune(name, '#') {
		return fmt.Errorf("bindflow: binder name %q must not contain '#'", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.binders[name]; exists {
		return fmt.Errorf("bindflow: binder %q already registered", name)
	}
	r.binders[name] = b
	return nil
}

// SetDefault selects the binder used when no configuration name is given.
// An empty name clears the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name != "" {
		if _, ok := r.binders[name]; !ok {
			return &UnknownBinderError{Name: name, Registered: r.namesLocked()}
		}
	}
	r.defaultName = name
	return nil
}

// Default returns the configured default name.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// Get returns the binder for configurationName. An empty name selects the
// only registered binder or, when several exist, the default one.
func (r *Registry) Get(configurationName string) (Binder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if configurationName != "" {
		if b, ok := r.binders[configurationName]; ok {
			return b, nil
		}
		return nil, &UnknownBinderError{Name: configurationName, Registered: r.namesLocked()}
	}

	switch {
	case len(r.binders) == 0:
		return nil, &UnknownBinderError{}
	case len(r.binders) == 1:
		for _, b := range r.binders {
			return b, nil
		}
	case r.defaultName != "":
		return r.binders[r.defaultName], nil
	}
	return nil, &AmbiguousBinderError{Candidates: r.namesLocked()}
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := lo.Keys(r.binders)
	slices.Sort(names)
	return names
}

// Close closes every binder and joins their errors.
func (r *Registry) Close() error {
	r.mu.RLock()
	names := r.namesLocked()
	binders := make([]Binder, 0, len(names))
	for _, name := range names {
		binders = append(binders, r.binders[name])
	}
	r.mu.RUnlock()

	var errs []error
	for i, b := range binders {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close binder %s: %w", names[i], err))
		}
	}
	return errors.Join(errs...)
}
