package emulator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethlau/CCL/internal/bounds"
)

// Spec describes one registered backend: its lookup name, the capability
// flags dispatch may rely on, and a cheap constructor. Construction must not
// load the underlying model; that happens in LoadPayload on first use.
type Spec struct {
	Name         string
	Capabilities Capability
	New          func() Backend
}

// Registry maps backend names to specs and caches loaded instances so a
// given backend's expensive payload load executes at most once per process.
type Registry struct {
	mu     sync.Mutex
	specs  map[string]Spec
	loaded map[string]*loadEntry
}

type loadEntry struct {
	once sync.Once
	inst *Instance
	err  error
}

func NewRegistry() *Registry {
	return &Registry{
		specs:  make(map[string]Spec),
		loaded: make(map[string]*loadEntry),
	}
}

// Register adds a backend spec. The last registration under a name wins;
// any cached instance for that name is discarded so the replacement loads
// fresh on next use. Declared capability flags are verified against the
// constructor's concrete type.
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: backend name is required", bounds.ErrInvalidConfiguration)
	}
	if spec.New == nil {
		return fmt.Errorf("%w: backend constructor is required", bounds.ErrInvalidConfiguration)
	}
	if err := verifyCapabilities(spec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs[spec.Name] = spec
	delete(r.loaded, spec.Name)
	return nil
}

// MustRegister panics on registration failure; for wiring built-ins.
func (r *Registry) MustRegister(spec Spec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// verifyCapabilities checks every declared flag against the corresponding
// interface on a probe instance. Implemented-but-undeclared hooks are
// permitted: the flags mask capabilities off, never on.
func verifyCapabilities(spec Spec) error {
	probe := spec.New()
	if probe == nil {
		return fmt.Errorf("%w: backend %q constructor returned nil",
			bounds.ErrInvalidConfiguration, spec.Name)
	}
	checks := []struct {
		flag Capability
		ok   bool
		hook string
	}{
		{CapLinear, is[LinearProvider](probe), "linear"},
		{CapNonlin, is[NonlinProvider](probe), "nonlin"},
		{CapNonlinBoost, is[NonlinBooster](probe), "nonlin_boost"},
		{CapBaryonBoost, is[BaryonBooster](probe), "baryon_boost"},
	}
	for _, c := range checks {
		if spec.Capabilities.Has(c.flag) && !c.ok {
			return fmt.Errorf("%w: backend %q declares %s without implementing it",
				bounds.ErrInvalidConfiguration, spec.Name, c.hook)
		}
	}
	return nil
}

func is[T any](backend Backend) bool {
	_, ok := backend.(T)
	return ok
}

// FromName returns the spec registered under exactly name. No fuzzy
// matching is attempted.
func (r *Registry) FromName(name string) (Spec, error) {
	r.mu.Lock()
	spec, ok := r.specs[name]
	r.mu.Unlock()
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return spec, nil
}

// Names lists registered backends in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs lists registered backend specs sorted by name.
func (r *Registry) Specs() []Spec {
	r.mu.Lock()
	defer r.mu.Unlock()

	specs := make([]Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Load returns the loaded instance for name, constructing the backend and
// running its LoadPayload exactly once per registration. Concurrent first
// use is safe: losers of the race block until the winner's load completes
// and then share the same instance (or the same load error).
func (r *Registry) Load(ctx context.Context, name string) (*Instance, error) {
	r.mu.Lock()
	spec, ok := r.specs[name]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	entry, ok := r.loaded[name]
	if !ok {
		entry = &loadEntry{}
		r.loaded[name] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		backend := spec.New()
		if err := backend.LoadPayload(ctx); err != nil {
			entry.err = fmt.Errorf("load backend %q: %w", name, err)
			return
		}
		entry.inst = &Instance{name: spec.Name, caps: spec.Capabilities, backend: backend}
	})
	return entry.inst, entry.err
}

// PayloadSizeIfSupported reports the loaded payload size in bytes for
// backends that track one.
func PayloadSizeIfSupported(backend Backend) (int64, bool) {
	sizer, ok := backend.(interface{ PayloadSize() int64 })
	if !ok {
		return 0, false
	}
	return sizer.PayloadSize(), true
}
