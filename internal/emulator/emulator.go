// Package emulator is the pluggable power-spectrum backend core: bounds
// checking, a name-keyed registry with lazy payload loading, and the
// dispatch protocol that turns whichever capabilities a backend declares
// into linear spectra, nonlinear spectra, and baryon corrections.
package emulator

import (
	"context"
	"errors"
	"strings"

	"github.com/ethlau/CCL/internal/bounds"
	"github.com/ethlau/CCL/internal/cosmology"
	"github.com/ethlau/CCL/internal/power"
)

var (
	ErrUnknownBackend = errors.New("unknown emulator backend")
	ErrNotImplemented = errors.New("not implemented by backend")
)

// Capability flags record, at registration time, which hooks a backend
// supplies. Dispatch matches over these flags only; it never probes the
// concrete type beyond what the flags authorize.
type Capability uint8

const (
	CapLinear Capability = 1 << iota
	CapNonlin
	CapNonlinBoost
	CapBaryonBoost
)

func (c Capability) Has(flag Capability) bool { return c&flag != 0 }

func (c Capability) String() string {
	names := make([]string, 0, 4)
	if c.Has(CapLinear) {
		names = append(names, "linear")
	}
	if c.Has(CapNonlin) {
		names = append(names, "nonlin")
	}
	if c.Has(CapNonlinBoost) {
		names = append(names, "nonlin_boost")
	}
	if c.Has(CapBaryonBoost) {
		names = append(names, "baryon_boost")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Backend is the base contract every registered emulator satisfies. Bounds
// is fixed at construction; LoadPayload performs the possibly expensive
// model deserialization and is guaranteed by the registry to run at most
// once per backend name.
type Backend interface {
	Bounds() bounds.Bounds
	LoadPayload(ctx context.Context) error
}

// LinearProvider produces a linear matter power spectrum directly.
type LinearProvider interface {
	Backend
	PkLinear(ctx context.Context, params cosmology.Parameters) (*power.Table, error)
}

// NonlinProvider produces a nonlinear matter power spectrum directly.
type NonlinProvider interface {
	Backend
	PkNonlin(ctx context.Context, params cosmology.Parameters) (*power.Table, error)
}

// NonlinBooster produces a multiplicative nonlinear correction applied to a
// baseline linear spectrum.
type NonlinBooster interface {
	Backend
	NonlinBoost(ctx context.Context, params cosmology.Parameters) (*power.Table, error)
}

// BaryonBooster produces a multiplicative baryonic feedback correction
// applied to an existing nonlinear spectrum.
type BaryonBooster interface {
	Backend
	BaryonBoost(ctx context.Context, params cosmology.Parameters) (*power.Table, error)
}
