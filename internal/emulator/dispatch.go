package emulator

import (
	"context"
	"fmt"

	"github.com/ethlau/CCL/internal/bounds"
	"github.com/ethlau/CCL/internal/cosmology"
	"github.com/ethlau/CCL/internal/power"
)

// Instance pairs a loaded backend with the capability flags recorded at
// registration. All dispatch runs through here; the backend's bounds are
// checked against the cosmology's proposal before any hook executes, so an
// out-of-bounds proposal aborts before any model call.
type Instance struct {
	name    string
	caps    Capability
	backend Backend
}

func (in *Instance) Name() string             { return in.name }
func (in *Instance) Capabilities() Capability { return in.caps }
func (in *Instance) Bounds() bounds.Bounds    { return in.backend.Bounds() }
func (in *Instance) Backend() Backend         { return in.backend }

// CheckBounds validates the cosmology's parameter proposal against the
// backend's declared validity region.
func (in *Instance) CheckBounds(params cosmology.Parameters) error {
	return in.backend.Bounds().Check(params.Proposal())
}

// PkLinear computes the linear matter power spectrum, or fails with
// ErrNotImplemented when the backend declares no linear capability.
func (in *Instance) PkLinear(ctx context.Context, params cosmology.Parameters) (*power.Table, error) {
	if err := in.CheckBounds(params); err != nil {
		return nil, err
	}
	if !in.caps.Has(CapLinear) {
		return nil, fmt.Errorf("%w: %q cannot produce a linear power spectrum",
			ErrNotImplemented, in.name)
	}
	return in.backend.(LinearProvider).PkLinear(ctx, params)
}

// PkNonlin computes the nonlinear matter power spectrum. Fallback order:
// a direct nonlinear hook first; then a nonlinear boost applied to a
// baseline linear spectrum (the backend's own if it has one, otherwise the
// cosmology's analytic linear computation); otherwise ErrNotImplemented.
func (in *Instance) PkNonlin(ctx context.Context, params cosmology.Parameters) (*power.Table, error) {
	if err := in.CheckBounds(params); err != nil {
		return nil, err
	}
	switch {
	case in.caps.Has(CapNonlin):
		return in.backend.(NonlinProvider).PkNonlin(ctx, params)
	case in.caps.Has(CapNonlinBoost):
		boost, err := in.backend.(NonlinBooster).NonlinBoost(ctx, params)
		if err != nil {
			return nil, err
		}
		baseline, err := in.baselineLinear(ctx, params, boost)
		if err != nil {
			return nil, err
		}
		return baseline.MulBoost(boost), nil
	default:
		return nil, fmt.Errorf("%w: %q cannot produce a nonlinear power spectrum",
			ErrNotImplemented, in.name)
	}
}

// baselineLinear tabulates the linear spectrum the boost multiplies. With a
// linear-capable backend the boost is regridded onto the backend's own
// axes; otherwise the cosmology's linear power is tabulated directly on the
// boost's axes.
func (in *Instance) baselineLinear(ctx context.Context, params cosmology.Parameters, boost *power.Table) (*power.Table, error) {
	if in.caps.Has(CapLinear) {
		return in.backend.(LinearProvider).PkLinear(ctx, params)
	}
	return params.LinearPowerTable(boost.A, boost.LogK)
}

// ApplyNonlinModel applies the backend's nonlinear model to a
// caller-supplied linear spectrum, skipping the internal linear
// computation. A boost-capable backend multiplies its boost in directly; a
// backend with direct linear and nonlinear hooks contributes the ratio of
// the two as an effective boost. Anything else fails with
// ErrNotImplemented.
func (in *Instance) ApplyNonlinModel(ctx context.Context, params cosmology.Parameters, pkLinear *power.Table) (*power.Table, error) {
	if err := in.CheckBounds(params); err != nil {
		return nil, err
	}
	switch {
	case in.caps.Has(CapNonlinBoost):
		boost, err := in.backend.(NonlinBooster).NonlinBoost(ctx, params)
		if err != nil {
			return nil, err
		}
		return pkLinear.MulBoost(boost), nil
	case in.caps.Has(CapNonlin) && in.caps.Has(CapLinear):
		nonlin, err := in.backend.(NonlinProvider).PkNonlin(ctx, params)
		if err != nil {
			return nil, err
		}
		linear, err := in.backend.(LinearProvider).PkLinear(ctx, params)
		if err != nil {
			return nil, err
		}
		boost := nonlin.Clone()
		boost.Values.DivElem(nonlin.Values, linear.Values)
		return pkLinear.MulBoost(boost), nil
	default:
		return nil, fmt.Errorf("%w: %q cannot apply a nonlinear model",
			ErrNotImplemented, in.name)
	}
}

// IncludeBaryons composes the backend's baryonic feedback correction onto
// an existing nonlinear spectrum, whichever backend produced it. The input
// table is left unmodified.
func (in *Instance) IncludeBaryons(ctx context.Context, params cosmology.Parameters, pkNonlin *power.Table) (*power.Table, error) {
	if err := in.CheckBounds(params); err != nil {
		return nil, err
	}
	if !in.caps.Has(CapBaryonBoost) {
		return nil, fmt.Errorf("%w: %q cannot produce a baryon correction",
			ErrNotImplemented, in.name)
	}
	boost, err := in.backend.(BaryonBooster).BaryonBoost(ctx, params)
	if err != nil {
		return nil, err
	}
	return pkNonlin.MulBoost(boost), nil
}

// BaryonCorrect resolves name in the registry and applies that backend's
// baryon correction to pk. Thin delegation with no state of its own.
func BaryonCorrect(ctx context.Context, reg *Registry, name string, params cosmology.Parameters, pk *power.Table) (*power.Table, error) {
	inst, err := reg.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return inst.IncludeBaryons(ctx, params, pk)
}
