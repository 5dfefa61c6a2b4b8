package emulator

import (
	"context"
	"math"

	"github.com/ethlau/CCL/internal/bounds"
	"github.com/ethlau/CCL/internal/cosmology"
	"github.com/ethlau/CCL/internal/power"
)

// Default tabulation grids for the analytic built-ins. Backends wrapping a
// trained model tabulate on whatever grid the model was trained on instead.
var (
	defaultAGrid    = linspace(0.1, 1.0, 16)
	defaultLogKGrid = linspace(math.Log(1e-4), math.Log(50), 128)
)

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// standardBox is the validity region shared by the analytic built-ins:
// roughly the regime where the BBKS baseline is a sane description.
func standardBox() bounds.Bounds {
	b, err := bounds.NewBox(map[string]bounds.Range{
		"Omega_c": {Low: 0.05, High: 0.7},
		"Omega_b": {Low: 0.01, High: 0.1},
		"h":       {Low: 0.4, High: 1.0},
		"sigma8":  {Low: 0.4, High: 1.2},
		"n_s":     {Low: 0.8, High: 1.2},
	})
	if err != nil {
		panic(err)
	}
	return b
}

// DefaultRegistry returns a registry with the built-in backends wired:
// "linear" (analytic linear spectrum), "onehalo" (nonlinear boost), and
// "bcm" (baryonic correction model).
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.MustRegister(Spec{
		Name:         "linear",
		Capabilities: CapLinear,
		New:          func() Backend { return &linearBackend{bounds: standardBox()} },
	})
	reg.MustRegister(Spec{
		Name:         "onehalo",
		Capabilities: CapNonlinBoost,
		New:          func() Backend { return &onehaloBackend{bounds: standardBox()} },
	})
	reg.MustRegister(Spec{
		Name:         "bcm",
		Capabilities: CapBaryonBoost,
		New:          func() Backend { return &bcmBackend{bounds: bcmBox()} },
	})
	return reg
}

// linearBackend tabulates the cosmology's analytic linear spectrum. No
// payload to load.
type linearBackend struct {
	bounds bounds.Bounds
}

func (b *linearBackend) Bounds() bounds.Bounds                { return b.bounds }
func (b *linearBackend) LoadPayload(_ context.Context) error { return nil }

func (b *linearBackend) PkLinear(_ context.Context, params cosmology.Parameters) (*power.Table, error) {
	return params.LinearPowerTable(defaultAGrid, defaultLogKGrid)
}

// onehaloBackend boosts the linear spectrum by 1 + Delta^2_lin(a, k), a
// crude one-halo style small-scale enhancement. Useful as a reference
// nonlinear model and for exercising the boost fallback path.
type onehaloBackend struct {
	bounds bounds.Bounds
}

func (b *onehaloBackend) Bounds() bounds.Bounds                { return b.bounds }
func (b *onehaloBackend) LoadPayload(_ context.Context) error { return nil }

func (b *onehaloBackend) NonlinBoost(_ context.Context, params cosmology.Parameters) (*power.Table, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return power.FromFunc(defaultAGrid, defaultLogKGrid, func(a, k float64) float64 {
		delta2 := k * k * k * params.LinearPower(a, k) / (2 * math.Pi * math.Pi)
		return 1 + delta2
	})
}

// BCM parameter defaults, Schneider & Teyssier (2015).
const (
	bcmDefaultLog10Mc = 14.08
	bcmDefaultEtaB    = 0.5
	bcmDefaultKs      = 55.0
)

func bcmBox() bounds.Bounds {
	b, err := bounds.NewBox(map[string]bounds.Range{
		"bcm_log10Mc": {Low: 11, High: 16},
		"bcm_etab":    {Low: 0.1, High: 1.0},
		"bcm_ks":      {Low: 10, High: 100},
	})
	if err != nil {
		panic(err)
	}
	return b
}

// bcmBackend is the baryonic correction model boost F(k, a): gas ejection
// suppression at intermediate k plus a stellar one-halo upturn at high k.
type bcmBackend struct {
	bounds bounds.Bounds
}

func (b *bcmBackend) Bounds() bounds.Bounds                { return b.bounds }
func (b *bcmBackend) LoadPayload(_ context.Context) error { return nil }

func (b *bcmBackend) BaryonBoost(_ context.Context, params cosmology.Parameters) (*power.Table, error) {
	log10Mc := extraOrDefault(params, "bcm_log10Mc", bcmDefaultLog10Mc)
	etab := extraOrDefault(params, "bcm_etab", bcmDefaultEtaB)
	ks := extraOrDefault(params, "bcm_ks", bcmDefaultKs)

	return power.FromFunc(defaultAGrid, defaultLogKGrid, func(a, k float64) float64 {
		z := 1/a - 1
		kh := k / params.H

		b0 := 0.105*log10Mc - 1.27
		bz := b0 / (1 + math.Pow(z/2.3, 2.5))
		kg := 0.7 * math.Pow(1-bz, 4) * math.Pow(etab, -1.6)

		suppression := bz/(1+math.Pow(kh/kg, 3)) + (1 - bz)
		stellar := 1 + (kh/ks)*(kh/ks)
		return suppression * stellar
	})
}

func extraOrDefault(params cosmology.Parameters, name string, fallback float64) float64 {
	if value, ok := params.Extra[name]; ok {
		return value
	}
	return fallback
}
