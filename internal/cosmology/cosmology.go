// Package cosmology carries the cosmological parameter set consumed by the
// emulator core: proposal extraction for bounds checking and an analytic
// baseline linear matter power spectrum (BBKS transfer, sigma8-normalized)
// used by the nonlinear boost fallback.
package cosmology

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"

	"github.com/ethlau/CCL/internal/power"
)

var ErrBadParameters = errors.New("invalid cosmological parameters")

// Parameters is a flat LCDM parameter set. Extra carries backend-specific
// knobs (baryonic feedback parameters and the like) keyed by name; they ride
// along in the bounds-check proposal but do not affect the baseline spectrum.
type Parameters struct {
	OmegaC float64 // cold dark matter density fraction
	OmegaB float64 // baryon density fraction
	H      float64 // dimensionless Hubble parameter h
	Sigma8 float64 // amplitude of matter fluctuations in 8 Mpc/h spheres
	NS     float64 // primordial spectral index

	Extra map[string]float64
}

// Validate rejects parameter sets the baseline computation cannot handle.
func (p Parameters) Validate() error {
	if p.OmegaC <= 0 || p.OmegaB <= 0 {
		return fmt.Errorf("%w: non-positive density fraction", ErrBadParameters)
	}
	if p.H <= 0 {
		return fmt.Errorf("%w: non-positive h", ErrBadParameters)
	}
	if p.Sigma8 <= 0 {
		return fmt.Errorf("%w: non-positive sigma8", ErrBadParameters)
	}
	return nil
}

// Proposal flattens the parameter set into the mapping handed to a
// backend's bounds check. Extra entries are merged in under their own names.
func (p Parameters) Proposal() map[string]float64 {
	proposal := map[string]float64{
		"Omega_c": p.OmegaC,
		"Omega_b": p.OmegaB,
		"h":       p.H,
		"sigma8":  p.Sigma8,
		"n_s":     p.NS,
	}
	for name, value := range p.Extra {
		proposal[name] = value
	}
	return proposal
}

// OmegaM returns the total matter fraction at scale factor a, assuming flat
// LCDM with Omega_L = 1 - Omega_m.
func (p Parameters) OmegaM(a float64) float64 {
	om := p.OmegaC + p.OmegaB
	ol := 1 - om
	ez2 := om/(a*a*a) + ol
	return om / (a * a * a * ez2)
}

// GrowthFactor returns the linear growth factor D(a), normalized to
// D(1) = 1, using the Carroll, Press & Turner (1992) fit.
func (p Parameters) GrowthFactor(a float64) float64 {
	return p.growthUnnormalized(a) / p.growthUnnormalized(1)
}

func (p Parameters) growthUnnormalized(a float64) float64 {
	om := p.OmegaM(a)
	ol := 1 - om
	g := 2.5 * om / (math.Pow(om, 4.0/7.0) - ol + (1+om/2)*(1+ol/70))
	return a * g
}

// LinearPower evaluates the baseline linear matter power spectrum at scale
// factor a and wavenumber k (1/Mpc), in Mpc^3.
func (p Parameters) LinearPower(a, k float64) float64 {
	d := p.GrowthFactor(a)
	return p.normalization() * p.primordialShape(k) * d * d
}

// LinearPowerTable tabulates LinearPower over the given grids.
func (p Parameters) LinearPowerTable(aGrid, logkGrid []float64) (*power.Table, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	norm := p.normalization()
	return power.FromFunc(aGrid, logkGrid, func(a, k float64) float64 {
		d := p.GrowthFactor(a)
		return norm * p.primordialShape(k) * d * d
	})
}

// primordialShape is k^ns T(k)^2 before amplitude normalization.
func (p Parameters) primordialShape(k float64) float64 {
	t := p.transferBBKS(k)
	return math.Pow(k, p.NS) * t * t
}

// transferBBKS is the Bardeen et al. (1986) transfer function with the
// Sugiyama (1995) shape-parameter correction. k in 1/Mpc.
func (p Parameters) transferBBKS(k float64) float64 {
	om := p.OmegaC + p.OmegaB
	gamma := om * p.H * math.Exp(-p.OmegaB*(1+math.Sqrt(2*p.H)/om))
	q := k / (gamma * p.H)
	if q < 1e-12 {
		return 1
	}
	poly := 1 + 3.89*q + math.Pow(16.1*q, 2) + math.Pow(5.46*q, 3) + math.Pow(6.71*q, 4)
	return math.Log(1+2.34*q) / (2.34 * q) * math.Pow(poly, -0.25)
}

// normalization fixes the spectrum amplitude so that sigma(8 Mpc/h) at a=1
// reproduces Sigma8.
func (p Parameters) normalization() float64 {
	r := 8.0 / p.H
	s2 := p.sigmaR2Unnormalized(r)
	return p.Sigma8 * p.Sigma8 / s2
}

// SigmaR returns the rms linear overdensity in top-hat spheres of comoving
// radius r (Mpc) at scale factor a.
func (p Parameters) SigmaR(r, a float64) float64 {
	return math.Sqrt(p.normalization()*p.sigmaR2Unnormalized(r)) * p.GrowthFactor(a)
}

const sigmaIntegrationPoints = 257

// sigmaR2Unnormalized is sigma^2(R) for unit amplitude, integrated in ln k
// with a top-hat window by Simpson's rule.
func (p Parameters) sigmaR2Unnormalized(r float64) float64 {
	lnkMin, lnkMax := math.Log(1e-5), math.Log(1e2)
	x := make([]float64, sigmaIntegrationPoints)
	f := make([]float64, sigmaIntegrationPoints)
	step := (lnkMax - lnkMin) / float64(sigmaIntegrationPoints-1)
	for i := range x {
		lnk := lnkMin + float64(i)*step
		k := math.Exp(lnk)
		w := topHatWindow(k * r)
		x[i] = lnk
		f[i] = k * k * k * p.primordialShape(k) * w * w / (2 * math.Pi * math.Pi)
	}
	return integrate.Simpsons(x, f)
}

func topHatWindow(x float64) float64 {
	if x < 1e-4 {
		return 1 - x*x/10
	}
	return 3 * (math.Sin(x) - x*math.Cos(x)) / (x * x * x)
}
