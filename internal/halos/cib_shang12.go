package halos

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
)

// CIBShang12 is the cosmic infrared background emission model of Shang et
// al. (2012). Infrared galaxy luminosity is a lognormal function of halo
// mass times a modified blackbody spectrum; satellites contribute the
// luminosity of their subhalos integrated over the Tinker & Wetzel (2010)
// subhalo mass function.
type CIBShang12 struct {
	NuGHz     float64 // observed frequency in GHz
	Alpha     float64 // dust temperature evolution, Td = T0 / a^Alpha
	T0        float64 // dust temperature at z=0, Kelvin
	Beta      float64 // dust spectral index
	Gamma     float64 // high-frequency power-law slope
	SZ        float64 // luminosity evolution slope
	Log10Meff float64 // log10 of the most efficient mass
	SigLM     float64 // lognormal scatter in mass
	Mmin      float64 // minimum subhalo mass, Msun
	L0        float64 // luminosity scale, Jy Mpc^2 / Msun
}

// NewCIBShang12 returns the profile with the fiducial Shang et al. (2012)
// parameters at the given observed frequency.
func NewCIBShang12(nuGHz float64) *CIBShang12 {
	return &CIBShang12{
		NuGHz:     nuGHz,
		Alpha:     0.36,
		T0:        24.4,
		Beta:      1.75,
		Gamma:     1.7,
		SZ:        3.6,
		Log10Meff: 12.6,
		SigLM:     0.707,
		Mmin:      1e10,
		L0:        6.4e-8,
	}
}

// Update changes any subset of the profile parameters in place; names
// follow the struct fields. Unknown names fail without partial updates.
func (p *CIBShang12) Update(changes map[string]float64) error {
	staged := *p
	for name, value := range changes {
		switch name {
		case "nu_GHz":
			staged.NuGHz = value
		case "alpha":
			staged.Alpha = value
		case "T0":
			staged.T0 = value
		case "beta":
			staged.Beta = value
		case "gamma":
			staged.Gamma = value
		case "s_z":
			staged.SZ = value
		case "log10meff":
			staged.Log10Meff = value
		case "sigLM":
			staged.SigLM = value
		case "Mmin":
			staged.Mmin = value
		case "L0":
			staged.L0 = value
		default:
			return fmt.Errorf("unknown CIB parameter %q", name)
		}
	}
	*p = staged
	return nil
}

// h * 1 GHz / k_B, in Kelvin.
const hGHzOverKB = 0.0479924466

// Spectrum is the normalized spectral energy distribution at rest-frame
// frequency nu (GHz) and scale factor a: a modified blackbody below the
// knee frequency nu0 and a power law above it, with nu0 fixed so the two
// join with a continuous derivative and S(nu0) = 1.
func (p *CIBShang12) Spectrum(nu, a float64) float64 {
	td := p.T0 / math.Pow(a, p.Alpha)
	x := hGHzOverKB * nu / td

	q := p.Beta + 3 + p.Gamma
	x0 := q + lambertW0(-q*math.Exp(-q))

	mbb := func(x float64) float64 {
		return math.Pow(x, 3+p.Beta) / (math.Exp(x) - 1)
	}
	mbb0 := mbb(x0)

	if x <= x0 {
		return mbb(x) / mbb0
	}
	return math.Pow(x0/x, p.Gamma)
}

// Sigma is the lognormal mass dependence of the infrared luminosity,
// M exp(-log10^2(M/Meff) / 2 sigLM^2) / sqrt(2 pi sigLM^2).
func (p *CIBShang12) Sigma(m float64) float64 {
	l10 := math.Log10(m) - p.Log10Meff
	norm := math.Sqrt(2 * math.Pi * p.SigLM * p.SigLM)
	return m / norm * math.Exp(-l10*l10/(2*p.SigLM*p.SigLM))
}

// SubhaloMF is the Tinker & Wetzel (2010) subhalo mass function
// dN_sub/dln m, for subhalo mass msub inside a parent of mass mparent.
func (p *CIBShang12) SubhaloMF(msub, mparent float64) float64 {
	r := msub / mparent
	return 0.30 * math.Pow(r, -0.7) * math.Exp(-9.9*math.Pow(r, 2.5))
}

// LumGal is the infrared luminosity of one galaxy in a halo of mass m at
// scale factor a, observed at the profile frequency (redshifted to the
// rest frame).
func (p *CIBShang12) LumGal(m, a float64) float64 {
	nuRest := p.NuGHz / a
	return p.L0 * math.Pow(a, -p.SZ) * p.Sigma(m) * p.Spectrum(nuRest, a)
}

// LumCen is the central-galaxy luminosity: one central above Mmin.
func (p *CIBShang12) LumCen(m, a float64) float64 {
	if m < p.Mmin {
		return 0
	}
	return p.LumGal(m, a)
}

const satIntegrationPoints = 65

// LumSat integrates the galaxy luminosity over the subhalo mass function
// from Mmin to the parent mass, by Simpson's rule in ln m.
func (p *CIBShang12) LumSat(m, a float64) float64 {
	if m <= p.Mmin {
		return 0
	}
	lnLo, lnHi := math.Log(p.Mmin), math.Log(m)
	x := make([]float64, satIntegrationPoints)
	f := make([]float64, satIntegrationPoints)
	step := (lnHi - lnLo) / float64(satIntegrationPoints-1)
	for i := range x {
		lnm := lnLo + float64(i)*step
		msub := math.Exp(lnm)
		x[i] = lnm
		f[i] = p.SubhaloMF(msub, m) * p.LumGal(msub, a)
	}
	return integrate.Simpsons(x, f)
}

// Emission is the total halo emission j_nu amplitude, centrals plus
// satellites, divided by 4 pi.
func (p *CIBShang12) Emission(m, a float64) float64 {
	const oneOver4Pi = 0.07957747154
	return oneOver4Pi * (p.LumCen(m, a) + p.LumSat(m, a))
}

// lambertW0 is the principal branch of the Lambert W function for
// x >= -1/e, by Halley iteration.
func lambertW0(x float64) float64 {
	if x < -1/math.E {
		return math.NaN()
	}
	w := 0.0
	if x > math.E {
		w = math.Log(x) - math.Log(math.Log(x))
	} else if x < 0 {
		// start on the principal branch near the fold
		w = x * math.E
	}
	for i := 0; i < 64; i++ {
		ew := math.Exp(w)
		f := w*ew - x
		if f == 0 {
			return w
		}
		denom := ew*(w+1) - (w+2)*f/(2*w+2)
		next := w - f/denom
		if math.Abs(next-w) < 1e-14*(1+math.Abs(next)) {
			return next
		}
		w = next
	}
	return w
}
