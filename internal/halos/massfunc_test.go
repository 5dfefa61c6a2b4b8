package halos

import (
	"errors"
	"math"
	"testing"

	"github.com/ethlau/CCL/internal/cosmology"
)

func vanilla() cosmology.Parameters {
	return cosmology.Parameters{OmegaC: 0.25, OmegaB: 0.05, H: 0.67, Sigma8: 0.81, NS: 0.96}
}

func TestMassFuncRegistry(t *testing.T) {
	resetMassFuncRegistryForTests()
	t.Cleanup(resetMassFuncRegistryForTests)

	names := ListMassFuncs()
	want := []string{"Press74", "Sheth99"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}

	mf, err := MassFuncFromName("Sheth99")
	if err != nil {
		t.Fatalf("from name: %v", err)
	}
	if mf.Name() != "Sheth99" {
		t.Fatalf("resolved %q", mf.Name())
	}

	if _, err := MassFuncFromName("Tinker08"); !errors.Is(err, ErrMassFuncNotFound) {
		t.Fatalf("expected ErrMassFuncNotFound, got %v", err)
	}
	if err := RegisterMassFunc(&MassFuncPress74{}); !errors.Is(err, ErrMassFuncExists) {
		t.Fatalf("expected ErrMassFuncExists, got %v", err)
	}
}

func TestPress74AtUnitNu(t *testing.T) {
	mf := &MassFuncPress74{}
	// sigma = delta_c makes nu = 1: f = sqrt(2/pi) e^{-1/2}
	got, err := mf.FSigma(vanilla(), deltaCollapse, 1, math.Log(1e13))
	if err != nil {
		t.Fatalf("fsigma: %v", err)
	}
	want := math.Sqrt(2/math.Pi) * math.Exp(-0.5)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("f(nu=1) = %v, want %v", got, want)
	}
}

func TestSheth99AtUnitNu(t *testing.T) {
	mf := &MassFuncSheth99{}
	got, err := mf.FSigma(vanilla(), deltaCollapse, 1, math.Log(1e13))
	if err != nil {
		t.Fatalf("fsigma: %v", err)
	}
	want := sheth99A * (1 + math.Pow(sheth99a, -sheth99p)) * math.Exp(-sheth99a/2)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("f(nu=1) = %v, want %v", got, want)
	}
	if math.Abs(got-0.32025) > 1e-4 {
		t.Fatalf("f(nu=1) = %v, want about 0.32025", got)
	}
}

func TestSheth99DeltaCFit(t *testing.T) {
	plain := &MassFuncSheth99{}
	fitted := &MassFuncSheth99{UseDeltaCFit: true}
	params := vanilla()

	sigM := 1.0
	f0, err := plain.FSigma(params, sigM, 1, math.Log(1e14))
	if err != nil {
		t.Fatalf("plain: %v", err)
	}
	f1, err := fitted.FSigma(params, sigM, 1, math.Log(1e14))
	if err != nil {
		t.Fatalf("fitted: %v", err)
	}

	// Omega_m(1) < 1 lowers the fitted delta_c slightly, so the two must
	// differ but stay close
	if f0 == f1 {
		t.Fatal("delta_c fit had no effect")
	}
	if math.Abs(f0-f1)/f0 > 0.05 {
		t.Fatalf("delta_c fit moved f(sigma) too much: %v vs %v", f0, f1)
	}
}

func TestFSigmaRejectsBadSigma(t *testing.T) {
	for _, mf := range []MassFunc{&MassFuncPress74{}, &MassFuncSheth99{}} {
		if _, err := mf.FSigma(vanilla(), 0, 1, 0); err == nil {
			t.Fatalf("%s accepted sigma=0", mf.Name())
		}
	}
}

func TestMassToRadiusScaling(t *testing.T) {
	params := vanilla()
	r1 := MassToRadius(params, 1e13)
	r2 := MassToRadius(params, 8e13)
	if math.Abs(r2/r1-2) > 1e-10 {
		t.Fatalf("8x mass should double the radius: %v vs %v", r1, r2)
	}
}

func TestMassFunctionDeclinesAtHighMass(t *testing.T) {
	params := vanilla()
	mf := &MassFuncSheth99{}

	nLow, err := MassFunction(params, mf, 1e13, 1)
	if err != nil {
		t.Fatalf("n(1e13): %v", err)
	}
	nHigh, err := MassFunction(params, mf, 1e15, 1)
	if err != nil {
		t.Fatalf("n(1e15): %v", err)
	}
	if nLow <= 0 || nHigh <= 0 {
		t.Fatalf("mass function not positive: %v, %v", nLow, nHigh)
	}
	if nHigh >= nLow {
		t.Fatalf("dn/dlog10M should fall with mass: n(1e15)=%v >= n(1e13)=%v", nHigh, nLow)
	}
}

func TestMassFunctionSuppressedAtEarlyTimes(t *testing.T) {
	params := vanilla()
	mf := &MassFuncSheth99{}

	nNow, err := MassFunction(params, mf, 1e15, 1)
	if err != nil {
		t.Fatalf("n(a=1): %v", err)
	}
	nEarly, err := MassFunction(params, mf, 1e15, 0.5)
	if err != nil {
		t.Fatalf("n(a=0.5): %v", err)
	}
	if nEarly >= nNow {
		t.Fatalf("massive halos should be rarer earlier: %v >= %v", nEarly, nNow)
	}
}
