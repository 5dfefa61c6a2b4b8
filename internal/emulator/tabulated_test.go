package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethlau/CCL/internal/bounds"
)

func writePayload(t *testing.T, payload tabulatedPayload) string {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	path := filepath.Join(t.TempDir(), "emu.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return path
}

func TestTabulatedBackendLoadsAndPredicts(t *testing.T) {
	path := writePayload(t, tabulatedPayload{
		A:    []float64{0.5, 1.0},
		LogK: []float64{0, 1, 2},
		Nonlin: [][]float64{
			{1, 2, 3},
			{4, 5, 6},
		},
	})

	reg := NewRegistry()
	spec := TabulatedSpec("trained", path, CapNonlin, bounds.Unconstrained())
	if err := reg.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx := context.Background()
	inst, err := reg.Load(ctx, "trained")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	pk, err := inst.PkNonlin(ctx, testParams())
	if err != nil {
		t.Fatalf("nonlin: %v", err)
	}
	if pk.Values.At(1, 2) != 6 {
		t.Fatalf("predicted value = %v, want 6", pk.Values.At(1, 2))
	}

	size, ok := PayloadSizeIfSupported(inst.Backend())
	if !ok || size <= 0 {
		t.Fatalf("payload size = %d, %v; want positive", size, ok)
	}
}

func TestTabulatedBackendMissingDeclaredTable(t *testing.T) {
	path := writePayload(t, tabulatedPayload{
		A:    []float64{0.5, 1.0},
		LogK: []float64{0, 1},
		Nonlin: [][]float64{
			{1, 2},
			{3, 4},
		},
	})

	reg := NewRegistry()
	// declares a baryon boost the payload does not carry
	spec := TabulatedSpec("trained", path, CapNonlin|CapBaryonBoost, bounds.Unconstrained())
	if err := reg.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := reg.Load(context.Background(), "trained")
	if !errors.Is(err, bounds.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestTabulatedBackendMissingFile(t *testing.T) {
	reg := NewRegistry()
	spec := TabulatedSpec("trained", filepath.Join(t.TempDir(), "nope.json"),
		CapNonlin, bounds.Unconstrained())
	if err := reg.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.Load(context.Background(), "trained"); err == nil {
		t.Fatal("expected load error for missing payload file")
	}
}

func TestTabulatedBackendMalformedGrid(t *testing.T) {
	path := writePayload(t, tabulatedPayload{
		A:    []float64{0.5, 1.0},
		LogK: []float64{0, 1},
		Nonlin: [][]float64{
			{1, 2, 3}, // row width mismatch
			{4, 5, 6},
		},
	})

	reg := NewRegistry()
	spec := TabulatedSpec("trained", path, CapNonlin, bounds.Unconstrained())
	if err := reg.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.Load(context.Background(), "trained"); err == nil {
		t.Fatal("expected load error for malformed payload grid")
	}
}
