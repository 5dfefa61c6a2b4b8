package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunRequiresCommand(t *testing.T) {
	err := run(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "missing command") {
		t.Fatalf("expected usage error, got %v", err)
	}

	err = run(context.Background(), []string{"explode"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestBackendsCommand(t *testing.T) {
	if err := run(context.Background(), []string{"backends", "-store", "memory"}); err != nil {
		t.Fatalf("backends: %v", err)
	}
	if err := run(context.Background(), []string{"backends", "-store", "memory", "-json"}); err != nil {
		t.Fatalf("backends json: %v", err)
	}
}

func TestPowerCommand(t *testing.T) {
	args := []string{
		"power",
		"-store", "memory",
		"-backend", "onehalo",
		"-baryons", "bcm",
		"-sigma8", "0.8",
		"-extra", "bcm_log10Mc=13.5,bcm_ks=40",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("power: %v", err)
	}
}

func TestPowerCommandRejectsMalformedExtras(t *testing.T) {
	args := []string{"power", "-store", "memory", "-extra", "garbage"}
	err := run(context.Background(), args)
	if err == nil || !strings.Contains(err.Error(), "malformed extra parameter") {
		t.Fatalf("expected extras parse error, got %v", err)
	}
}

func TestPowerCommandOutOfBounds(t *testing.T) {
	args := []string{"power", "-store", "memory", "-sigma8", "3.0"}
	if err := run(context.Background(), args); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestPowerCommandWithTabulatedBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trained.json")
	data, err := json.Marshal(map[string]any{
		"a":      []float64{0.5, 1.0},
		"logk":   []float64{-2, 0, 2},
		"nonlin": [][]float64{{1, 2, 3}, {4, 5, 6}},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	args := []string{
		"power",
		"-store", "memory",
		"-backend", "trained",
		"-tab-name", "trained",
		"-tab-path", path,
		"-tab-caps", "nonlin",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("power with tabulated backend: %v", err)
	}
}

func TestPowerCommandPartialTabulatedFlags(t *testing.T) {
	args := []string{"power", "-store", "memory", "-tab-name", "trained"}
	err := run(context.Background(), args)
	if err == nil || !strings.Contains(err.Error(), "-tab-path") {
		t.Fatalf("expected tabulated flag validation error, got %v", err)
	}
}

func TestSpectraCommandEmptyStore(t *testing.T) {
	if err := run(context.Background(), []string{"spectra", "-store", "memory"}); err != nil {
		t.Fatalf("spectra: %v", err)
	}
	if err := run(context.Background(), []string{"spectra", "-store", "memory", "-limit", "0"}); err == nil {
		t.Fatal("expected limit validation error")
	}
	if err := run(context.Background(), []string{"spectra", "-store", "memory", "-id", "missing"}); err == nil {
		t.Fatal("expected missing spectrum error")
	}
}

func TestMassFuncCommand(t *testing.T) {
	if err := run(context.Background(), []string{"massfunc", "-name", "Press74", "-points", "5"}); err != nil {
		t.Fatalf("massfunc: %v", err)
	}
	if err := run(context.Background(), []string{"massfunc", "-list"}); err != nil {
		t.Fatalf("massfunc list: %v", err)
	}
	if err := run(context.Background(), []string{"massfunc", "-name", "unknown"}); err == nil {
		t.Fatal("expected unknown parametrization error")
	}
}

func TestParseExtras(t *testing.T) {
	extras, err := parseExtras("bcm_etab=0.4,bcm_ks=30")
	if err != nil {
		t.Fatalf("parse extras: %v", err)
	}
	if extras["bcm_etab"] != 0.4 || extras["bcm_ks"] != 30 {
		t.Fatalf("unexpected extras: %v", extras)
	}

	if _, err := parseExtras("x=notanumber"); err == nil {
		t.Fatal("expected numeric parse error")
	}
	empty, err := parseExtras("")
	if err != nil || empty != nil {
		t.Fatalf("expected nil extras for empty input, got %v err=%v", empty, err)
	}
}
