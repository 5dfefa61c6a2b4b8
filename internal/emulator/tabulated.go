package emulator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/ethlau/CCL/internal/bounds"
	"github.com/ethlau/CCL/internal/cosmology"
	"github.com/ethlau/CCL/internal/power"
)

// tabulatedPayload is the on-disk form of a trained emulator: prediction
// grids per capability over a fixed (a, log k) grid. Boost tables are
// multiplicative corrections; spectrum tables are absolute.
type tabulatedPayload struct {
	A           []float64   `json:"a"`
	LogK        []float64   `json:"logk"`
	Linear      [][]float64 `json:"linear,omitempty"`
	Nonlin      [][]float64 `json:"nonlin,omitempty"`
	NonlinBoost [][]float64 `json:"nonlin_boost,omitempty"`
	BaryonBoost [][]float64 `json:"baryon_boost,omitempty"`
}

// TabulatedSpec builds a registry spec for an emulator whose predictions
// were exported to a JSON payload at path. Registration stays cheap: the
// payload is read and decoded only on first use, via LoadPayload.
func TabulatedSpec(name, path string, caps Capability, b bounds.Bounds) Spec {
	return Spec{
		Name:         name,
		Capabilities: caps,
		New: func() Backend {
			return &tabulatedBackend{path: path, caps: caps, bounds: b}
		},
	}
}

type tabulatedBackend struct {
	path   string
	caps   Capability
	bounds bounds.Bounds

	mu     sync.RWMutex
	size   int64
	tables map[Capability]*power.Table
}

func (t *tabulatedBackend) Bounds() bounds.Bounds { return t.bounds }

// PayloadSize reports the decoded payload size in bytes; zero before load.
func (t *tabulatedBackend) PayloadSize() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// LoadPayload deserializes the exported prediction grids. The registry
// guarantees this runs at most once per registered name.
func (t *tabulatedBackend) LoadPayload(_ context.Context) error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("read emulator payload: %w", err)
	}
	var payload tabulatedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode emulator payload %s: %w", t.path, err)
	}

	tables := make(map[Capability]*power.Table)
	for _, part := range []struct {
		flag Capability
		grid [][]float64
		name string
	}{
		{CapLinear, payload.Linear, "linear"},
		{CapNonlin, payload.Nonlin, "nonlin"},
		{CapNonlinBoost, payload.NonlinBoost, "nonlin_boost"},
		{CapBaryonBoost, payload.BaryonBoost, "baryon_boost"},
	} {
		if !t.caps.Has(part.flag) {
			continue
		}
		if part.grid == nil {
			return fmt.Errorf("%w: payload %s lacks the %s table declared at registration",
				bounds.ErrInvalidConfiguration, t.path, part.name)
		}
		table, err := gridTable(payload.A, payload.LogK, part.grid)
		if err != nil {
			return fmt.Errorf("payload %s table %s: %w", t.path, part.name, err)
		}
		tables[part.flag] = table
	}

	t.mu.Lock()
	t.tables = tables
	t.size = int64(len(data))
	t.mu.Unlock()
	return nil
}

func gridTable(a, logk []float64, grid [][]float64) (*power.Table, error) {
	values := mat.NewDense(len(a), len(logk), nil)
	if len(grid) != len(a) {
		return nil, fmt.Errorf("%w: %d rows for %d scale factors", power.ErrBadGrid, len(grid), len(a))
	}
	for i, row := range grid {
		if len(row) != len(logk) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d wavenumbers",
				power.ErrBadGrid, i, len(row), len(logk))
		}
		values.SetRow(i, row)
	}
	return power.New(a, logk, values)
}

func (t *tabulatedBackend) table(flag Capability, hook string) (*power.Table, error) {
	t.mu.RLock()
	table, ok := t.tables[flag]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tabulated backend has no %s table", ErrNotImplemented, hook)
	}
	return table.Clone(), nil
}

func (t *tabulatedBackend) PkLinear(_ context.Context, _ cosmology.Parameters) (*power.Table, error) {
	return t.table(CapLinear, "linear")
}

func (t *tabulatedBackend) PkNonlin(_ context.Context, _ cosmology.Parameters) (*power.Table, error) {
	return t.table(CapNonlin, "nonlin")
}

func (t *tabulatedBackend) NonlinBoost(_ context.Context, _ cosmology.Parameters) (*power.Table, error) {
	return t.table(CapNonlinBoost, "nonlin_boost")
}

func (t *tabulatedBackend) BaryonBoost(_ context.Context, _ cosmology.Parameters) (*power.Table, error) {
	return t.table(CapBaryonBoost, "baryon_boost")
}
