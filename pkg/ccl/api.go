// Package ccl is the embeddable client surface: it owns a backend registry
// and a spectrum store and exposes the compute operations the CLI drives.
package ccl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ethlau/CCL/internal/bounds"
	"github.com/ethlau/CCL/internal/cosmology"
	"github.com/ethlau/CCL/internal/emulator"
	"github.com/ethlau/CCL/internal/halos"
	"github.com/ethlau/CCL/internal/model"
	"github.com/ethlau/CCL/internal/power"
	"github.com/ethlau/CCL/internal/storage"
)

const defaultDBPath = "ccl.db"

type Options struct {
	StoreKind string
	DBPath    string
}

type Client struct {
	store    storage.Store
	registry *emulator.Registry

	mu          sync.Mutex
	initialized bool
	payloads    map[string]string
}

// Params is a flat LCDM parameter set. Zero-valued fields fall back to a
// vanilla cosmology. Extra carries backend-specific knobs keyed by the names
// the backend's bounds declare.
type Params struct {
	OmegaC float64
	OmegaB float64
	H      float64
	Sigma8 float64
	NS     float64
	Extra  map[string]float64
}

type PowerRequest struct {
	Backend       string
	BaryonBackend string
	LinearOnly    bool
	Params        Params
}

type PowerSummary struct {
	ID            string
	Backend       string
	BaryonBackend string
	CreatedAtUTC  string
	ScaleFactors  int
	Wavenumbers   int
	KMin          float64
	KMax          float64
	PayloadBytes  int64
}

type BackendItem struct {
	Name         string
	Capabilities string
}

type SpectrumItem struct {
	ID            string
	Backend       string
	BaryonBackend string
	CreatedAtUTC  string
	ScaleFactors  int
	Wavenumbers   int
}

type SpectrumDetail struct {
	SpectrumItem
	A      []float64
	LogK   []float64
	Values [][]float64
}

type RegisterTabulatedRequest struct {
	Name         string
	Path         string
	Capabilities []string
	BoxJSON      string
}

type MassFuncRequest struct {
	Name      string
	Params    Params
	A         float64
	Log10MMin float64
	Log10MMax float64
	Points    int
}

type MassFuncPoint struct {
	Log10M    float64
	DnDlog10M float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:    store,
		registry: emulator.DefaultRegistry(),
		payloads: make(map[string]string),
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// RegisterTabulated wires a trained emulator exported as a JSON payload into
// the client's registry under its own name. The payload is not read here; it
// loads lazily on first use.
func (c *Client) RegisterTabulated(req RegisterTabulatedRequest) error {
	if req.Name == "" {
		return errors.New("backend name is required")
	}
	if req.Path == "" {
		return errors.New("payload path is required")
	}
	if len(req.Capabilities) == 0 {
		return errors.New("at least one capability is required")
	}

	var caps emulator.Capability
	for _, name := range req.Capabilities {
		flag, err := capabilityFromName(name)
		if err != nil {
			return err
		}
		caps |= flag
	}

	b := bounds.Unconstrained()
	if req.BoxJSON != "" {
		parsed, err := bounds.ParseBox(req.BoxJSON)
		if err != nil {
			return err
		}
		b = parsed
	}

	if err := c.registry.Register(emulator.TabulatedSpec(req.Name, req.Path, caps, b)); err != nil {
		return err
	}

	c.mu.Lock()
	c.payloads[req.Name] = req.Path
	c.mu.Unlock()
	return nil
}

// ComputePower computes a matter power spectrum with the requested backend,
// optionally composes a baryonic correction from a second backend, persists
// the result under a fresh ID, and returns its summary.
func (c *Client) ComputePower(ctx context.Context, req PowerRequest) (PowerSummary, error) {
	if req.Backend == "" {
		req.Backend = "onehalo"
	}
	params := req.Params.parameters()
	if err := params.Validate(); err != nil {
		return PowerSummary{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return PowerSummary{}, err
	}

	inst, err := c.registry.Load(ctx, req.Backend)
	if err != nil {
		return PowerSummary{}, err
	}

	var table *power.Table
	if req.LinearOnly {
		table, err = inst.PkLinear(ctx, params)
	} else {
		table, err = inst.PkNonlin(ctx, params)
	}
	if err != nil {
		return PowerSummary{}, err
	}

	if req.BaryonBackend != "" {
		table, err = emulator.BaryonCorrect(ctx, c.registry, req.BaryonBackend, params, table)
		if err != nil {
			return PowerSummary{}, err
		}
	}

	record := model.SpectrumRecord{
		ID:            uuid.NewString(),
		Backend:       req.Backend,
		BaryonBackend: req.BaryonBackend,
		CreatedAtUTC:  time.Now().UTC().Format(time.RFC3339Nano),
		A:             append([]float64(nil), table.A...),
		LogK:          append([]float64(nil), table.LogK...),
		Values:        tableRows(table),
	}
	storage.StampVersions(&record.VersionedRecord)
	if err := c.store.SaveSpectrum(ctx, record); err != nil {
		return PowerSummary{}, err
	}

	payloadBytes, err := c.cachePayload(ctx, req.Backend, inst)
	if err != nil {
		return PowerSummary{}, err
	}

	return PowerSummary{
		ID:            record.ID,
		Backend:       record.Backend,
		BaryonBackend: record.BaryonBackend,
		CreatedAtUTC:  record.CreatedAtUTC,
		ScaleFactors:  len(record.A),
		Wavenumbers:   len(record.LogK),
		KMin:          math.Exp(record.LogK[0]),
		KMax:          math.Exp(record.LogK[len(record.LogK)-1]),
		PayloadBytes:  payloadBytes,
	}, nil
}

// cachePayload mirrors a tabulated backend's payload into the store after
// its first successful use, so a later process can recover it even if the
// source file moves. Analytic backends have nothing to cache.
func (c *Client) cachePayload(ctx context.Context, name string, inst *emulator.Instance) (int64, error) {
	c.mu.Lock()
	path, ok := c.payloads[name]
	c.mu.Unlock()
	if !ok {
		return 0, nil
	}

	size, ok := emulator.PayloadSizeIfSupported(inst.Backend())
	if !ok || size == 0 {
		return 0, nil
	}

	if _, cached, err := c.store.GetPayload(ctx, name); err != nil {
		return 0, err
	} else if cached {
		return size, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("cache payload for %q: %w", name, err)
	}
	record := model.PayloadRecord{Backend: name, SourcePath: path, Data: data}
	storage.StampVersions(&record.VersionedRecord)
	if err := c.store.SavePayload(ctx, record); err != nil {
		return 0, err
	}
	return size, nil
}

// Backends lists the registered backends with their capability flags, sorted
// by name.
func (c *Client) Backends() []BackendItem {
	specs := c.registry.Specs()
	out := make([]BackendItem, 0, len(specs))
	for _, spec := range specs {
		out = append(out, BackendItem{Name: spec.Name, Capabilities: spec.Capabilities.String()})
	}
	return out
}

// Spectra lists stored spectra, newest first.
func (c *Client) Spectra(ctx context.Context, limit int) ([]SpectrumItem, error) {
	if limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	records, err := c.store.ListSpectra(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SpectrumItem, 0, len(records))
	for _, record := range records {
		out = append(out, spectrumItem(record))
	}
	return out, nil
}

// Spectrum fetches one stored spectrum, grids and values included.
func (c *Client) Spectrum(ctx context.Context, id string) (SpectrumDetail, error) {
	if id == "" {
		return SpectrumDetail{}, errors.New("spectrum id is required")
	}
	if err := c.ensureStore(ctx); err != nil {
		return SpectrumDetail{}, err
	}

	record, ok, err := c.store.GetSpectrum(ctx, id)
	if err != nil {
		return SpectrumDetail{}, err
	}
	if !ok {
		return SpectrumDetail{}, fmt.Errorf("spectrum not found: %s", id)
	}
	return SpectrumDetail{
		SpectrumItem: spectrumItem(record),
		A:            record.A,
		LogK:         record.LogK,
		Values:       record.Values,
	}, nil
}

// MassFuncs lists the registered halo mass function parametrizations.
func (c *Client) MassFuncs() []string {
	return halos.ListMassFuncs()
}

// MassFunction tabulates dn/dlog10M over a logarithmic mass grid with the
// named parametrization.
func (c *Client) MassFunction(req MassFuncRequest) ([]MassFuncPoint, error) {
	if req.Name == "" {
		req.Name = "Sheth99"
	}
	if req.A == 0 {
		req.A = 1
	}
	if req.Log10MMin == 0 {
		req.Log10MMin = 10
	}
	if req.Log10MMax == 0 {
		req.Log10MMax = 15
	}
	if req.Points <= 0 {
		req.Points = 11
	}
	if req.Log10MMax <= req.Log10MMin {
		return nil, errors.New("mass range must be increasing")
	}

	mf, err := halos.MassFuncFromName(req.Name)
	if err != nil {
		return nil, err
	}
	params := req.Params.parameters()

	out := make([]MassFuncPoint, 0, req.Points)
	step := (req.Log10MMax - req.Log10MMin) / float64(req.Points-1)
	for i := 0; i < req.Points; i++ {
		log10M := req.Log10MMin + float64(i)*step
		dn, err := halos.MassFunction(params, mf, math.Pow(10, log10M), req.A)
		if err != nil {
			return nil, err
		}
		out = append(out, MassFuncPoint{Log10M: log10M, DnDlog10M: dn})
	}
	return out, nil
}

func (p Params) parameters() cosmology.Parameters {
	out := cosmology.Parameters{
		OmegaC: p.OmegaC,
		OmegaB: p.OmegaB,
		H:      p.H,
		Sigma8: p.Sigma8,
		NS:     p.NS,
		Extra:  p.Extra,
	}
	if out.OmegaC == 0 {
		out.OmegaC = 0.25
	}
	if out.OmegaB == 0 {
		out.OmegaB = 0.05
	}
	if out.H == 0 {
		out.H = 0.67
	}
	if out.Sigma8 == 0 {
		out.Sigma8 = 0.81
	}
	if out.NS == 0 {
		out.NS = 0.96
	}
	return out
}

func capabilityFromName(name string) (emulator.Capability, error) {
	switch name {
	case "linear":
		return emulator.CapLinear, nil
	case "nonlin":
		return emulator.CapNonlin, nil
	case "nonlin_boost":
		return emulator.CapNonlinBoost, nil
	case "baryon_boost":
		return emulator.CapBaryonBoost, nil
	default:
		return 0, fmt.Errorf("unsupported capability %q (want linear, nonlin, nonlin_boost or baryon_boost)", name)
	}
}

func spectrumItem(record model.SpectrumRecord) SpectrumItem {
	return SpectrumItem{
		ID:            record.ID,
		Backend:       record.Backend,
		BaryonBackend: record.BaryonBackend,
		CreatedAtUTC:  record.CreatedAtUTC,
		ScaleFactors:  len(record.A),
		Wavenumbers:   len(record.LogK),
	}
}

func tableRows(table *power.Table) [][]float64 {
	rows := make([][]float64, len(table.A))
	for i := range rows {
		rows[i] = make([]float64, len(table.LogK))
		for j := range rows[i] {
			rows[i][j] = table.Values.At(i, j)
		}
	}
	return rows
}
