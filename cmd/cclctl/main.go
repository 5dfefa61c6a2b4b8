package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ethlau/CCL/internal/storage"
	cclapi "github.com/ethlau/CCL/pkg/ccl"
)

const defaultDBPath = "ccl.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "backends":
		return runBackends(ctx, args[1:])
	case "power":
		return runPower(ctx, args[1:])
	case "spectra":
		return runSpectra(ctx, args[1:])
	case "massfunc":
		return runMassFunc(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runBackends(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("backends", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	tabName := fs.String("tab-name", "", "register a tabulated backend under this name before listing")
	tabPath := fs.String("tab-path", "", "tabulated backend payload JSON path")
	tabCaps := fs.String("tab-caps", "", "tabulated backend capabilities, comma separated")
	tabBox := fs.String("tab-box", "", "tabulated backend bounds box as JSON (empty for unconstrained)")
	jsonOut := fs.Bool("json", false, "emit backend roster as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cclapi.New(cclapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := registerTabulatedFromFlags(client, *tabName, *tabPath, *tabCaps, *tabBox); err != nil {
		return err
	}

	roster := client.Backends()
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(roster)
	}
	for _, item := range roster {
		fmt.Printf("backend=%s capabilities=%s\n", item.Name, item.Capabilities)
	}
	return nil
}

func runPower(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("power", flag.ContinueOnError)
	backend := fs.String("backend", "onehalo", "power spectrum backend name")
	baryons := fs.String("baryons", "", "baryon correction backend name (empty disables)")
	linearOnly := fs.Bool("linear-only", false, "compute the linear spectrum only")
	omegaC := fs.Float64("omega-c", 0.25, "cold dark matter density fraction")
	omegaB := fs.Float64("omega-b", 0.05, "baryon density fraction")
	hubble := fs.Float64("hubble", 0.67, "dimensionless Hubble parameter h")
	sigma8 := fs.Float64("sigma8", 0.81, "fluctuation amplitude sigma8")
	ns := fs.Float64("ns", 0.96, "primordial spectral index")
	extra := fs.String("extra", "", "extra backend parameters as name=value pairs, comma separated")
	tabName := fs.String("tab-name", "", "register a tabulated backend under this name before computing")
	tabPath := fs.String("tab-path", "", "tabulated backend payload JSON path")
	tabCaps := fs.String("tab-caps", "", "tabulated backend capabilities, comma separated")
	tabBox := fs.String("tab-box", "", "tabulated backend bounds box as JSON (empty for unconstrained)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit spectrum summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	extras, err := parseExtras(*extra)
	if err != nil {
		return err
	}

	client, err := cclapi.New(cclapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := registerTabulatedFromFlags(client, *tabName, *tabPath, *tabCaps, *tabBox); err != nil {
		return err
	}

	summary, err := client.ComputePower(ctx, cclapi.PowerRequest{
		Backend:       *backend,
		BaryonBackend: *baryons,
		LinearOnly:    *linearOnly,
		Params: cclapi.Params{
			OmegaC: *omegaC,
			OmegaB: *omegaB,
			H:      *hubble,
			Sigma8: *sigma8,
			NS:     *ns,
			Extra:  extras,
		},
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	fmt.Printf("spectrum_id=%s backend=%s baryons=%s a_points=%d k_points=%d k_min=%.6g k_max=%.6g\n",
		summary.ID,
		summary.Backend,
		displayName(summary.BaryonBackend),
		summary.ScaleFactors,
		summary.Wavenumbers,
		summary.KMin,
		summary.KMax,
	)
	if summary.PayloadBytes > 0 {
		fmt.Printf("payload_size=%s\n", humanize.Bytes(uint64(summary.PayloadBytes)))
	}
	return nil
}

func runSpectra(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("spectra", flag.ContinueOnError)
	id := fs.String("id", "", "print one stored spectrum with its grids")
	limit := fs.Int("limit", 20, "max spectra to list")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit spectra as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := cclapi.New(cclapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *id != "" {
		detail, err := client.Spectrum(ctx, *id)
		if err != nil {
			return err
		}
		if *jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(detail)
		}
		fmt.Printf("spectrum_id=%s backend=%s baryons=%s created_at=%s a_points=%d k_points=%d\n",
			detail.ID,
			detail.Backend,
			displayName(detail.BaryonBackend),
			detail.CreatedAtUTC,
			detail.ScaleFactors,
			detail.Wavenumbers,
		)
		for i, a := range detail.A {
			fmt.Printf("a=%.4f p_first=%.6g p_last=%.6g\n", a, detail.Values[i][0], detail.Values[i][len(detail.Values[i])-1])
		}
		return nil
	}

	spectra, err := client.Spectra(ctx, *limit)
	if err != nil {
		return err
	}
	if len(spectra) == 0 {
		fmt.Println("no spectra found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(spectra)
	}
	for _, item := range spectra {
		fmt.Printf("spectrum_id=%s backend=%s baryons=%s created_at=%s a_points=%d k_points=%d\n",
			item.ID,
			item.Backend,
			displayName(item.BaryonBackend),
			item.CreatedAtUTC,
			item.ScaleFactors,
			item.Wavenumbers,
		)
	}
	return nil
}

func runMassFunc(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("massfunc", flag.ContinueOnError)
	name := fs.String("name", "Sheth99", "mass function parametrization name")
	scaleFactor := fs.Float64("a", 1.0, "scale factor")
	log10MMin := fs.Float64("log10m-min", 10, "lower log10 halo mass (Msun)")
	log10MMax := fs.Float64("log10m-max", 15, "upper log10 halo mass (Msun)")
	points := fs.Int("points", 11, "number of mass grid points")
	omegaC := fs.Float64("omega-c", 0.25, "cold dark matter density fraction")
	omegaB := fs.Float64("omega-b", 0.05, "baryon density fraction")
	hubble := fs.Float64("hubble", 0.67, "dimensionless Hubble parameter h")
	sigma8 := fs.Float64("sigma8", 0.81, "fluctuation amplitude sigma8")
	ns := fs.Float64("ns", 0.96, "primordial spectral index")
	list := fs.Bool("list", false, "list registered parametrizations and exit")
	jsonOut := fs.Bool("json", false, "emit mass function table as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cclapi.New(cclapi.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *list {
		for _, mfName := range client.MassFuncs() {
			fmt.Printf("massfunc=%s\n", mfName)
		}
		return nil
	}

	table, err := client.MassFunction(cclapi.MassFuncRequest{
		Name:      *name,
		A:         *scaleFactor,
		Log10MMin: *log10MMin,
		Log10MMax: *log10MMax,
		Points:    *points,
		Params: cclapi.Params{
			OmegaC: *omegaC,
			OmegaB: *omegaB,
			H:      *hubble,
			Sigma8: *sigma8,
			NS:     *ns,
		},
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}
	for _, point := range table {
		fmt.Printf("log10m=%.3f dn_dlog10m=%.6e\n", point.Log10M, point.DnDlog10M)
	}
	return nil
}

func registerTabulatedFromFlags(client *cclapi.Client, name, path, caps, box string) error {
	if name == "" && path == "" && caps == "" {
		return nil
	}
	if name == "" || path == "" || caps == "" {
		return errors.New("tabulated backend registration needs -tab-name, -tab-path and -tab-caps")
	}
	return client.RegisterTabulated(cclapi.RegisterTabulatedRequest{
		Name:         name,
		Path:         path,
		Capabilities: strings.Split(caps, ","),
		BoxJSON:      box,
	})
}

func parseExtras(text string) (map[string]float64, error) {
	if text == "" {
		return nil, nil
	}
	out := make(map[string]float64)
	for _, pair := range strings.Split(text, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed extra parameter %q (want name=value)", pair)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("extra parameter %s: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

func displayName(name string) string {
	if name == "" {
		return "none"
	}
	return name
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: cclctl <backends|power|spectra|massfunc> [flags]", msg)
}
