package storage

import (
	"context"
	"testing"

	"github.com/ethlau/CCL/internal/model"
)

func newInitialized(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return store
}

func spectrumFixture(id, created string) model.SpectrumRecord {
	record := model.SpectrumRecord{
		ID:           id,
		Backend:      "onehalo",
		CreatedAtUTC: created,
		A:            []float64{0.5, 1.0},
		LogK:         []float64{0, 1},
		Values:       [][]float64{{1, 2}, {3, 4}},
	}
	StampVersions(&record.VersionedRecord)
	return record
}

func TestMemoryStoreSpectrumRoundTrip(t *testing.T) {
	store := newInitialized(t)
	ctx := context.Background()

	record := spectrumFixture("abc", "2026-01-02T03:04:05Z")
	if err := store.SaveSpectrum(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.GetSpectrum(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Backend != "onehalo" || got.Values[1][1] != 4 {
		t.Fatalf("unexpected record: %+v", got)
	}

	_, ok, err = store.GetSpectrum(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("missing id: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreListSpectraOrderAndLimit(t *testing.T) {
	store := newInitialized(t)
	ctx := context.Background()

	for _, f := range []struct{ id, created string }{
		{"old", "2026-01-01T00:00:00Z"},
		{"new", "2026-01-03T00:00:00Z"},
		{"mid", "2026-01-02T00:00:00Z"},
	} {
		if err := store.SaveSpectrum(ctx, spectrumFixture(f.id, f.created)); err != nil {
			t.Fatalf("save %s: %v", f.id, err)
		}
	}

	records, err := store.ListSpectra(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 || records[0].ID != "new" || records[2].ID != "old" {
		t.Fatalf("unexpected order: %+v", records)
	}

	limited, err := store.ListSpectra(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "new" {
		t.Fatalf("unexpected limited list: %+v", limited)
	}
}

func TestMemoryStorePayloadRoundTrip(t *testing.T) {
	store := newInitialized(t)
	ctx := context.Background()

	record := model.PayloadRecord{Backend: "trained", SourcePath: "/tmp/emu.json", Data: []byte("x")}
	StampVersions(&record.VersionedRecord)
	if err := store.SavePayload(ctx, record); err != nil {
		t.Fatalf("save payload: %v", err)
	}

	got, ok, err := store.GetPayload(ctx, "trained")
	if err != nil || !ok {
		t.Fatalf("get payload: ok=%v err=%v", ok, err)
	}
	if string(got.Data) != "x" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}
