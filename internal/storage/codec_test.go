package storage

import (
	"errors"
	"testing"

	"github.com/ethlau/CCL/internal/model"
)

func TestSpectrumCodecRoundTrip(t *testing.T) {
	record := spectrumFixture("id-1", "2026-01-02T03:04:05Z")
	record.BaryonBackend = "bcm"

	data, err := EncodeSpectrum(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSpectrum(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != record.ID || got.BaryonBackend != "bcm" || got.Values[0][1] != 2 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestDecodeSpectrumVersionMismatch(t *testing.T) {
	record := spectrumFixture("id-1", "2026-01-02T03:04:05Z")
	record.SchemaVersion = 99

	data, err := EncodeSpectrum(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeSpectrum(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestPayloadCodecRoundTrip(t *testing.T) {
	record := model.PayloadRecord{Backend: "trained", SourcePath: "/p", Data: []byte{1, 2, 3}}
	StampVersions(&record.VersionedRecord)

	data, err := EncodePayload(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodePayload(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Backend != "trained" || len(got.Data) != 3 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestDecodePayloadGarbage(t *testing.T) {
	if _, err := DecodePayload([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
