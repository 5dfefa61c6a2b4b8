package storage

import (
	"context"

	"github.com/ethlau/CCL/internal/model"
)

// Store defines persistence operations for computed spectra and cached
// emulator payloads.
type Store interface {
	Init(ctx context.Context) error
	SaveSpectrum(ctx context.Context, record model.SpectrumRecord) error
	GetSpectrum(ctx context.Context, id string) (model.SpectrumRecord, bool, error)
	ListSpectra(ctx context.Context, limit int) ([]model.SpectrumRecord, error)
	SavePayload(ctx context.Context, record model.PayloadRecord) error
	GetPayload(ctx context.Context, backend string) (model.PayloadRecord, bool, error)
}
