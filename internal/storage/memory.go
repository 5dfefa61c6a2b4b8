package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/ethlau/CCL/internal/model"
)

type MemoryStore struct {
	mu       sync.RWMutex
	spectra  map[string]model.SpectrumRecord
	payloads map[string]model.PayloadRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spectra = make(map[string]model.SpectrumRecord)
	s.payloads = make(map[string]model.PayloadRecord)
	return nil
}

func (s *MemoryStore) SaveSpectrum(_ context.Context, record model.SpectrumRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spectra[record.ID] = record
	return nil
}

func (s *MemoryStore) GetSpectrum(_ context.Context, id string) (model.SpectrumRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.spectra[id]
	return record, ok, nil
}

func (s *MemoryStore) ListSpectra(_ context.Context, limit int) ([]model.SpectrumRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.SpectrumRecord, 0, len(s.spectra))
	for _, record := range s.spectra {
		records = append(records, record)
	}
	// newest first, id as tiebreaker for a stable order
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAtUTC != records[j].CreatedAtUTC {
			return records[i].CreatedAtUTC > records[j].CreatedAtUTC
		}
		return records[i].ID < records[j].ID
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) SavePayload(_ context.Context, record model.PayloadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payloads[record.Backend] = record
	return nil
}

func (s *MemoryStore) GetPayload(_ context.Context, backend string) (model.PayloadRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.payloads[backend]
	return record, ok, nil
}
