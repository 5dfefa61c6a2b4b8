package storage

import (
	"encoding/json"
	"errors"

	"github.com/ethlau/CCL/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeSpectrum(r model.SpectrumRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeSpectrum(data []byte) (model.SpectrumRecord, error) {
	var record model.SpectrumRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.SpectrumRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.SpectrumRecord{}, err
	}
	return record, nil
}

func EncodePayload(r model.PayloadRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodePayload(data []byte) (model.PayloadRecord, error) {
	var record model.PayloadRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.PayloadRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.PayloadRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// StampVersions sets the current schema and codec versions on a record.
func StampVersions(v *model.VersionedRecord) {
	v.SchemaVersion = CurrentSchemaVersion
	v.CodecVersion = CurrentCodecVersion
}
