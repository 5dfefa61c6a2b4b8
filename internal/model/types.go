package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// SpectrumRecord is one computed power spectrum table with the provenance
// needed to reproduce it.
type SpectrumRecord struct {
	VersionedRecord
	ID            string      `json:"id"`
	Backend       string      `json:"backend"`
	BaryonBackend string      `json:"baryon_backend,omitempty"`
	CreatedAtUTC  string      `json:"created_at_utc"`
	A             []float64   `json:"a"`
	LogK          []float64   `json:"logk"`
	Values        [][]float64 `json:"values"`
}

// PayloadRecord caches a deserialized emulator payload by backend name.
type PayloadRecord struct {
	VersionedRecord
	Backend    string `json:"backend"`
	SourcePath string `json:"source_path"`
	Data       []byte `json:"data"`
}
