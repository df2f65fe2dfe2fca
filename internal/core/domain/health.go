package domain

import "encoding/json"

// IndexStatus summarises a HealthReport in one word.
type IndexStatus string

// Index statuses.
const (
	// StatusMissing means no index directory exists.
	StatusMissing IndexStatus = "missing"

	// StatusEmpty means a consistent index with no live vectors.
	StatusEmpty IndexStatus = "empty"

	// StatusActive means a consistent index with live vectors.
	StatusActive IndexStatus = "active"

	// StatusIncomplete means some of the index files are missing.
	StatusIncomplete IndexStatus = "incomplete"

	// StatusInconsistent means all files exist but disagree or cannot be read.
	StatusInconsistent IndexStatus = "inconsistent"

	// StatusMismatch means a consistent index built with a different embedder.
	StatusMismatch IndexStatus = "mismatch"
)

// SourceStat is the per-document chunk count shown by health checks.
type SourceStat struct {
	DocumentID string `json:"document_id"`
	URI        string `json:"uri"`
	Chunks     int    `json:"chunks"`
}

// HealthReport is the read-only view of the persisted index triad.
type HealthReport struct {
	// Path is the index directory.
	Path string `json:"path"`

	// Exists is true when the index directory exists.
	Exists bool `json:"exists"`

	IndexFileExists bool `json:"index_file_exists"`
	SidecarExists   bool `json:"sidecar_exists"`
	ManifestExists  bool `json:"manifest_exists"`

	// VectorCount is the number of vectors in the index file.
	VectorCount int `json:"vector_count"`

	// SidecarCount is the number of entries in the sidecar.
	SidecarCount int `json:"sidecar_count"`

	// RetractedCount is the number of sidecar entries excluded from search.
	RetractedCount int `json:"retracted_count"`

	// DocumentCount is the number of documents in the registry.
	DocumentCount int `json:"document_count"`

	// ManifestOK is true when the manifest is readable and matches the configured embedder.
	ManifestOK bool `json:"manifest_ok"`

	// Consistent is true when all three files exist, are readable, and agree.
	Consistent bool `json:"consistent"`

	Dimensions int         `json:"dimensions,omitempty"`
	Metric     Metric      `json:"metric,omitempty"`
	Model      string      `json:"model,omitempty"`
	BuildID    string      `json:"build_id,omitempty"`
	Chunking   ChunkParams `json:"chunking"`

	// Sources lists chunk counts per document.
	Sources []SourceStat `json:"sources"`

	// Problems describes every detected issue.
	Problems []string `json:"problems"`
}

// LiveCount returns the number of searchable vectors.
func (h HealthReport) LiveCount() int {
	return h.SidecarCount - h.RetractedCount
}

// Status summarises the report.
func (h HealthReport) Status() IndexStatus {
	switch {
	case !h.Exists:
		return StatusMissing
	case !h.IndexFileExists || !h.SidecarExists || !h.ManifestExists:
		return StatusIncomplete
	case !h.Consistent:
		return StatusInconsistent
	case !h.ManifestOK:
		return StatusMismatch
	case h.LiveCount() == 0:
		return StatusEmpty
	default:
		return StatusActive
	}
}

// MarshalJSON adds the derived status and live count to the report fields.
func (h HealthReport) MarshalJSON() ([]byte, error) {
	type fields HealthReport
	return json.Marshal(struct {
		fields
		Status    IndexStatus `json:"status"`
		LiveCount int         `json:"live_count"`
	}{fields(h), h.Status(), h.LiveCount()})
}
