package domain

// BuildOptions configures a full build.
type BuildOptions struct {
	// NoWait fails with ErrIndexBusy instead of waiting for another mutation.
	NoWait bool
}

// BuildReport summarises a completed build.
type BuildReport struct {
	BuildID   string `json:"build_id"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

// IngestOptions configures an incremental ingest.
type IngestOptions struct {
	// Prune retracts registry documents absent from the ingested set.
	Prune bool

	// Compact drops retracted vectors by rebuilding from stored vectors.
	Compact bool

	// NoWait fails with ErrIndexBusy instead of waiting for another mutation.
	NoWait bool
}

// IngestReport summarises a completed incremental ingest.
type IngestReport struct {
	Added           int  `json:"added"`
	Updated         int  `json:"updated"`
	Unchanged       int  `json:"unchanged"`
	Removed         int  `json:"removed"`
	ChunksAdded     int  `json:"chunks_added"`
	ChunksRetracted int  `json:"chunks_retracted"`
	Compacted       bool `json:"compacted"`
}

// Changed reports whether the ingest modified the index.
func (r IngestReport) Changed() bool {
	return r.ChunksAdded > 0 || r.ChunksRetracted > 0 || r.Compacted ||
		r.Added > 0 || r.Updated > 0 || r.Removed > 0
}
