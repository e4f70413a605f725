package store

import "time"

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	Key       string
	SizeBytes int64
	UpdatedAt time.Time
}

// IngestRun is one journaled ingestion attempt for a source.
type IngestRun struct {
	ID          string
	Source      string
	State       string // final pipeline state, e.g. "Complete" or "Failed"
	ChunksDone  int
	ChunksTotal int
	Skipped     bool // source was already ingested
	Error       string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// Partial reports whether the run stopped after storing some but not all
// chunks. A run without a finish time was interrupted and counts as partial.
func (r *IngestRun) Partial() bool {
	if r.FinishedAt == nil {
		return true
	}
	return r.State == "Failed" && r.ChunksDone > 0
}
