package ingest

import "time"

// State is a step of the ingestion state machine.
type State string

const (
	StateNotStarted State = "NotStarted"
	StateFetching   State = "Fetching"
	StateExtracting State = "Extracting"
	StateChunking   State = "Chunking"
	StateEmbedding  State = "Embedding"
	StateComplete   State = "Complete"
	StateFailed     State = "Failed"
)

// Terminal reports whether no further events follow s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Event is one observable transition of a run. During StateEmbedding,
// Done counts the chunks stored so far out of Total.
type Event struct {
	RunID   string
	Source  string
	State   State
	Done    int
	Total   int
	Skipped bool
	Err     error
	At      time.Time
}
