package mcpserver

import "github.com/DreamCats/docrag/internal/embedstore"

// IngestInput defines inputs for the docrag_ingest MCP tool.
type IngestInput struct {
	Sources []string `json:"sources" jsonschema:"file paths, glob patterns (docs/**/*.md) or http(s) URLs"`
	Exclude []string `json:"exclude,omitempty" jsonschema:"glob patterns of paths to skip"`
	Force   bool     `json:"force,omitempty" jsonschema:"re-ingest sources that are already stored"`
}

// IngestResult is the outcome for one source.
type IngestResult struct {
	Source  string `json:"source"`
	State   string `json:"state"`
	Chunks  int    `json:"chunks"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IngestOutput is the output for docrag_ingest.
type IngestOutput struct {
	Results []IngestResult `json:"results"`
	Failed  int            `json:"failed"`
}

// AskInput defines inputs for the docrag_ask MCP tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"question to answer from the stored documents"`
	Source   string `json:"source,omitempty" jsonschema:"restrict context to one source (optional)"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of context chunks to retrieve"`
}

// AskOutput is the output for docrag_ask.
type AskOutput struct {
	Answer  string              `json:"answer"`
	Context []embedstore.Result `json:"context"`
}

// SearchInput defines inputs for the docrag_search MCP tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"search query"`
	Source string `json:"source,omitempty" jsonschema:"restrict results to one source (optional)"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"number of results to return"`
}

// SearchOutput is the output for docrag_search.
type SearchOutput struct {
	Query   string              `json:"query"`
	Count   int                 `json:"count"`
	Results []embedstore.Result `json:"results"`
}

// SourcesInput defines inputs for the docrag_sources MCP tool.
type SourcesInput struct{}

// SourceInfo describes one stored source.
type SourceInfo struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// SourcesOutput is the output for docrag_sources.
type SourcesOutput struct {
	Sources   []SourceInfo `json:"sources"`
	Records   int          `json:"records"`
	Dimension int          `json:"dimension"`
}

// DeleteInput defines inputs for the docrag_delete_source MCP tool.
type DeleteInput struct {
	Source string `json:"source" jsonschema:"source to remove"`
}

// DeleteOutput is the output for docrag_delete_source.
type DeleteOutput struct {
	Source  string `json:"source"`
	Deleted bool   `json:"deleted"`
	Warning string `json:"warning,omitempty"`
}

// SummarizeInput defines inputs for the docrag_summarize MCP tool.
type SummarizeInput struct {
	Text string `json:"text" jsonschema:"text of one page"`
	Page int    `json:"page,omitempty" jsonschema:"page number (optional)"`
}

// SummarizeOutput is the output for docrag_summarize.
type SummarizeOutput struct {
	Summary string `json:"summary"`
}
