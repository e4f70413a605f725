package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DreamCats/docrag/internal/config"
	"github.com/DreamCats/docrag/internal/embedstore"
	"github.com/DreamCats/docrag/internal/ingest"
	"github.com/DreamCats/docrag/internal/query"
)

// Backend is the application the tools operate on.
type Backend interface {
	Config() *config.Config
	Store() *embedstore.Store
	Query() *query.Service
	Pipeline(force bool) *ingest.Pipeline
}

// Server exposes docrag ingestion and question answering via MCP stdio.
type Server struct {
	backend Backend
	version string
	logger  *slog.Logger
}

// New creates a new MCP server wrapper.
func New(backend Backend, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		backend: backend,
		version: version,
		logger:  logger,
	}
}

// Run starts the MCP stdio server.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer().Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) mcpServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "docrag",
		Title:   "docrag",
		Version: s.version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "docrag_ingest",
		Description: `Ingest documents so they can be searched and asked about.

Sources may be file paths, glob patterns (docs/**/*.md) or http(s) URLs.
Text is split into pages at form feeds (pdftotext output), chunked and embedded.
Sources that are already stored are skipped unless force is true.`,
	}, s.ingestTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "docrag_ask",
		Description: `Answer a question from the stored documents.

Retrieves the most relevant chunks (optionally from a single source) and asks
the language model to answer only from them. Returns the answer and the
chunks used, each tagged with its page.`,
	}, s.askTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "docrag_search",
		Description: "Find the stored chunks most similar to a query, without generating an answer.",
	}, s.searchTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "docrag_sources",
		Description: "List ingested sources with their chunk counts.",
	}, s.sourcesTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "docrag_delete_source",
		Description: "Remove every stored chunk of a source.",
	}, s.deleteTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "docrag_summarize",
		Description: "Summarize the text of one page as 3-4 bullet points.",
	}, s.summarizeTool)

	return server
}

func (s *Server) ingestTool(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, IngestOutput, error) {
	if len(input.Sources) == 0 {
		return nil, IngestOutput{}, fmt.Errorf("sources is required")
	}

	excludes := append(append([]string(nil), s.backend.Config().Ingest.Exclude...), input.Exclude...)
	sources, err := ingest.Expand(input.Sources, excludes)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	if len(sources) == 0 {
		return nil, IngestOutput{}, fmt.Errorf("no sources matched %s", strings.Join(input.Sources, ", "))
	}

	pipeline := s.backend.Pipeline(input.Force)
	output := IngestOutput{Results: make([]IngestResult, 0, len(sources))}
	for _, source := range sources {
		var last ingest.Event
		err := pipeline.Ingest(ctx, source, func(ev ingest.Event) { last = ev })
		result := IngestResult{
			Source:  source,
			State:   string(last.State),
			Chunks:  last.Done,
			Skipped: last.Skipped,
		}
		if err != nil {
			result.Error = err.Error()
			output.Failed++
		}
		output.Results = append(output.Results, result)
	}
	s.logger.Info("mcp ingest finished", "sources", len(sources), "failed", output.Failed)
	return nil, output, nil
}

func (s *Server) askTool(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, fmt.Errorf("question is required")
	}
	answer := s.backend.Query().AskK(ctx, input.Question, input.Source, input.TopK)
	return nil, AskOutput{Answer: answer.Text, Context: nonNil(answer.Context)}, nil
}

func (s *Server) searchTool(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}
	topK := input.TopK
	if topK <= 0 {
		topK = s.backend.Query().TopK()
	}
	results := nonNil(s.backend.Store().Search(ctx, input.Query, topK, input.Source))
	return nil, SearchOutput{Query: input.Query, Count: len(results), Results: results}, nil
}

func (s *Server) sourcesTool(_ context.Context, _ *mcp.CallToolRequest, _ SourcesInput) (*mcp.CallToolResult, SourcesOutput, error) {
	st := s.backend.Store()
	stats := st.Stats()
	output := SourcesOutput{
		Sources:   []SourceInfo{},
		Records:   stats.Records,
		Dimension: stats.Dimension,
	}
	for _, source := range st.ListSources() {
		output.Sources = append(output.Sources, SourceInfo{Source: source, Chunks: stats.Sources[source]})
	}
	return nil, output, nil
}

func (s *Server) deleteTool(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.Source == "" {
		return nil, DeleteOutput{}, fmt.Errorf("source is required")
	}
	st := s.backend.Store()
	output := DeleteOutput{Source: input.Source, Deleted: st.IsSourceIngested(input.Source)}
	if err := st.DeleteSource(ctx, input.Source); err != nil {
		if !errors.Is(err, embedstore.ErrPersistence) {
			return nil, DeleteOutput{}, err
		}
		output.Warning = err.Error()
	}
	return nil, output, nil
}

func (s *Server) summarizeTool(ctx context.Context, _ *mcp.CallToolRequest, input SummarizeInput) (*mcp.CallToolResult, SummarizeOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, SummarizeOutput{}, fmt.Errorf("text is required")
	}
	return nil, SummarizeOutput{Summary: s.backend.Query().Summarize(ctx, input.Text, input.Page)}, nil
}

func nonNil(results []embedstore.Result) []embedstore.Result {
	if results == nil {
		return []embedstore.Result{}
	}
	return results
}
