package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DreamCats/docrag/internal/config"
	"github.com/DreamCats/docrag/internal/embedstore"
	"github.com/DreamCats/docrag/internal/ingest"
	"github.com/DreamCats/docrag/internal/provider"
	"github.com/DreamCats/docrag/internal/query"
)

type testBackend struct {
	cfg   *config.Config
	store *embedstore.Store
	query *query.Service
}

func (b *testBackend) Config() *config.Config   { return b.cfg }
func (b *testBackend) Store() *embedstore.Store { return b.store }
func (b *testBackend) Query() *query.Service    { return b.query }
func (b *testBackend) Pipeline(force bool) *ingest.Pipeline {
	return ingest.New(b.store, ingest.Options{ChunkSize: 200, Overlap: 20, Force: force})
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	stub := provider.NewStub(8)
	st, err := embedstore.New(context.Background(), embedstore.Options{Dimension: 8, Provider: stub})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := &testBackend{
		cfg:   &config.Config{Ingest: config.IngestConfig{Exclude: []string{"*.skip"}}},
		store: st,
		query: query.NewService(st, stub, query.Options{TopK: 3, Logger: logger}),
	}
	return New(backend, "test", logger)
}

func writeDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a.md":    "# A\n\nApples grow on trees.",
		"b.md":    "# B\n\nBananas are yellow.",
		"c.skip":  "ignored",
		"d.empty": "",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestIngestAndQueryTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	dir := writeDocs(t)

	_, out, err := s.ingestTool(ctx, nil, IngestInput{Sources: []string{filepath.Join(dir, "*")}})
	if err != nil {
		t.Fatalf("ingestTool() error = %v", err)
	}
	if len(out.Results) != 3 || out.Failed != 1 {
		t.Fatalf("ingest output = %+v, want 3 results with 1 failure", out)
	}

	_, again, err := s.ingestTool(ctx, nil, IngestInput{Sources: []string{filepath.Join(dir, "a.md")}})
	if err != nil || !again.Results[0].Skipped {
		t.Fatalf("second ingest = %+v, %v", again, err)
	}

	_, sources, err := s.sourcesTool(ctx, nil, SourcesInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sources.Sources) != 2 || sources.Records != 2 || sources.Dimension != 8 {
		t.Fatalf("sources = %+v", sources)
	}
	if !sort.SliceIsSorted(sources.Sources, func(i, j int) bool { return sources.Sources[i].Source < sources.Sources[j].Source }) {
		t.Errorf("sources not sorted: %+v", sources.Sources)
	}

	a := filepath.Join(dir, "a.md")
	_, search, err := s.searchTool(ctx, nil, SearchInput{Query: "# A\n\nApples grow on trees.", Source: a})
	if err != nil || search.Count != 1 || search.Results[0].Source != a {
		t.Fatalf("search = %+v, %v", search, err)
	}

	_, ask, err := s.askTool(ctx, nil, AskInput{Question: "What grows on trees?", Source: a})
	if err != nil || ask.Answer != "stub completion" || len(ask.Context) != 1 {
		t.Fatalf("ask = %+v, %v", ask, err)
	}

	_, del, err := s.deleteTool(ctx, nil, DeleteInput{Source: a})
	if err != nil || !del.Deleted {
		t.Fatalf("delete = %+v, %v", del, err)
	}
	_, del, err = s.deleteTool(ctx, nil, DeleteInput{Source: a})
	if err != nil || del.Deleted {
		t.Fatalf("second delete = %+v, %v", del, err)
	}

	_, search, _ = s.searchTool(ctx, nil, SearchInput{Query: "apples", Source: a})
	if search.Count != 0 || search.Results == nil {
		t.Fatalf("search after delete = %+v", search)
	}
}

func TestToolInputValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if _, _, err := s.ingestTool(ctx, nil, IngestInput{}); err == nil {
		t.Error("ingestTool() without sources should fail")
	}
	if _, _, err := s.askTool(ctx, nil, AskInput{Question: "  "}); err == nil {
		t.Error("askTool() without question should fail")
	}
	if _, _, err := s.searchTool(ctx, nil, SearchInput{}); err == nil {
		t.Error("searchTool() without query should fail")
	}
	if _, _, err := s.deleteTool(ctx, nil, DeleteInput{}); err == nil {
		t.Error("deleteTool() without source should fail")
	}
	if _, _, err := s.summarizeTool(ctx, nil, SummarizeInput{}); err == nil {
		t.Error("summarizeTool() without text should fail")
	}
}

func TestListTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.mcpServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server Connect() error = %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect() error = %v", err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"docrag_ask", "docrag_delete_source", "docrag_ingest", "docrag_search", "docrag_sources", "docrag_summarize"}
	if len(names) != len(want) {
		t.Fatalf("tools = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("tools = %v, want %v", names, want)
		}
	}
}
