package embedstore

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/DreamCats/docrag/internal/provider"
	"github.com/DreamCats/docrag/internal/snapshot"
	"github.com/DreamCats/docrag/internal/store"
)

const testDim = 16

func newTestStore(t *testing.T, stub *provider.Stub, backend snapshot.Backend) *Store {
	t.Helper()
	s, err := New(context.Background(), Options{
		Dimension: testDim,
		Provider:  stub,
		Backend:   backend,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustInsert(t *testing.T, s *Store, text string, page int, source string) {
	t.Helper()
	if _, err := s.Insert(context.Background(), text, page, source); err != nil {
		t.Fatalf("Insert(%q) error = %v", text, err)
	}
}

func TestInsertAndSearch(t *testing.T) {
	s := newTestStore(t, provider.NewStub(testDim), snapshot.NewMemory())
	mustInsert(t, s, "the quick brown fox", 1, "a.txt")
	mustInsert(t, s, "jumps over the lazy dog", 1, "a.txt")
	mustInsert(t, s, "an unrelated sentence", 2, "a.txt")

	results := s.Search(context.Background(), "jumps over the lazy dog", 2, "")
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	top := results[0]
	if top.Text != "jumps over the lazy dog" || top.Mode != ModeVector {
		t.Errorf("top result = %+v", top)
	}
	if math.Abs(float64(top.Score)-1) > 1e-5 {
		t.Errorf("top score = %v, want 1", top.Score)
	}
	if results[1].Score > top.Score {
		t.Errorf("results not in descending order: %+v", results)
	}
}

func TestSearchTieBreaksByInsertionOrder(t *testing.T) {
	stub := provider.NewStub(testDim)
	vec := make([]float32, testDim)
	vec[0] = 1
	stub.SetVector("second", vec)
	stub.SetVector("first", vec)
	stub.SetVector("query", vec)

	s := newTestStore(t, stub, nil)
	mustInsert(t, s, "first", 0, "doc")
	mustInsert(t, s, "second", 0, "doc")

	results := s.Search(context.Background(), "query", 5, "")
	if len(results) != 2 || results[0].Text != "first" || results[1].Text != "second" {
		t.Fatalf("Search() = %+v, want first before second", results)
	}
}

func TestRoundTrip(t *testing.T) {
	stub := provider.NewStub(testDim)
	backend := snapshot.NewMemory()
	s := newTestStore(t, stub, backend)
	for i, text := range []string{"alpha", "beta", "gamma", "delta"} {
		mustInsert(t, s, text, i, "doc.pdf")
	}

	reloaded := newTestStore(t, stub, backend)
	if !reflect.DeepEqual(s.Records(), reloaded.Records()) {
		t.Fatalf("reloaded log differs:\n got  %+v\n want %+v", reloaded.Records(), s.Records())
	}
}

func TestDefaultSnapshotKey(t *testing.T) {
	backend := snapshot.NewMemory()
	s := newTestStore(t, provider.NewStub(testDim), backend)
	mustInsert(t, s, "alpha", 1, "doc.pdf")

	if _, err := backend.Get(context.Background(), "orama_vector_embeddings"); err != nil {
		t.Fatalf("snapshot not written under the default key: %v", err)
	}
}

func TestRoundTripBackends(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "docrag.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	badgerBackend, err := snapshot.NewBadger(snapshot.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger() error = %v", err)
	}
	t.Cleanup(func() { badgerBackend.Close() })

	local, err := snapshot.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	backends := map[string]snapshot.Backend{
		"sqlite": store.NewSnapshotStore(db),
		"badger": badgerBackend,
		"files":  snapshot.NewFiles(local),
	}
	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			stub := provider.NewStub(testDim)
			s := newTestStore(t, stub, backend)
			mustInsert(t, s, "one", 1, "a")
			mustInsert(t, s, "two", 2, "b")
			if err := s.DeleteSource(context.Background(), "a"); err != nil {
				t.Fatalf("DeleteSource() error = %v", err)
			}

			reloaded := newTestStore(t, stub, backend)
			if !reflect.DeepEqual(s.Records(), reloaded.Records()) {
				t.Fatalf("reloaded log differs: %+v vs %+v", reloaded.Records(), s.Records())
			}
			if got := reloaded.ListSources(); !reflect.DeepEqual(got, []string{"b"}) {
				t.Fatalf("ListSources() = %v, want [b]", got)
			}
		})
	}
}

func TestDimensionMismatch(t *testing.T) {
	stub := provider.NewStub(testDim)
	stub.SetVector("short", []float32{1, 2, 3})
	backend := snapshot.NewMemory()
	s := newTestStore(t, stub, backend)

	err := s.InsertRecord(context.Background(), Record{Text: "x", Source: "doc", Embedding: []float32{1, 2}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("InsertRecord() error = %v, want ErrDimensionMismatch", err)
	}
	if _, err := s.Insert(context.Background(), "short", 0, "doc"); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Insert() error = %v, want ErrDimensionMismatch", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d after rejected inserts", s.Len())
	}
	if _, err := backend.Get(context.Background(), DefaultKey); !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("rejected insert wrote a snapshot: %v", err)
	}
}

func TestInsertEmbeddingFailed(t *testing.T) {
	stub := provider.NewStub(testDim)
	cause := errors.Join(provider.ErrProviderUnavailable, errors.New("connection refused"))
	stub.FailOn("bad chunk", cause)
	s := newTestStore(t, stub, snapshot.NewMemory())

	_, err := s.Insert(context.Background(), "bad chunk", 0, "doc")
	if !errors.Is(err, ErrEmbeddingFailed) {
		t.Fatalf("Insert() error = %v, want ErrEmbeddingFailed", err)
	}
	if !errors.Is(err, provider.ErrProviderUnavailable) {
		t.Fatalf("Insert() error = %v does not wrap the provider error", err)
	}
	if s.Len() != 0 || s.IsSourceIngested("doc") {
		t.Fatal("failed insert left a record behind")
	}
}

func TestInsertInvalidRecord(t *testing.T) {
	stub := provider.NewStub(testDim)
	s := newTestStore(t, stub, nil)

	tests := []struct {
		name   string
		text   string
		page   int
		source string
	}{
		{"empty text", "", 0, "doc"},
		{"empty source", "text", 0, ""},
		{"negative page", "text", -1, "doc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Insert(context.Background(), tt.text, tt.page, tt.source); !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("Insert() error = %v, want ErrInvalidRecord", err)
			}
		})
	}
	if stub.EmbedCalls() != 0 {
		t.Errorf("provider called %d times for invalid records", stub.EmbedCalls())
	}
}

func TestSourceIsolation(t *testing.T) {
	s := newTestStore(t, provider.NewStub(testDim), nil)
	mustInsert(t, s, "apples are red", 1, "A")
	mustInsert(t, s, "apples are green", 2, "A")
	mustInsert(t, s, "apples are red", 1, "B")
	mustInsert(t, s, "bananas are yellow", 1, "B")

	for _, q := range []string{"apples are red", "bananas are yellow", "anything"} {
		results := s.Search(context.Background(), q, 10, "A")
		if len(results) == 0 {
			t.Fatalf("Search(%q, A) returned nothing", q)
		}
		for _, r := range results {
			if r.Source != "A" {
				t.Fatalf("Search(%q, A) returned record from %q", q, r.Source)
			}
		}
	}
}

func TestLexicalFallback(t *testing.T) {
	stub := provider.NewStub(testDim)
	stub.SetVector("fox", make([]float32, testDim))
	s := newTestStore(t, stub, nil)

	if got := s.Search(context.Background(), "fox", 5, ""); len(got) != 0 {
		t.Fatalf("Search() on empty store = %+v, want empty", got)
	}

	mustInsert(t, s, "the quick brown fox", 1, "A")
	mustInsert(t, s, "a lazy dog sleeps", 1, "A")
	mustInsert(t, s, "another fox appears", 3, "B")

	results := s.Search(context.Background(), "fox", 5, "A")
	if len(results) != 1 {
		t.Fatalf("Search() = %+v, want one lexical hit", results)
	}
	if results[0].Mode != ModeLexical || results[0].Text != "the quick brown fox" {
		t.Errorf("result = %+v", results[0])
	}

	all := s.Search(context.Background(), "fox", 1, "")
	if len(all) != 1 {
		t.Fatalf("lexical fallback ignored limit: %+v", all)
	}

	if got := s.Search(context.Background(), "fox", 5, "missing"); len(got) != 0 {
		t.Fatalf("Search() with unknown filter = %+v, want empty", got)
	}
}

func TestLexicalFallbackAfterDelete(t *testing.T) {
	stub := provider.NewStub(testDim)
	stub.SetVector("banana", make([]float32, testDim))
	s := newTestStore(t, stub, nil)

	mustInsert(t, s, "apple pie", 1, "A")
	mustInsert(t, s, "banana bread", 2, "B")
	mustInsert(t, s, "apple tart", 3, "A")

	if err := s.DeleteSource(context.Background(), "A"); err != nil {
		t.Fatalf("DeleteSource() error = %v", err)
	}
	results := s.Search(context.Background(), "banana", 5, "")
	if len(results) != 1 || results[0].Text != "banana bread" || results[0].Page != 2 {
		t.Fatalf("Search() after delete = %+v", results)
	}
}

func TestDeleteSource(t *testing.T) {
	backend := snapshot.NewMemory()
	s := newTestStore(t, provider.NewStub(testDim), backend)
	mustInsert(t, s, "a1", 0, "A")
	mustInsert(t, s, "b1", 0, "B")
	mustInsert(t, s, "a2", 0, "A")
	mustInsert(t, s, "b2", 0, "B")

	if err := s.DeleteSource(context.Background(), "A"); err != nil {
		t.Fatalf("DeleteSource() error = %v", err)
	}
	if got := s.ListSources(); !reflect.DeepEqual(got, []string{"B"}) {
		t.Fatalf("ListSources() = %v, want [B]", got)
	}
	if got := s.Search(context.Background(), "a1", 5, "A"); len(got) != 0 {
		t.Fatalf("Search() for deleted source = %+v", got)
	}
	var texts []string
	for _, r := range s.Records() {
		texts = append(texts, r.Text)
	}
	if !reflect.DeepEqual(texts, []string{"b1", "b2"}) {
		t.Fatalf("remaining order = %v", texts)
	}

	backend.PutErr = errors.New("must not write")
	if err := s.DeleteSource(context.Background(), "unknown"); err != nil {
		t.Fatalf("DeleteSource(unknown) error = %v", err)
	}
}

func TestIsSourceIngested(t *testing.T) {
	s := newTestStore(t, provider.NewStub(testDim), nil)
	if s.IsSourceIngested("A") {
		t.Fatal("IsSourceIngested before insert = true")
	}
	mustInsert(t, s, "chunk", 0, "A")
	if !s.IsSourceIngested("A") {
		t.Fatal("IsSourceIngested after insert = false")
	}
	if s.IsSourceIngested("B") {
		t.Fatal("IsSourceIngested(B) = true")
	}
}

func TestExampleScenario(t *testing.T) {
	s := newTestStore(t, provider.NewStub(testDim), snapshot.NewMemory())
	mustInsert(t, s, "Chapter one introduces the topic.", 1, "doc1.pdf")
	mustInsert(t, s, "It continues on the same page.", 1, "doc1.pdf")
	mustInsert(t, s, "Page two has the details.", 2, "doc1.pdf")

	results := s.Search(context.Background(), "irrelevant query", 5, "doc1.pdf")
	if len(results) > 3 {
		t.Fatalf("Search() returned %d hits, want at most 3", len(results))
	}
	for _, r := range results {
		if r.Source != "doc1.pdf" {
			t.Fatalf("unexpected source %q", r.Source)
		}
	}

	if err := s.DeleteSource(context.Background(), "doc1.pdf"); err != nil {
		t.Fatalf("DeleteSource() error = %v", err)
	}
	if got := s.ListSources(); len(got) != 0 {
		t.Fatalf("ListSources() = %v, want empty", got)
	}
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{"garbage", func(t *testing.T) []byte { return []byte("\xc1not msgpack") }},
		{"wrong dimension", func(t *testing.T) []byte {
			data, err := encodeLog([]Record{{Text: "x", Source: "s", Embedding: []float32{1, 2}}})
			if err != nil {
				t.Fatal(err)
			}
			return data
		}},
		{"empty source", func(t *testing.T) []byte {
			data, err := encodeLog([]Record{{Text: "x", Embedding: make([]float32, testDim)}})
			if err != nil {
				t.Fatal(err)
			}
			return data
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := snapshot.NewMemory()
			if err := backend.Put(context.Background(), DefaultKey, tt.data(t)); err != nil {
				t.Fatal(err)
			}
			s := newTestStore(t, provider.NewStub(testDim), backend)
			if s.Len() != 0 {
				t.Fatalf("Len() = %d, want 0", s.Len())
			}
			mustInsert(t, s, "fresh", 0, "doc")
		})
	}
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (failingBackend) Put(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func TestBackendReadError(t *testing.T) {
	_, err := New(context.Background(), Options{Dimension: testDim, Provider: provider.NewStub(testDim), Backend: failingBackend{}})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("New() error = %v, want ErrPersistence", err)
	}
}

func TestPersistenceFailureKeepsMutation(t *testing.T) {
	backend := snapshot.NewMemory()
	s := newTestStore(t, provider.NewStub(testDim), backend)
	backend.PutErr = errors.New("quota exceeded")

	rec, err := s.Insert(context.Background(), "kept", 4, "doc")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Insert() error = %v, want ErrPersistence", err)
	}
	if rec.Text != "kept" || len(rec.Embedding) != testDim {
		t.Errorf("Insert() record = %+v", rec)
	}
	if s.Len() != 1 || !s.IsSourceIngested("doc") {
		t.Fatal("in-memory insert rolled back on persistence failure")
	}
}

func TestSearchProviderFailure(t *testing.T) {
	stub := provider.NewStub(testDim)
	s := newTestStore(t, stub, nil)
	mustInsert(t, s, "some text", 0, "doc")

	stub.FailAll(provider.ErrProviderUnavailable)
	if got := s.Search(context.Background(), "some text", 5, ""); len(got) != 0 {
		t.Fatalf("Search() with failing provider = %+v, want empty", got)
	}
}

func TestMinScore(t *testing.T) {
	stub := provider.NewStub(testDim)
	s, err := New(context.Background(), Options{Dimension: testDim, Provider: stub, MinScore: 0.99})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	mustInsert(t, s, "exact words", 0, "doc")
	mustInsert(t, s, "other words", 0, "doc")

	results := s.Search(context.Background(), "exact words", 5, "")
	if len(results) != 1 || results[0].Text != "exact words" || results[0].Mode != ModeVector {
		t.Fatalf("Search() = %+v, want only the exact match", results)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t, provider.NewStub(testDim), nil)
	mustInsert(t, s, "a", 0, "A")
	mustInsert(t, s, "b", 0, "A")
	mustInsert(t, s, "c", 0, "B")

	st := s.Stats()
	if st.Records != 3 || st.Dimension != testDim || st.Sources["A"] != 2 || st.Sources["B"] != 1 {
		t.Fatalf("Stats() = %+v", st)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(context.Background(), Options{Provider: provider.NewStub(4)}); err == nil {
		t.Error("New() without dimension should fail")
	}
	if _, err := New(context.Background(), Options{Dimension: 4}); err == nil {
		t.Error("New() without provider should fail")
	}
}

func TestInitOnce(t *testing.T) {
	resetDefault()
	t.Cleanup(resetDefault)

	opts := Options{Dimension: testDim, Provider: provider.NewStub(testDim)}
	if Default() != nil {
		t.Fatal("Default() before Init should be nil")
	}
	first, err := Init(context.Background(), opts)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := Init(context.Background(), opts); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Init() error = %v, want ErrAlreadyInitialized", err)
	}
	if Default() != first {
		t.Fatal("Default() does not return the initialized store")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{"identical vectors", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"opposite vectors", []float32{1, 1, 1}, []float32{-1, -1, -1}, -1.0},
		{"mismatched length", []float32{1, 2}, []float32{1, 2, 3}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Similarity(tt.a, tt.b)
			if diff := math.Abs(float64(result - tt.expected)); diff > 0.001 {
				t.Errorf("Similarity() = %v, want %v", result, tt.expected)
			}
		})
	}
}
