// Package embedstore is a persistent, source-partitioned vector store.
//
// The ordered log of records is the source of truth. A cosine index and a
// lexical index are derived from it and can always be rebuilt by replaying
// the log. Every mutation writes a full snapshot of the log to the backend.
package embedstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/DreamCats/docrag/internal/provider"
	"github.com/DreamCats/docrag/internal/snapshot"
)

const (
	// DefaultKey is the snapshot key used when Options.Key is empty.
	DefaultKey = "orama_vector_embeddings"
	// DefaultLimit is the search limit used for non-positive limits.
	DefaultLimit = 5
)

// Options configures a Store.
type Options struct {
	// Dimension is the fixed vector length D. Required.
	Dimension int
	// Provider computes embeddings for inserts and queries. Required.
	Provider provider.Provider
	// Backend holds the durable snapshot. Nil keeps the store in memory only.
	Backend snapshot.Backend
	// Key names the snapshot inside Backend.
	Key string
	// MinScore discards vector hits below it when positive.
	MinScore float32
	Logger   *slog.Logger
}

// Store holds the embedding log and its derived indexes.
// Mutations are serialized internally; searches may run concurrently.
type Store struct {
	dim      int
	provider provider.Provider
	backend  snapshot.Backend
	key      string
	minScore float32
	logger   *slog.Logger

	// writeMu serializes the read-modify-persist sequence of mutations.
	writeMu sync.Mutex

	mu           sync.RWMutex
	log          []Record
	vectors      *vectorIndex
	lexical      *lexicalIndex
	lexicalStale bool
}

// New creates a store and replays the persisted snapshot, if any, before
// returning. A missing snapshot yields an empty store. A corrupt snapshot
// also yields an empty store and a warning; only a failing backend read is
// returned as an error.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("embedstore: dimension must be positive, got %d", opts.Dimension)
	}
	if opts.Provider == nil {
		return nil, errors.New("embedstore: provider is required")
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{
		dim:      opts.Dimension,
		provider: opts.Provider,
		backend:  opts.Backend,
		key:      opts.Key,
		minScore: opts.MinScore,
		logger:   opts.Logger,
	}

	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.rebuild(records); err != nil {
		return nil, err
	}
	if len(records) > 0 {
		s.logger.Info("restored embeddings from snapshot", "key", s.key, "records", len(records))
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) ([]Record, error) {
	if s.backend == nil {
		return nil, nil
	}
	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			s.logger.Debug("no snapshot found, starting empty", "key", s.key)
			return nil, nil
		}
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	records, err := decodeLog(data, s.dim)
	if err != nil {
		s.logger.Warn("ignoring unreadable snapshot, starting empty", "key", s.key, "error", err)
		return nil, nil
	}
	return records, nil
}

// rebuild replaces the log and both derived indexes.
func (s *Store) rebuild(records []Record) error {
	lexical, err := newLexicalIndex(records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.lexical
	s.log = records
	s.vectors = newVectorIndex(records)
	s.lexical = lexical
	s.lexicalStale = false
	s.mu.Unlock()

	if old != nil {
		old.close()
	}
	return nil
}

// Insert embeds text, appends the record and persists the log.
// A provider failure returns an *EmbeddingFailedError and stores nothing.
func (s *Store) Insert(ctx context.Context, text string, page int, source string) (Record, error) {
	rec := Record{Text: text, Page: page, Source: source}
	if err := rec.validateFields(); err != nil {
		return Record{}, err
	}

	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		return Record{}, &EmbeddingFailedError{Source: source, Err: err}
	}
	rec.Embedding = vec

	if err := s.InsertRecord(ctx, rec); err != nil {
		if errors.Is(err, ErrPersistence) {
			return rec, err
		}
		return Record{}, err
	}
	return rec, nil
}

// InsertRecord appends a record that already carries its embedding.
// A wrong vector length fails with ErrDimensionMismatch and leaves the log
// unchanged. A snapshot failure returns ErrPersistence but keeps the record.
func (s *Store) InsertRecord(ctx context.Context, rec Record) error {
	if err := rec.validate(s.dim); err != nil {
		return err
	}
	rec.Embedding = append([]float32(nil), rec.Embedding...)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	pos := len(s.log)
	s.log = append(s.log, rec)
	s.vectors.add(rec)
	if s.lexical == nil {
		s.lexicalStale = true
	} else if !s.lexicalStale {
		if err := s.lexical.add(pos, rec); err != nil {
			s.logger.Warn("lexical index update failed, will rebuild", "error", err)
			s.lexicalStale = true
		}
	}
	snap := s.log
	s.mu.Unlock()

	return s.persist(ctx, "insert", snap)
}

// DeleteSource removes every record of source, rebuilds the indexes from the
// remaining log and persists it. Unknown sources are a no-op.
func (s *Store) DeleteSource(ctx context.Context, source string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	kept := make([]Record, 0, len(s.log))
	for _, r := range s.log {
		if r.Source != source {
			kept = append(kept, r)
		}
	}
	removed := len(s.log) - len(kept)
	s.mu.RUnlock()

	if removed == 0 {
		return nil
	}
	if err := s.rebuild(kept); err != nil {
		return err
	}
	s.logger.Info("deleted source", "source", source, "records", removed)
	return s.persist(ctx, "delete", kept)
}

// persist writes the full log. Callers hold writeMu.
func (s *Store) persist(ctx context.Context, op string, records []Record) error {
	if s.backend == nil {
		return nil
	}
	data, err := encodeLog(records)
	if err == nil {
		err = s.backend.Put(ctx, s.key, data)
	}
	if err != nil {
		s.logger.Error("snapshot write failed, in-memory state kept", "op", op, "records", len(records), "error", err)
		return &PersistenceError{Op: op, Err: err}
	}
	s.logger.Debug("snapshot written", "op", op, "records", len(records), "bytes", len(data))
	return nil
}

// Search returns up to limit records most similar to query, restricted to
// source when it is non-empty. When the vector pass finds nothing, a lexical
// pass over the same filter is used instead. Failures yield an empty result.
func (s *Store) Search(ctx context.Context, query string, limit int, source string) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	vec, err := s.provider.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("search embedding failed", "error", err)
		return nil
	}

	if results := s.vectorSearch(vec, limit, source); len(results) > 0 {
		return results
	}
	return s.lexicalSearch(query, limit, source)
}

func (s *Store) vectorSearch(vec []float32, limit int, source string) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vec) != s.dim {
		s.logger.Warn("query vector has wrong dimension", "want", s.dim, "got", len(vec))
		return nil
	}
	hits := s.vectors.search(vec, limit, source, s.minScore)
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, s.log[h.pos].result(h.score, ModeVector))
	}
	return results
}

func (s *Store) lexicalSearch(query string, limit int, source string) []Result {
	if s.isLexicalStale() {
		s.writeMu.Lock()
		if s.isLexicalStale() {
			if err := s.rebuild(s.Records()); err != nil {
				s.logger.Warn("lexical index rebuild failed", "error", err)
			}
		}
		s.writeMu.Unlock()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lexical == nil {
		return nil
	}
	hits, err := s.lexical.search(query, limit, source)
	if err != nil {
		s.logger.Warn("lexical search failed", "error", err)
		return nil
	}
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if h.pos < 0 || h.pos >= len(s.log) {
			continue
		}
		results = append(results, s.log[h.pos].result(h.score, ModeLexical))
	}
	return results
}

func (s *Store) isLexicalStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lexicalStale
}

// IsSourceIngested reports whether at least one record has the given source.
func (s *Store) IsSourceIngested(source string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.log {
		if r.Source == source {
			return true
		}
	}
	return false
}

// ListSources returns the distinct sources in sorted order.
func (s *Store) ListSources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var sources []string
	for _, r := range s.log {
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		sources = append(sources, r.Source)
	}
	sort.Strings(sources)
	return sources
}

// Records returns a copy of the log in insertion order.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.log...)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

// Dimension returns the configured vector length.
func (s *Store) Dimension() int {
	return s.dim
}

// Stats returns record counts per source.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Records: len(s.log), Dimension: s.dim, Sources: make(map[string]int)}
	for _, r := range s.log {
		st.Sources[r.Source]++
	}
	return st
}

// Close releases the lexical index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lexical == nil {
		return nil
	}
	err := s.lexical.close()
	s.lexical = nil
	return err
}
