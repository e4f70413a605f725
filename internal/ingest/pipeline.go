// Package ingest turns documents into stored, embedded chunks.
//
// A run moves through NotStarted, Fetching, Extracting, Chunking and
// Embedding to Complete, or to Failed from any earlier state. Every
// transition and every stored chunk is reported as an Event.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DreamCats/docrag/internal/chunker"
	"github.com/DreamCats/docrag/internal/embedstore"
	"github.com/DreamCats/docrag/internal/store"
)

// ErrNoContent is returned when a source yields no text to embed.
var ErrNoContent = errors.New("no text extracted from source")

// Store is the part of the embedding store the pipeline writes to.
type Store interface {
	IsSourceIngested(source string) bool
	Insert(ctx context.Context, text string, page int, source string) (embedstore.Record, error)
	DeleteSource(ctx context.Context, source string) error
}

// Journal records the outcome of every run.
type Journal interface {
	Record(ctx context.Context, run *store.IngestRun) error
	Last(ctx context.Context, source string) (*store.IngestRun, error)
}

// Options configures a Pipeline.
type Options struct {
	ChunkSize int
	Overlap   int
	// Force deletes and re-ingests sources that are already stored.
	Force bool
	// Fetcher defaults to a SourceFetcher with FetchTimeout.
	Fetcher      Fetcher
	FetchTimeout time.Duration
	// Journal is optional.
	Journal Journal
	Logger  *slog.Logger
}

// Pipeline ingests sources into a Store.
type Pipeline struct {
	store   Store
	fetcher Fetcher
	chunker chunker.Chunker
	force   bool
	journal Journal
	logger  *slog.Logger
}

// New creates a pipeline writing to st.
func New(st Store, opts Options) *Pipeline {
	if opts.Fetcher == nil {
		opts.Fetcher = NewFetcher(opts.FetchTimeout)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		store:   st,
		fetcher: opts.Fetcher,
		chunker: chunker.New(opts.ChunkSize, opts.Overlap),
		force:   opts.Force,
		journal: opts.Journal,
		logger:  opts.Logger,
	}
}

// Run ingests source in the background. The returned channel receives every
// event and is closed after the terminal one. Once ctx is cancelled, events
// the caller is not reading are dropped, so the run always finishes.
func (p *Pipeline) Run(ctx context.Context, source string) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		p.run(ctx, source, func(ev Event) {
			select {
			case events <- ev:
				return
			case <-ctx.Done():
			}
			if ev.State.Terminal() {
				// Keep the terminal event if there is still room for it.
				select {
				case events <- ev:
				default:
				}
			}
		})
	}()
	return events
}

// Ingest runs synchronously, passing each event to fn (which may be nil).
// It returns the error of a Failed run.
func (p *Pipeline) Ingest(ctx context.Context, source string, fn func(Event)) error {
	var err error
	p.run(ctx, source, func(ev Event) {
		if ev.State == StateFailed {
			err = ev.Err
		}
		if fn != nil {
			fn(ev)
		}
	})
	return err
}

type chunk struct {
	text string
	page int
}

func (p *Pipeline) run(ctx context.Context, source string, emit func(Event)) {
	run := &store.IngestRun{
		ID:        uuid.NewString(),
		Source:    source,
		State:     string(StateNotStarted),
		StartedAt: time.Now(),
	}
	logger := p.logger.With("source", source, "run", run.ID)

	send := func(state State, err error) {
		run.State = string(state)
		ev := Event{
			RunID:   run.ID,
			Source:  source,
			State:   state,
			Done:    run.ChunksDone,
			Total:   run.ChunksTotal,
			Skipped: run.Skipped,
			Err:     err,
			At:      time.Now(),
		}
		if state.Terminal() {
			p.finish(ctx, run, err, logger)
		}
		emit(ev)
	}
	fail := func(err error) {
		logger.Error("ingest failed", "state", run.State, "done", run.ChunksDone, "total", run.ChunksTotal, "error", err)
		send(StateFailed, err)
	}

	send(StateNotStarted, nil)

	if p.store.IsSourceIngested(source) {
		restart := p.force
		if !restart {
			restart = p.lastRunPartial(ctx, source, logger)
		}
		if !restart {
			logger.Info("source already ingested, skipping")
			run.Skipped = true
			send(StateComplete, nil)
			return
		}
		logger.Info("removing existing chunks before re-ingest")
		if err := p.store.DeleteSource(ctx, source); err != nil && !errors.Is(err, embedstore.ErrPersistence) {
			fail(fmt.Errorf("failed to delete existing chunks: %w", err))
			return
		}
	}

	send(StateFetching, nil)
	// An unfinished journal entry marks the run as partial if the process dies.
	p.record(ctx, run, logger)

	data, err := p.fetcher.Fetch(ctx, source)
	if err != nil {
		fail(err)
		return
	}

	send(StateExtracting, nil)
	pages, err := Extract(source, data)
	if err != nil {
		fail(fmt.Errorf("failed to extract %s: %w", source, err))
		return
	}

	send(StateChunking, nil)
	var chunks []chunk
	for _, page := range pages {
		for _, text := range p.chunker.Split(page.Text) {
			chunks = append(chunks, chunk{text: text, page: page.Number})
		}
	}
	if len(chunks) == 0 {
		fail(ErrNoContent)
		return
	}
	run.ChunksTotal = len(chunks)
	logger.Debug("chunked source", "pages", len(pages), "chunks", len(chunks))

	send(StateEmbedding, nil)
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}
		if _, err := p.store.Insert(ctx, c.text, c.page, source); err != nil {
			if !errors.Is(err, embedstore.ErrPersistence) {
				fail(err)
				return
			}
			logger.Warn("chunk stored in memory only", "error", err)
		}
		run.ChunksDone++
		send(StateEmbedding, nil)
	}

	logger.Info("ingest complete", "chunks", run.ChunksDone, "elapsed", time.Since(run.StartedAt).Round(time.Millisecond))
	send(StateComplete, nil)
}

// lastRunPartial reports whether the journal shows that the previous run
// for source stopped partway or never finished, in which case the stored
// chunks are incomplete.
func (p *Pipeline) lastRunPartial(ctx context.Context, source string, logger *slog.Logger) bool {
	if p.journal == nil {
		return false
	}
	last, err := p.journal.Last(ctx, source)
	if err != nil {
		logger.Warn("failed to read ingest journal", "error", err)
		return false
	}
	if last != nil && last.Partial() {
		logger.Info("previous run stopped partway, restarting from scratch", "previous", last.ID, "done", last.ChunksDone, "total", last.ChunksTotal)
		return true
	}
	return false
}

func (p *Pipeline) finish(ctx context.Context, run *store.IngestRun, err error, logger *slog.Logger) {
	now := time.Now()
	run.FinishedAt = &now
	if err != nil {
		run.Error = err.Error()
	}
	p.record(ctx, run, logger)
}

// record journals run, even when ctx was cancelled.
func (p *Pipeline) record(ctx context.Context, run *store.IngestRun, logger *slog.Logger) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to journal ingest run", "error", err)
	}
}
