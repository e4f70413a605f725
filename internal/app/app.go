// Package app wires configuration into a provider, an embedding store, an
// ingestion pipeline and a query service.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DreamCats/docrag/internal/config"
	"github.com/DreamCats/docrag/internal/embedstore"
	"github.com/DreamCats/docrag/internal/ingest"
	"github.com/DreamCats/docrag/internal/provider"
	"github.com/DreamCats/docrag/internal/query"
	"github.com/DreamCats/docrag/internal/snapshot"
	"github.com/DreamCats/docrag/internal/store"
)

// App holds the long-lived components of one process.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider provider.Provider
	store    *embedstore.Store
	query    *query.Service

	// db and runs are set for the sqlite backend only.
	db        *store.DB
	runs      *store.RunStore
	snapshots *store.SnapshotStore

	closers []func() error
}

// Open builds the application from cfg. The embedding store is registered
// as the process-wide store, so Open may succeed only once per process.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger}

	p, err := provider.New(&cfg.Provider, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	a.provider = p

	backend, err := a.openBackend()
	if err != nil {
		a.Close()
		return nil, err
	}

	st, err := embedstore.Init(ctx, embedstore.Options{
		Dimension: cfg.Provider.Dimensions,
		Provider:  p,
		Backend:   backend,
		Key:       cfg.Store.Key,
		MinScore:  cfg.Store.MinScore,
		Logger:    logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open embedding store: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	a.query = query.NewService(st, p, query.Options{TopK: cfg.Search.TopK, Logger: logger})

	logger.Debug("application ready",
		"provider", cfg.Provider.Name,
		"backend", cfg.Store.Backend,
		"dimension", st.Dimension(),
		"records", st.Len())
	return a, nil
}

// openBackend opens the snapshot backend named by the store config.
func (a *App) openBackend() (snapshot.Backend, error) {
	sc := a.cfg.Store
	switch sc.Backend {
	case "sqlite":
		db, err := store.Open(sc.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.db = db
		a.runs = store.NewRunStore(db)
		a.snapshots = store.NewSnapshotStore(db)
		a.closers = append(a.closers, db.Close)
		return a.snapshots, nil
	case "badger":
		b, err := snapshot.NewBadger(snapshot.BadgerOptions{Dir: sc.Path, Logger: a.logger})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b.Close)
		return b, nil
	case "file":
		local, err := snapshot.NewLocal(sc.Path)
		if err != nil {
			return nil, err
		}
		return snapshot.NewFiles(local), nil
	case "s3":
		s3store, err := snapshot.NewS3FromOptions(snapshot.S3Options{
			Bucket:          sc.S3.Bucket,
			Prefix:          sc.S3.Prefix,
			Region:          sc.S3.Region,
			Endpoint:        sc.S3.Endpoint,
			AccessKeyID:     sc.S3.AccessKeyID,
			SecretAccessKey: sc.S3.SecretAccessKey,
			UsePathStyle:    sc.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return snapshot.NewFiles(s3store), nil
	case "memory":
		return snapshot.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", sc.Backend)
	}
}

// Config returns the configuration the app was opened with.
func (a *App) Config() *config.Config { return a.cfg }

// Store returns the embedding store.
func (a *App) Store() *embedstore.Store { return a.store }

// Query returns the query service.
func (a *App) Query() *query.Service { return a.query }

// Provider returns the embedding and completion provider.
func (a *App) Provider() provider.Provider { return a.provider }

// Runs returns the ingest journal, or nil when the backend keeps none.
func (a *App) Runs() *store.RunStore { return a.runs }

// DB returns the sqlite database, or nil for other backends.
func (a *App) DB() *store.DB { return a.db }

// SnapshotInfo describes the persisted snapshot. It returns nil when the
// backend is not sqlite or nothing has been written yet.
func (a *App) SnapshotInfo(ctx context.Context) (*store.SnapshotInfo, error) {
	if a.snapshots == nil {
		return nil, nil
	}
	return a.snapshots.Info(ctx, a.cfg.Store.Key)
}

// Pipeline returns an ingestion pipeline. With force set, sources that are
// already stored are deleted and ingested again.
func (a *App) Pipeline(force bool) *ingest.Pipeline {
	opts := ingest.Options{
		ChunkSize:    a.cfg.Chunker.Size,
		Overlap:      a.cfg.Chunker.Overlap,
		Force:        force,
		FetchTimeout: a.cfg.Ingest.FetchTimeout,
		Logger:       a.logger,
	}
	if a.runs != nil {
		opts.Journal = a.runs
	}
	return ingest.New(a.store, opts)
}

// Close releases everything Open acquired, in reverse order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
