// Package app wires all verification-engine subsystems into a running
// application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, BootstrapIndex pulls the corpus into the in-memory index, Run
// serves HTTP until the context is cancelled, and Shutdown tears everything
// down in order.
//
// For testing, inject doubles via functional options (WithCorpus,
// WithVectorSearcher, WithEmbedder). Without WithCorpus, New connects to
// PostgreSQL from the config and also uses that store for vector search
// unless WithVectorSearcher was given. New never builds an embedder itself;
// without WithEmbedder the semantic stage is disabled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verifyxo/engine/internal/config"
	"github.com/verifyxo/engine/internal/health"
	"github.com/verifyxo/engine/internal/observe"
	"github.com/verifyxo/engine/internal/verify"
	"github.com/verifyxo/engine/pkg/provider/embeddings"
	"github.com/verifyxo/engine/pkg/store"
	"github.com/verifyxo/engine/pkg/store/postgres"
	"github.com/verifyxo/engine/pkg/title"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	corpus   store.Corpus
	vectors  store.VectorSearcher
	embedder embeddings.Provider

	index   *title.Index
	engine  *verify.Engine
	metrics *observe.Metrics
	server  *http.Server

	// submitMu serializes submissions so the contains-check, store write,
	// and index insert of one application are not interleaved with another's.
	submitMu sync.Mutex

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCorpus injects a corpus store instead of connecting to PostgreSQL.
func WithCorpus(c store.Corpus) Option {
	return func(a *App) { a.corpus = c }
}

// WithVectorSearcher injects a vector searcher instead of the PostgreSQL one.
func WithVectorSearcher(v store.VectorSearcher) Option {
	return func(a *App) { a.vectors = v }
}

// WithEmbedder injects an embeddings provider instead of creating one from
// config.
func WithEmbedder(e embeddings.Provider) Option {
	return func(a *App) { a.embedder = e }
}

// WithMetrics injects a metrics instance (tests use a private meter provider).
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together: the corpus store,
// the embedding provider, the title index, the verification engine, and the
// HTTP server. The index starts empty — call [App.BootstrapIndex] before Run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Corpus store ──────────────────────────────────────────────────
	if a.corpus == nil {
		st, err := postgres.NewStore(ctx, cfg.Store.PostgresDSN, cfg.Store.EmbeddingDimensions)
		if err != nil {
			return nil, fmt.Errorf("app: init corpus store: %w", err)
		}
		a.corpus = st
		if a.vectors == nil {
			a.vectors = st
		}
		a.closers = append(a.closers, func() error {
			st.Close()
			return nil
		})
	}

	// ── 2. Embedding provider ────────────────────────────────────────────
	// The embedder is built in main (or injected by tests); a nil embedder
	// simply disables the semantic stage.
	if a.embedder == nil {
		slog.Warn("no embeddings provider configured; semantic stage disabled")
	}

	// ── 3. Title index and guidelines ────────────────────────────────────
	a.index = title.NewIndex(
		title.WithPeriodicityWords(cfg.Verification.ExtraPeriodicityWords...),
	)
	guidelines := title.NewGuidelines(
		title.WithDisallowedWords(cfg.Verification.ExtraDisallowedWords...),
	)

	// ── 4. Verification engine ───────────────────────────────────────────
	a.engine = verify.New(verify.Config{
		Index:                   a.index,
		Guidelines:              guidelines,
		Embedder:                a.embedder,
		Vectors:                 a.vectors,
		Metrics:                 a.metrics,
		LexicalRejectThreshold:  cfg.Verification.LexicalRejectThreshold,
		EnsembleRejectThreshold: cfg.Verification.EnsembleRejectThreshold,
		VectorMatchThreshold:    cfg.Verification.VectorMatchThreshold,
		VectorMatchCount:        cfg.Verification.VectorMatchCount,
		SemanticTimeout:         time.Duration(cfg.Verification.SemanticRPCTimeoutSeconds * float64(time.Second)),
		ResultCacheSize:         cfg.Verification.ResultCacheSize,
	})

	// ── 5. HTTP server ───────────────────────────────────────────────────
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(a.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// BootstrapIndex pulls the corpus from the store in fixed-size pages until an
// empty page is returned, extending the in-memory index batch by batch. The
// index lock is taken per batch, so readiness probes observe progress without
// waiting for the full load.
func (a *App) BootstrapIndex(ctx context.Context) error {
	slog.Info("bootstrapping in-memory index from corpus store",
		"page_size", a.cfg.Store.PageSize)

	pageSize := a.cfg.Store.PageSize
	offset := 0
	loaded := 0
	lastLogged := 0
	for {
		titles, err := a.corpus.ListTitles(ctx, offset, pageSize)
		if err != nil {
			return fmt.Errorf("app: bootstrap index: %w", err)
		}
		if len(titles) == 0 {
			break
		}

		before := a.index.Len()
		a.index.Extend(titles)
		a.metrics.IndexedTitles.Add(ctx, int64(a.index.Len()-before))

		loaded += len(titles)
		offset += pageSize
		if loaded-lastLogged >= 10000 {
			slog.Info("indexing corpus", "titles", loaded)
			lastLogged = loaded
		}
	}

	slog.Info("index ready", "titles", loaded, "distinct", a.index.Len())
	return nil
}

// Run serves HTTP until ctx is cancelled, then returns after a graceful
// shutdown of the listener.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown releases every subsystem in reverse construction order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		a.index.Clear()
	})
	return errors.Join(errs...)
}

// Handler exposes the fully-assembled HTTP handler. Used by tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// routes assembles the API surface.
func (a *App) routes() *http.ServeMux {
	mux := http.NewServeMux()

	hh := health.New(a.index.Len,
		health.Checker{Name: "store", Check: a.corpus.Ping},
	)
	hh.Register(mux)

	mux.HandleFunc("POST /verify", a.handleVerify)
	mux.HandleFunc("POST /submit_application", a.handleSubmitApplication)
	mux.HandleFunc("POST /webhook/prgi_sync", a.handleRegistrySync)
	mux.Handle("GET /metrics", metricsHandler())

	return mux
}
