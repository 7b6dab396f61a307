// Command verifyxo is the main entry point for the title verification engine.
//
// Subcommands:
//
//	verifyxo [-config config.yaml]        start the verification server
//	verifyxo [-config config.yaml] seed   backfill missing corpus embeddings
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/verifyxo/engine/internal/app"
	"github.com/verifyxo/engine/internal/config"
	"github.com/verifyxo/engine/internal/observe"
	"github.com/verifyxo/engine/pkg/provider/embeddings"
	hfembed "github.com/verifyxo/engine/pkg/provider/embeddings/hf"
	oaiembed "github.com/verifyxo/engine/pkg/provider/embeddings/openai"
	"github.com/verifyxo/engine/pkg/store/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ─────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "verifyxo: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "verifyxo: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flag.Arg(0) == "seed" {
		return runSeed(ctx, cfg)
	}
	return runServe(ctx, cfg, *configPath)
}

func runServe(ctx context.Context, cfg *config.Config, configPath string) int {
	slog.Info("verifyxo starting",
		"config", configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"embeddings", cfg.Embeddings.Provider,
	)

	// ── Observability ─────────────────────────────────────────────────────
	otelShutdown, err := observe.Init(ctx)
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown error", "err", err)
		}
	}()

	// ── Embedding provider ────────────────────────────────────────────────
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		slog.Error("failed to build embedder", "err", err)
		return 1
	}

	// ── Application wiring ────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, app.WithEmbedder(embedder))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	if err := application.BootstrapIndex(ctx); err != nil {
		slog.Error("failed to bootstrap index", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// runSeed backfills the embedding column for corpus rows that lack one.
func runSeed(ctx context.Context, cfg *config.Config) int {
	st, err := postgres.NewStore(ctx, cfg.Store.PostgresDSN, cfg.Store.EmbeddingDimensions)
	if err != nil {
		slog.Error("failed to connect to corpus store", "err", err)
		return 1
	}
	defer st.Close()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		slog.Error("failed to build embedder", "err", err)
		return 1
	}

	slog.Info("seeding corpus embeddings",
		"model", embedder.ModelID(),
		"dimensions", embedder.Dimensions(),
	)

	processed, err := st.SeedEmbeddings(ctx, embedder, 500)
	if err != nil {
		slog.Error("seeding failed", "processed", processed, "err", err)
		return 1
	}
	slog.Info("seeding complete", "processed", processed)
	return 0
}

// buildEmbedder instantiates the configured embeddings provider.
func buildEmbedder(cfg *config.Config) (embeddings.Provider, error) {
	switch cfg.Embeddings.Provider {
	case "openai":
		var o []oaiembed.Option
		if cfg.Embeddings.BaseURL != "" {
			// Gateway-hosted models are unknown to the client's dimension
			// table; the store schema is the source of truth.
			o = append(o,
				oaiembed.WithBaseURL(cfg.Embeddings.BaseURL),
				oaiembed.WithDimensions(cfg.Store.EmbeddingDimensions),
			)
		}
		return oaiembed.New(cfg.Embeddings.APIKey, cfg.Embeddings.Model, o...)
	case "hf":
		var o []hfembed.Option
		if cfg.Embeddings.BaseURL != "" {
			o = append(o, hfembed.WithBaseURL(cfg.Embeddings.BaseURL))
		}
		return hfembed.New(cfg.Embeddings.APIKey, cfg.Embeddings.Model, o...)
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Embeddings.Provider)
	}
}

// newLogger builds the process-wide text logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level.Level(),
	}))
}
