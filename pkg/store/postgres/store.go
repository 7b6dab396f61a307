// Package postgres provides the PostgreSQL-backed corpus store for the
// verification engine. Registered titles live in the existing_titles table
// with a pgvector embedding column; semantic lookups run as cosine
// nearest-neighbour queries against an HNSW index.
//
// The pgvector extension must be available in the target database; [Migrate]
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	st, err := postgres.NewStore(ctx, dsn, 384)
//	if err != nil { … }
//	defer st.Close()
//
//	titles, _ := st.ListTitles(ctx, 0, 1000)
//	matches, _ := st.MatchTitles(ctx, queryVec, 0.35, 5)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/verifyxo/engine/pkg/store"
)

// Compile-time interface checks.
var (
	_ store.Corpus         = (*Store)(nil)
	_ store.VectorSearcher = (*Store)(nil)
)

// Store implements [store.Corpus] and [store.VectorSearcher] on a single
// [pgxpool.Pool]. All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the PostgreSQL database at dsn,
// registers pgvector types on every connection, and runs [Migrate] to ensure
// the existing_titles table and the vector extension exist.
//
// embeddingDimensions must match the output dimension of the configured
// embedding model. Changing it after the first migration requires a manual
// schema change.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("corpus store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so the embedding column
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("corpus store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("corpus store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("corpus store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Ping implements [store.Corpus].
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ddlExistingTitles returns the corpus DDL with the embedding dimension
// substituted. Column names mirror the registry's upstream export, quoted
// where they contain spaces or capitals.
func ddlExistingTitles(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS existing_titles (
    id                  BIGSERIAL  PRIMARY KEY,
    "Title"             TEXT       NOT NULL,
    "Language"          TEXT       NOT NULL DEFAULT '',
    "Publication State" TEXT       NOT NULL DEFAULT '',
    "PRGI_Reg_ID"       TEXT       NOT NULL DEFAULT '',
    embedding           vector(%d)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_existing_titles_title
    ON existing_titles ("Title");

CREATE INDEX IF NOT EXISTS idx_existing_titles_embedding
    ON existing_titles USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures the existing_titles table and the vector
// extension. Idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddlExistingTitles(embeddingDimensions)); err != nil {
		return fmt.Errorf("corpus migrate: %w", err)
	}
	return nil
}
