package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/verifyxo/engine/pkg/store"
)

// ListTitles implements [store.Corpus]. Pages are ordered by id so the
// startup loader sees a stable sequence even while rows are appended.
func (s *Store) ListTitles(ctx context.Context, offset, limit int) ([]string, error) {
	const q = `
		SELECT "Title"
		FROM   existing_titles
		ORDER  BY id
		OFFSET $1
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("corpus store: list titles: %w", err)
	}

	titles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("corpus store: scan titles: %w", err)
	}
	return titles, nil
}

// InsertPending implements [store.Corpus]. The embedding column is left NULL;
// vector generation is a separate offline concern (see the seed subcommand).
func (s *Store) InsertPending(ctx context.Context, rawTitle, language string) error {
	const q = `
		INSERT INTO existing_titles ("Title", "Language", "Publication State")
		VALUES ($1, $2, 'pending')`

	if _, err := s.pool.Exec(ctx, q, rawTitle, language); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrTitleExists
		}
		return fmt.Errorf("corpus store: insert pending: %w", err)
	}
	return nil
}

// SyncRegistration implements [store.Corpus].
func (s *Store) SyncRegistration(ctx context.Context, rawTitle, registrationID, status string) error {
	const q = `
		UPDATE existing_titles
		SET    "Publication State" = $2,
		       "PRGI_Reg_ID"       = $3
		WHERE  "Title" = $1`

	if _, err := s.pool.Exec(ctx, q, rawTitle, status, registrationID); err != nil {
		return fmt.Errorf("corpus store: sync registration: %w", err)
	}
	return nil
}

// MatchTitles implements [store.VectorSearcher]. Cosine similarity is
// 1 − (embedding <=> query); rows without an embedding are skipped.
func (s *Store) MatchTitles(ctx context.Context, embedding []float32, threshold float64, count int) ([]store.Match, error) {
	const q = `
		SELECT "Title",
		       1 - (embedding <=> $1) AS similarity
		FROM   existing_titles
		WHERE  embedding IS NOT NULL
		  AND  1 - (embedding <=> $1) >= $2
		ORDER  BY embedding <=> $1
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), threshold, count)
	if err != nil {
		return nil, fmt.Errorf("corpus store: match titles: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Match, error) {
		var m store.Match
		if err := row.Scan(&m.Title, &m.Similarity); err != nil {
			return store.Match{}, err
		}
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("corpus store: scan matches: %w", err)
	}
	return matches, nil
}

// embeddingBacklog is one row awaiting vector generation.
type embeddingBacklog struct {
	ID    int64
	Title string
}

// listMissingEmbeddings returns up to limit rows whose embedding is NULL.
func (s *Store) listMissingEmbeddings(ctx context.Context, limit int) ([]embeddingBacklog, error) {
	const q = `
		SELECT id, "Title"
		FROM   existing_titles
		WHERE  embedding IS NULL
		ORDER  BY id
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("corpus store: list missing embeddings: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[embeddingBacklog])
}

// writeEmbedding stores a generated vector on one row.
func (s *Store) writeEmbedding(ctx context.Context, id int64, embedding []float32) error {
	const q = `UPDATE existing_titles SET embedding = $2 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, id, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("corpus store: write embedding: %w", err)
	}
	return nil
}
