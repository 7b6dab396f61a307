package postgres

import (
	"context"
	"fmt"
	"log/slog"
)

// Embedder generates one vector per input text. Satisfied by
// [github.com/verifyxo/engine/pkg/provider/embeddings.Provider].
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SeedEmbeddings backfills the embedding column for every row that lacks one,
// in batches of batchSize. It returns the number of rows embedded.
//
// The loop re-queries NULL-embedding rows after each batch, so it converges
// even when rows are inserted concurrently.
func (s *Store) SeedEmbeddings(ctx context.Context, embedder Embedder, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	processed := 0
	for {
		backlog, err := s.listMissingEmbeddings(ctx, batchSize)
		if err != nil {
			return processed, err
		}
		if len(backlog) == 0 {
			return processed, nil
		}

		texts := make([]string, len(backlog))
		for i, row := range backlog {
			texts[i] = row.Title
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return processed, fmt.Errorf("corpus store: seed embeddings: %w", err)
		}
		if len(vectors) != len(backlog) {
			return processed, fmt.Errorf("corpus store: seed embeddings: expected %d vectors, got %d",
				len(backlog), len(vectors))
		}

		for i, row := range backlog {
			if err := s.writeEmbedding(ctx, row.ID, vectors[i]); err != nil {
				return processed, err
			}
			processed++
		}
		slog.Info("embedded corpus batch", "batch", len(backlog), "total", processed)
	}
}
