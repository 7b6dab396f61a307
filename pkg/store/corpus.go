// Package store defines the corpus-store contracts the verification engine
// depends on: paged reads of registered titles, pending-application inserts,
// registry synchronization, and cosine-similarity vector search over the
// embedding column.
//
// Implementations live in subpackages; see [github.com/verifyxo/engine/pkg/store/postgres].
package store

import (
	"context"
	"errors"
)

// ErrTitleExists is returned by [Corpus.InsertPending] when a row with the
// same title already exists.
var ErrTitleExists = errors.New("title already exists")

// Match is one vector-search hit: a registered raw title and its cosine
// similarity to the query embedding, in [−1, 1].
type Match struct {
	Title      string
	Similarity float64
}

// Corpus is the persistent store of registered titles. The engine reads
// titles in pages at startup, inserts pending applications, and applies
// registry sync updates; it never deletes rows or manages the vector column.
type Corpus interface {
	// ListTitles returns up to limit raw titles starting at offset, in a
	// stable order. An empty page signals the end of the corpus.
	ListTitles(ctx context.Context, offset, limit int) ([]string, error)

	// InsertPending stores a new application row with publication state
	// "pending". Returns [ErrTitleExists] if the title is already present.
	InsertPending(ctx context.Context, rawTitle, language string) error

	// SyncRegistration updates the publication state and government
	// registration id of an existing row, keyed by raw title.
	SyncRegistration(ctx context.Context, rawTitle, registrationID, status string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// VectorSearcher finds registered titles semantically close to a query
// embedding. Rows without an embedding are skipped.
type VectorSearcher interface {
	// MatchTitles returns at most count titles whose cosine similarity to
	// embedding is at least threshold, most similar first.
	MatchTitles(ctx context.Context, embedding []float32, threshold float64, count int) ([]Match, error)
}
