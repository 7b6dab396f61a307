// Package embeddings defines the Provider interface for the external
// embedding service that maps title strings to dense float32 vectors.
//
// The verification engine embeds the raw (not normalized) title and hands the
// vector to the corpus store's cosine search. Vectors from different Provider
// instances must never be mixed in one similarity computation unless both use
// the same model and space.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by a single Provider instance share the same
// dimensionality (returned by Dimensions).
type Provider interface {
	// Embed computes the embedding vector for a single title. Returns a
	// float32 slice of length Dimensions() or an error if the request fails
	// or ctx is cancelled.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes vectors for a slice of titles. An implementation
	// may split a large batch into several backend requests. The returned
	// slice has the same length as texts and the i-th
	// element corresponds to texts[i]. Partial results are not returned — on
	// error the entire slice is nil.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector produced by this
	// provider, constant for the lifetime of the instance.
	Dimensions() int

	// ModelID returns the provider-specific model identifier, for logging and
	// for ensuring a consistent model across the corpus.
	ModelID() string
}
