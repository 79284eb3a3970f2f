package index

import (
	"context"
	"errors"

	"github.com/cliofer/docchat/models"
)

// ErrDimensionMismatch is returned when a vector's length disagrees with the
// dimensionality fixed at collection creation. This is a configuration error
// (embedder swapped without reindexing) and must not be retried.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrUnavailable marks vector index failures at the storage layer. Ingestion
// treats it as fatal; retrieval degrades to empty context.
var ErrUnavailable = errors.New("vector index unavailable")

// Entry pairs a fragment with its embedding vector for insertion.
type Entry struct {
	Fragment models.Fragment
	Vector   []float32
}

// Hit is one search result: a fragment and its cosine similarity to the query,
// higher is closer.
type Hit struct {
	Fragment   models.Fragment
	Similarity float64
}

// Index persists (vector, fragment) tuples in named collections and supports
// nearest-neighbour search. Implementations provide their own concurrency
// control; callers share one instance across requests.
type Index interface {
	// EnsureCollection creates the collection if missing and pins its
	// dimensionality. A second call with different dimensions fails with
	// ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, collection string, dimensions int) error

	// Upsert inserts or replaces entries keyed by (document, ordinal) and
	// drops stale ordinals beyond each document's fragment count, so
	// re-ingesting a document is idempotent. All-or-nothing.
	Upsert(ctx context.Context, collection string, entries []Entry) error

	// Search returns up to k nearest neighbours ordered by non-increasing
	// similarity. documentID scopes the search to one document; "" searches
	// the whole collection. An empty or absent collection yields an empty
	// result, not an error.
	Search(ctx context.Context, collection, documentID string, vector []float32, k int) ([]Hit, error)

	// DeleteByDocument removes every fragment belonging to the document.
	DeleteByDocument(ctx context.Context, collection, documentID string) error
}
