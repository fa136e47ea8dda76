package storage

import "context"

// Store persists document chunks and answers similarity and lexical
// queries over them. Implementations are safe for concurrent use.
//
// Put is best-effort: each chunk is independently durable once the
// backend acknowledges it, and a mid-batch failure may leave a partial
// write. That is acceptable because ingestion always purges a
// document's prior chunks before writing, so a partial batch never
// mixes two ingestion runs; callers recover by re-ingesting.
type Store interface {
	// Put bulk-inserts chunks. Chunks with an empty Embedding are
	// stored but never returned by SimilaritySearch.
	Put(ctx context.Context, chunks []*Chunk) error

	// Purge deletes every chunk of the given document. Called before
	// re-ingestion and on document deletion.
	Purge(ctx context.Context, userID, documentID string) error

	// SimilaritySearch returns up to limit chunks scoped to the filter,
	// ordered by descending similarity to the query vector. Backends
	// oversample candidates by Oversample x limit before narrowing.
	// Failures wrap ErrSimilaritySearch.
	SimilaritySearch(ctx context.Context, vector []float32, f Filter, limit int) ([]*ScoredChunk, error)

	// LexicalSearch is the degraded-mode fallback: a text match scoped
	// to the filter, with backend-specific (or no) ranking.
	LexicalSearch(ctx context.Context, query string, f Filter, limit int) ([]*Chunk, error)

	Close() error
}
