package storage

import "time"

// Chunk is an immutable slice of an ingested document. Chunks are
// written in bulk during ingestion and deleted in bulk when the parent
// document is purged; they are never updated in place.
type Chunk struct {
	ID         string    `bson:"id"`
	DocumentID string    `bson:"document_id"`
	UserID     string    `bson:"user_id"`
	ChunkIndex int       `bson:"chunk_index"` // dense, zero-based per ingestion run
	Content    string    `bson:"content"`
	PageNumber int       `bson:"page_number"` // 1-based source page; 0 for non-paginated sources
	Embedding  []float32 `bson:"embedding"`   // empty = unembedded, excluded from similarity search
	CreatedAt  time.Time `bson:"created_at"`
}

// Embedded reports whether the chunk carries an embedding vector.
// Unembedded chunks are only reachable through lexical search.
func (c *Chunk) Embedded() bool {
	return len(c.Embedding) > 0
}

// ScoredChunk pairs a chunk with its similarity score. Scores are
// backend-specific but always ordered descending within one result set.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// Filter scopes a search to one user's documents. An empty DocumentIDs
// slice matches all of the user's documents.
type Filter struct {
	UserID      string
	DocumentIDs []string
}

// CollectionName is the chunk collection shared by all store backends.
const CollectionName = "document_chunks"

// VectorIndexName is the ANN index the Mongo backend queries.
const VectorIndexName = "document_embeddings_index"

// Oversample is how many candidates similarity backends consider per
// requested result before narrowing to the limit.
const Oversample = 10
