// Package retriever answers "which chunks are relevant to this query",
// preferring vector similarity and degrading to lexical search when the
// similarity backend fails.
package retriever

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/iamnandhu/studysage/internal/storage"
)

// ErrEmptyQuery rejects blank queries before any external call.
var ErrEmptyQuery = errors.New("query must not be empty")

// DefaultTopK is how many chunks a retrieval returns by default.
const DefaultTopK = 5

// Mode tags how a result set was produced, so callers can distinguish
// ranked similarity results from unranked lexical fallback.
type Mode string

const (
	ModeRanked  Mode = "ranked"
	ModeLexical Mode = "lexical"
)

// Result is a retrieval outcome. Chunks are in relevance order for
// ModeRanked and backend order for ModeLexical (scores zero).
type Result struct {
	Mode   Mode
	Chunks []*storage.ScoredChunk
}

// Embedder is the query-embedding capability the retriever consumes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever runs the two-step search strategy over a chunk store.
type Retriever struct {
	embedder Embedder
	store    storage.Store
	logger   *slog.Logger
}

// New creates a Retriever. A nil logger falls back to slog.Default.
func New(embedder Embedder, store storage.Store, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, logger: logger}
}

// Retrieve embeds the query and returns up to topK chunks scoped to the
// filter, ordered by descending similarity. If the similarity backend
// fails the same filter is retried lexically rather than surfacing the
// error. If the query cannot be embedded there is nothing to search
// with, so an empty ranked result is returned.
func (r *Retriever) Retrieve(ctx context.Context, query string, f storage.Filter, topK int) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil || len(vector) == 0 {
		if err != nil {
			r.logger.Warn("Query embedding failed, returning empty result", "error", err)
		}
		return &Result{Mode: ModeRanked, Chunks: nil}, nil
	}

	scored, err := r.store.SimilaritySearch(ctx, vector, f, topK)
	if err != nil {
		r.logger.Warn("Similarity search failed, falling back to lexical", "error", err)
		return r.lexical(ctx, query, f, topK)
	}

	// Backends return ranked results; enforce the ordering invariant
	// and the topK cap regardless.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return &Result{Mode: ModeRanked, Chunks: scored}, nil
}

func (r *Retriever) lexical(ctx context.Context, query string, f storage.Filter, topK int) (*Result, error) {
	chunks, err := r.store.LexicalSearch(ctx, query, f, topK)
	if err != nil {
		return nil, err
	}
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	scored := make([]*storage.ScoredChunk, len(chunks))
	for i, c := range chunks {
		scored[i] = &storage.ScoredChunk{Chunk: c}
	}
	return &Result{Mode: ModeLexical, Chunks: scored}, nil
}
