// Package memory is an in-process chunk store using brute-force cosine
// similarity. It backs tests and local runs that have no Atlas or
// Qdrant available.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/iamnandhu/studysage/internal/storage"
)

// Store holds chunks in memory guarded by a single RWMutex.
type Store struct {
	mu        sync.RWMutex
	dimension int
	chunks    []*storage.Chunk
}

// New creates an empty in-memory store. Vectors must have the given
// dimension; zero disables the check.
func New(dimension int) *Store {
	return &Store{dimension: dimension}
}

func (s *Store) Put(ctx context.Context, chunks []*storage.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if s.dimension > 0 && c.Embedded() && len(c.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, expected %d",
				storage.ErrDimensionMismatch, c.ID, len(c.Embedding), s.dimension)
		}
		cp := *c
		s.chunks = append(s.chunks, &cp)
	}
	return nil
}

func (s *Store) Purge(ctx context.Context, userID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.UserID == userID && c.DocumentID == documentID {
			continue
		}
		kept = append(kept, c)
	}
	s.chunks = kept
	return nil
}

func (s *Store) SimilaritySearch(ctx context.Context, vector []float32, f storage.Filter, limit int) ([]*storage.ScoredChunk, error) {
	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			storage.ErrDimensionMismatch, len(vector), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*storage.ScoredChunk
	for _, c := range s.chunks {
		if !c.Embedded() || !matches(c, f) {
			continue
		}
		results = append(results, &storage.ScoredChunk{Chunk: c, Score: cosine(vector, c.Embedding)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// LexicalSearch ranks by naive query-term overlap. Unembedded chunks
// are eligible here even though similarity search skips them.
func (s *Store) LexicalSearch(ctx context.Context, query string, f storage.Filter, limit int) ([]*storage.Chunk, error) {
	terms := strings.Fields(strings.ToLower(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		chunk *storage.Chunk
		count int
	}
	var hits []hit
	for _, c := range s.chunks {
		if !matches(c, f) {
			continue
		}
		content := strings.ToLower(c.Content)
		count := 0
		for _, t := range terms {
			if strings.Contains(content, t) {
				count++
			}
		}
		if count > 0 {
			hits = append(hits, hit{chunk: c, count: count})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].count > hits[j].count })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	chunks := make([]*storage.Chunk, len(hits))
	for i, h := range hits {
		chunks[i] = h.chunk
	}
	return chunks, nil
}

func (s *Store) Close() error { return nil }

func matches(c *storage.Chunk, f storage.Filter) bool {
	if c.UserID != f.UserID {
		return false
	}
	if len(f.DocumentIDs) == 0 {
		return true
	}
	for _, id := range f.DocumentIDs {
		if c.DocumentID == id {
			return true
		}
	}
	return false
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
