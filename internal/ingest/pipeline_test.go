package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamnandhu/studysage/internal/chunker"
	"github.com/iamnandhu/studysage/internal/extract"
	"github.com/iamnandhu/studysage/internal/storage"
	"github.com/iamnandhu/studysage/internal/storage/memory"
)

// stubEmbedder embeds deterministically and can fail for marked texts.
type stubEmbedder struct {
	failOn string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return nil, errors.New("simulated embedding failure")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func pagesOf(texts ...string) ExtractFunc {
	return func(path, mimeType string) ([]extract.Page, error) {
		pages := make([]extract.Page, len(texts))
		for i, t := range texts {
			pages[i] = extract.Page{Number: i + 1, Text: t}
		}
		return pages, nil
	}
}

func newTestPipeline(t *testing.T, extractFn ExtractFunc, embedder Embedder, store storage.Store) *Pipeline {
	t.Helper()
	ch, err := chunker.New(10, 2)
	require.NoError(t, err)
	return NewPipeline(extractFn, ch, embedder, store, nil, 4)
}

func sentence(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

func TestIngestDocument_ChunksAreDenselyIndexed(t *testing.T) {
	store := memory.New(3)
	p := newTestPipeline(t, pagesOf(sentence(25), sentence(12)), &stubEmbedder{}, store)

	result, err := p.IngestDocument(context.Background(), "user-1", "doc-1", "ignored.pdf", "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, result.TotalChunks, result.EmbeddedChunks)
	assert.Zero(t, result.FailedChunks)

	chunks, err := store.LexicalSearch(context.Background(), "word",
		storage.Filter{UserID: "user-1", DocumentIDs: []string{"doc-1"}}, 100)
	require.NoError(t, err)
	require.Len(t, chunks, result.TotalChunks)

	// Indexes must be dense from 0 across page boundaries.
	seen := make(map[int]bool)
	for _, c := range chunks {
		seen[c.ChunkIndex] = true
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, "user-1", c.UserID)
		assert.NotEmpty(t, c.ID)
	}
	for i := 0; i < result.TotalChunks; i++ {
		assert.True(t, seen[i], "missing chunk index %d", i)
	}
}

func TestIngestDocument_ReingestReplacesPriorChunks(t *testing.T) {
	store := memory.New(3)

	first := newTestPipeline(t, pagesOf(sentence(40)), &stubEmbedder{}, store)
	_, err := first.IngestDocument(context.Background(), "user-1", "doc-1", "f", "application/pdf")
	require.NoError(t, err)

	second := newTestPipeline(t, pagesOf(sentence(12)), &stubEmbedder{}, store)
	result, err := second.IngestDocument(context.Background(), "user-1", "doc-1", "f", "application/pdf")
	require.NoError(t, err)

	chunks, err := store.LexicalSearch(context.Background(), "word",
		storage.Filter{UserID: "user-1", DocumentIDs: []string{"doc-1"}}, 100)
	require.NoError(t, err)
	assert.Len(t, chunks, result.TotalChunks,
		"chunks from two ingestion runs must never coexist")
}

func TestIngestDocument_ExtractionErrorWritesNothing(t *testing.T) {
	store := memory.New(3)
	failing := func(path, mimeType string) ([]extract.Page, error) {
		return nil, fmt.Errorf("%w: scrambled bytes", extract.ErrUnreadable)
	}
	p := newTestPipeline(t, failing, &stubEmbedder{}, store)

	_, err := p.IngestDocument(context.Background(), "user-1", "doc-1", "f", "application/pdf")
	require.ErrorIs(t, err, extract.ErrUnreadable)

	chunks, err := store.LexicalSearch(context.Background(), "word0", storage.Filter{UserID: "user-1"}, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks, "no chunks may be written when extraction fails")
}

func TestIngestDocument_EmbeddingFailureIsIsolatedPerChunk(t *testing.T) {
	store := memory.New(3)
	// Window 10/overlap 2: 25 words produce chunks [0,10), [8,18),
	// [16,25); only the last chunk contains word24.
	p := newTestPipeline(t, pagesOf(sentence(25)), &stubEmbedder{failOn: "word24"}, store)

	result, err := p.IngestDocument(context.Background(), "user-1", "doc-1", "f", "application/pdf")
	require.NoError(t, err, "a single bad chunk must not abort the batch")

	assert.Equal(t, 3, result.TotalChunks)
	assert.Equal(t, 1, result.FailedChunks)
	assert.Equal(t, 2, result.EmbeddedChunks)

	// The degraded chunk is stored, unembedded, and lexically reachable.
	chunks, err := store.LexicalSearch(context.Background(), "word16",
		storage.Filter{UserID: "user-1"}, 10)
	require.NoError(t, err)
	found := false
	for _, c := range chunks {
		if !c.Embedded() {
			found = true
		}
	}
	assert.True(t, found, "failed chunk should be stored with empty embedding")

	// And excluded from similarity search.
	scored, err := store.SimilaritySearch(context.Background(), []float32{1, 1, 0},
		storage.Filter{UserID: "user-1"}, 10)
	require.NoError(t, err)
	assert.Len(t, scored, 2)
}

func TestRemove_PurgesAllChunks(t *testing.T) {
	store := memory.New(3)
	p := newTestPipeline(t, pagesOf(sentence(30)), &stubEmbedder{}, store)

	_, err := p.IngestDocument(context.Background(), "user-1", "doc-1", "f", "application/pdf")
	require.NoError(t, err)
	require.NoError(t, p.Remove(context.Background(), "user-1", "doc-1"))

	scored, err := store.SimilaritySearch(context.Background(), []float32{1, 0, 0},
		storage.Filter{UserID: "user-1", DocumentIDs: []string{"doc-1"}}, 10)
	require.NoError(t, err)
	assert.Empty(t, scored, "search after purge must return zero results")

	chunks, err := store.LexicalSearch(context.Background(), "word0",
		storage.Filter{UserID: "user-1", DocumentIDs: []string{"doc-1"}}, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
