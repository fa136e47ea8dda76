// Package ingest orchestrates the ingestion path: extract, chunk,
// embed, store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iamnandhu/studysage/internal/chunker"
	"github.com/iamnandhu/studysage/internal/extract"
	"github.com/iamnandhu/studysage/internal/storage"
)

// DefaultConcurrency bounds in-flight embedding calls per ingestion,
// to stay inside the embedding provider's rate limits.
const DefaultConcurrency = 8

// ExtractFunc pulls page-tagged text out of a source file.
type ExtractFunc func(path, mimeType string) ([]extract.Page, error)

// Embedder is the per-chunk embedding capability.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result contains statistics about one document ingestion.
type Result struct {
	DocumentID     string
	Pages          int
	TotalChunks    int
	EmbeddedChunks int
	FailedChunks   int // stored with empty embedding after an embedding failure
	Duration       time.Duration
}

// Pipeline runs document ingestion end to end. Ingestion of the same
// document is serialized through a per-document lock so re-ingestion
// cannot interleave purge and insert with itself.
type Pipeline struct {
	extractFn   ExtractFunc
	chunker     *chunker.Chunker
	embedder    Embedder
	store       storage.Store
	logger      *slog.Logger
	concurrency int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPipeline creates an ingestion pipeline. A nil extractFn uses the
// default extractor, a nil logger uses slog.Default, and a
// non-positive concurrency uses DefaultConcurrency.
func NewPipeline(extractFn ExtractFunc, ch *chunker.Chunker, embedder Embedder, store storage.Store, logger *slog.Logger, concurrency int) *Pipeline {
	if extractFn == nil {
		extractFn = extract.Extract
	}
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{
		extractFn:   extractFn,
		chunker:     ch,
		embedder:    embedder,
		store:       store,
		logger:      logger,
		concurrency: concurrency,
		locks:       map[string]*sync.Mutex{},
	}
}

// IngestDocument extracts, chunks, embeds, and stores one document.
// Prior chunks of the document are purged first, so re-ingestion never
// leaves two runs coexisting. Extraction failure aborts before any
// write; an embedding failure only degrades its own chunk, which is
// stored unembedded and stays reachable through lexical search.
func (p *Pipeline) IngestDocument(ctx context.Context, userID, documentID, path, mimeType string) (*Result, error) {
	lock := p.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	pages, err := p.extractFn(path, mimeType)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	p.logger.Debug("Extracted document", "document", documentID, "pages", len(pages))

	var candidates []chunker.Candidate
	for _, page := range pages {
		candidates = append(candidates, p.chunker.Split(page.Text, page.Number)...)
	}

	now := time.Now().UTC()
	chunks := make([]*storage.Chunk, len(candidates))
	for i, cand := range candidates {
		chunks[i] = &storage.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			UserID:     userID,
			ChunkIndex: i,
			Content:    cand.Content,
			PageNumber: cand.PageNumber,
			Embedding:  []float32{},
			CreatedAt:  now,
		}
	}

	failed := p.embedAll(ctx, chunks)

	if err := p.store.Purge(ctx, userID, documentID); err != nil {
		return nil, fmt.Errorf("purge prior chunks: %w", err)
	}
	if err := p.store.Put(ctx, chunks); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	result := &Result{
		DocumentID:     documentID,
		Pages:          len(pages),
		TotalChunks:    len(chunks),
		EmbeddedChunks: len(chunks) - failed,
		FailedChunks:   failed,
		Duration:       time.Since(start),
	}
	p.logger.Info("Ingested document",
		"document", documentID,
		"pages", result.Pages,
		"chunks", result.TotalChunks,
		"embedded", result.EmbeddedChunks,
		"failed", result.FailedChunks,
		"duration", result.Duration,
	)
	return result, nil
}

// embedAll embeds chunks concurrently under the pipeline's semaphore
// and returns how many failed. Failed chunks keep their empty
// embedding; completion order does not matter since each chunk is
// keyed by its own index.
func (p *Pipeline) embedAll(ctx context.Context, chunks []*storage.Chunk) int {
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for _, chunk := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(c *storage.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()

			vector, err := p.embedder.Embed(ctx, c.Content)
			if err != nil {
				p.logger.Warn("Embedding failed, storing chunk unembedded",
					"document", c.DocumentID, "chunk", c.ChunkIndex, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			c.Embedding = vector
		}(chunk)
	}
	wg.Wait()
	return failed
}

// Remove deletes all stored chunks of a document. Used when the parent
// document is deleted.
func (p *Pipeline) Remove(ctx context.Context, userID, documentID string) error {
	lock := p.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	if err := p.store.Purge(ctx, userID, documentID); err != nil {
		return fmt.Errorf("purge document %s: %w", documentID, err)
	}
	p.logger.Info("Purged document", "document", documentID)
	return nil
}

func (p *Pipeline) documentLock(documentID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[documentID] = lock
	}
	return lock
}
