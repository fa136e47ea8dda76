// Package answer builds grounded answers from retrieved chunks, with
// structured source citations.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iamnandhu/studysage/internal/storage"
)

// ErrGeneration wraps failures of the text-generation call. Generation
// is never retried here; repeated calls cost the caller money.
var ErrGeneration = errors.New("answer generation failed")

const baseInstruction = "You are an expert study assistant. Answer questions based ONLY on the provided context. Include citations with document ID and page numbers."

// Generator is the opaque text-generation capability.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Source cites one chunk that grounded the answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	Page       int     `json:"page"` // 0 = source had no page numbers
	Score      float64 `json:"score"`
}

// Answer is a generated response plus the chunks it was grounded in.
type Answer struct {
	Answer      string   `json:"answer"`
	Sources     []Source `json:"sources"`
	ContextUsed int      `json:"context_used"`
}

// Assembler turns retrieved chunks and a query into a grounded answer.
// It holds no state and persists nothing.
type Assembler struct {
	generator Generator
}

// New creates an Assembler over the given generation capability.
func New(generator Generator) *Assembler {
	return &Assembler{generator: generator}
}

// Assemble builds a context block from the chunks (in the supplied
// relevance order), instructs the generator to answer strictly from it
// with inline citations, and returns the answer with one source per
// chunk. ageHint > 0 asks for an explanation pitched at that age.
func (a *Assembler) Assemble(ctx context.Context, query string, chunks []*storage.ScoredChunk, ageHint int) (*Answer, error) {
	system := baseInstruction
	if ageHint > 0 {
		system = fmt.Sprintf("%s The student is %d years old; pitch the explanation at that age.", baseInstruction, ageHint)
	}

	prompt := fmt.Sprintf(
		"Context:\n%s\n\nQuestion: %s\n\nProvide a detailed answer with specific citations (document ID and page numbers).",
		contextBlock(chunks), query)

	text, err := a.generator.Generate(ctx, system, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	sources := make([]Source, len(chunks))
	for i, sc := range chunks {
		sources[i] = Source{
			DocumentID: sc.Chunk.DocumentID,
			Page:       sc.Chunk.PageNumber,
			Score:      sc.Score,
		}
	}

	return &Answer{
		Answer:      text,
		Sources:     sources,
		ContextUsed: len(chunks),
	}, nil
}

// contextBlock renders each chunk as a cited block, blank-line
// separated, preserving the supplied order.
func contextBlock(chunks []*storage.ScoredChunk) string {
	blocks := make([]string, len(chunks))
	for i, sc := range chunks {
		page := "N/A"
		if sc.Chunk.PageNumber > 0 {
			page = fmt.Sprintf("%d", sc.Chunk.PageNumber)
		}
		blocks[i] = fmt.Sprintf("[Document %s, Page %s]:\n%s", sc.Chunk.DocumentID, page, sc.Chunk.Content)
	}
	return strings.Join(blocks, "\n\n")
}
