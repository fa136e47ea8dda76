// Package chunker splits page text into overlapping fixed-size word
// windows suitable for embedding and retrieval.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWindow is returned for window parameters under which the
// window would never advance.
var ErrInvalidWindow = errors.New("overlap must be smaller than window size")

const (
	// DefaultWindowSize is the chunk width in words.
	DefaultWindowSize = 1000

	// DefaultOverlap is how many words consecutive chunks share.
	DefaultOverlap = 200
)

// Candidate is a chunk of page text before it is embedded and stored.
type Candidate struct {
	Content    string
	PageNumber int
}

// Chunker produces overlapping word windows with a fixed stride.
// Splitting is deterministic: the same input always yields the same
// chunk sequence.
type Chunker struct {
	windowSize int
	overlap    int
}

// New validates the window parameters up front. windowSize must be
// positive and overlap strictly smaller, otherwise the window would
// stall instead of advancing.
func New(windowSize, overlap int) (*Chunker, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: window size %d", ErrInvalidWindow, windowSize)
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, fmt.Errorf("%w: window %d, overlap %d", ErrInvalidWindow, windowSize, overlap)
	}
	return &Chunker{windowSize: windowSize, overlap: overlap}, nil
}

// Split tokenizes text into whitespace-separated words and slides a
// window of windowSize words forward by windowSize-overlap words per
// step. The final window may be shorter than windowSize.
func (c *Chunker) Split(text string, pageNumber int) []Candidate {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := c.windowSize - c.overlap
	var candidates []Candidate
	for start := 0; start < len(words); start += stride {
		end := min(start+c.windowSize, len(words))
		candidates = append(candidates, Candidate{
			Content:    strings.Join(words[start:end], " "),
			PageNumber: pageNumber,
		})
		if end == len(words) {
			break
		}
	}
	return candidates
}
