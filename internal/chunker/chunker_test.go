package chunker

import (
	"fmt"
	"strings"
	"testing"
)

// words builds a space-joined sequence w0 w1 ... w(n-1).
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

// TestSplit_WindowOffsets verifies the documented 2500-word scenario:
// window 1000, overlap 200 -> [0,1000), [800,1800), [1600,2500).
func TestSplit_WindowOffsets(t *testing.T) {
	c, err := New(1000, 200)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	chunks := c.Split(words(2500), 1)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	starts := []string{"w0", "w800", "w1600"}
	ends := []string{"w999", "w1799", "w2499"}
	lengths := []int{1000, 1000, 900}
	for i, chunk := range chunks {
		fields := strings.Fields(chunk.Content)
		if len(fields) != lengths[i] {
			t.Errorf("Chunk %d: expected %d words, got %d", i, lengths[i], len(fields))
		}
		if fields[0] != starts[i] {
			t.Errorf("Chunk %d: expected first word %s, got %s", i, starts[i], fields[0])
		}
		if fields[len(fields)-1] != ends[i] {
			t.Errorf("Chunk %d: expected last word %s, got %s", i, ends[i], fields[len(fields)-1])
		}
		if chunk.PageNumber != 1 {
			t.Errorf("Chunk %d: expected page 1, got %d", i, chunk.PageNumber)
		}
	}
}

// TestSplit_OverlapInvariant checks that consecutive full windows share
// exactly overlap words for several parameter combinations.
func TestSplit_OverlapInvariant(t *testing.T) {
	cases := []struct {
		window, overlap, total int
	}{
		{10, 3, 57},
		{100, 20, 450},
		{5, 0, 23},
		{8, 7, 30},
	}

	for _, tc := range cases {
		c, err := New(tc.window, tc.overlap)
		if err != nil {
			t.Fatalf("New(%d, %d) failed: %v", tc.window, tc.overlap, err)
		}
		chunks := c.Split(words(tc.total), 0)

		for i := 0; i+1 < len(chunks); i++ {
			cur := strings.Fields(chunks[i].Content)
			next := strings.Fields(chunks[i+1].Content)

			shared := 0
			for _, w := range next {
				for _, v := range cur {
					if w == v {
						shared++
						break
					}
				}
			}
			// The final chunk may be shorter and overlap less.
			wantAtLeast := tc.overlap
			if len(next) < tc.overlap {
				wantAtLeast = len(next)
			}
			if i+2 < len(chunks) && shared != tc.overlap {
				t.Errorf("window=%d overlap=%d: chunks %d/%d share %d words, want %d",
					tc.window, tc.overlap, i, i+1, shared, tc.overlap)
			}
			if shared < wantAtLeast && i+2 == len(chunks) {
				t.Errorf("window=%d overlap=%d: final chunk shares %d words, want >= %d",
					tc.window, tc.overlap, shared, wantAtLeast)
			}
		}
	}
}

// TestSplit_Deterministic verifies identical input yields identical
// chunk sequences.
func TestSplit_Deterministic(t *testing.T) {
	c, err := New(50, 10)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	input := words(333)
	first := c.Split(input, 4)
	second := c.Split(input, 4)

	if len(first) != len(second) {
		t.Fatalf("Chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Chunk %d differs between runs", i)
		}
	}
}

// TestSplit_ShortInput verifies input smaller than one window produces
// a single chunk.
func TestSplit_ShortInput(t *testing.T) {
	c, err := New(1000, 200)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	chunks := c.Split("only a few words here", 2)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "only a few words here" {
		t.Errorf("Unexpected content: %q", chunks[0].Content)
	}
}

// TestSplit_ExactWindow verifies input of exactly one window does not
// produce a trailing empty or duplicate chunk.
func TestSplit_ExactWindow(t *testing.T) {
	c, err := New(10, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	chunks := c.Split(words(10), 0)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
}

// TestSplit_EmptyInput verifies blank text yields no chunks.
func TestSplit_EmptyInput(t *testing.T) {
	c, err := New(10, 2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if chunks := c.Split("   \n\t  ", 1); chunks != nil {
		t.Errorf("Expected nil chunks, got %d", len(chunks))
	}
}

// TestNew_InvalidParameters verifies the precondition check rejects
// windows that would never advance.
func TestNew_InvalidParameters(t *testing.T) {
	cases := []struct {
		window, overlap int
	}{
		{0, 0},
		{-5, 0},
		{10, 10},
		{10, 15},
		{10, -1},
	}
	for _, tc := range cases {
		if _, err := New(tc.window, tc.overlap); err == nil {
			t.Errorf("New(%d, %d): expected error, got nil", tc.window, tc.overlap)
		}
	}
}
