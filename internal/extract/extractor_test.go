package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestExtract_PlainText(t *testing.T) {
	path := writeTemp(t, "notes.txt", "the krebs cycle produces ATP")

	pages, err := Extract(path, "text/plain")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(pages))
	}
	if pages[0].Number != 0 {
		t.Errorf("Flat text must have no page number, got %d", pages[0].Number)
	}
	if pages[0].Text != "the krebs cycle produces ATP" {
		t.Errorf("Unexpected text: %q", pages[0].Text)
	}
}

func TestExtract_Markdown(t *testing.T) {
	path := writeTemp(t, "notes.md", "# Biology\n\nSome notes.")

	pages, err := Extract(path, "text/markdown")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(pages))
	}
}

func TestExtract_EmptyTextFile(t *testing.T) {
	path := writeTemp(t, "empty.txt", "   \n\t")

	pages, err := Extract(path, "text/plain")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("Expected no pages for blank file, got %d", len(pages))
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "img.png", "not really an image")

	_, err := Extract(path, "image/png")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.txt"), "text/plain")
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("Expected ErrUnreadable, got %v", err)
	}
}

func TestExtract_CorruptPDF(t *testing.T) {
	path := writeTemp(t, "broken.pdf", "%PDF-1.4 this is not a valid pdf body")

	_, err := Extract(path, "application/pdf")
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("Expected ErrUnreadable, got %v", err)
	}
}
