// Package extract pulls raw text out of uploaded source files. PDF
// extraction is page-aware; flat text formats yield a single unit.
package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnreadable        = errors.New("file could not be parsed")
)

// Page is one unit of extracted text. Number is the 1-based source
// page for paginated formats and 0 for flat text.
type Page struct {
	Number int
	Text   string
}

// Extract reads the file at path and returns its text in source order.
// mimeType is the caller-declared MIME type of the upload.
func Extract(path, mimeType string) ([]Page, error) {
	switch mimeType {
	case "application/pdf":
		return extractPDF(path)
	case "text/plain", "text/markdown":
		return extractText(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
}

// extractPDF returns one Page per non-empty PDF page.
func extractPDF(path string) ([]Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	var pages []Page
	for num := 1; num <= reader.NumPage(); num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrUnreadable, num, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: num, Text: text})
	}
	return pages, nil
}

func extractText(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []Page{{Number: 0, Text: text}}, nil
}
