package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrFileNotFound is returned by LoadDocument when the PDF path does not exist.
var ErrFileNotFound = errors.New("ingestion: PDF file not found")

// DocumentLoadError reports a PDF that exists but could not be parsed.
type DocumentLoadError struct {
	// Path is the file that failed to load.
	Path string
	// Err is the underlying parser error.
	Err error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("ingestion: load %s: %v", e.Path, e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }

// Page is the extracted text of one PDF page.
type Page struct {
	// Index is the 0-based page number.
	Index int
	// Text is the raw extracted text.
	Text string
}

// LoadDocument extracts the text of every page in the PDF at path.
// Pages without a content stream are skipped; a page whose text cannot be
// extracted fails the whole load.
func LoadDocument(path string) (pages []Page, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, &DocumentLoadError{Path: path, Err: err}
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &DocumentLoadError{Path: path, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &DocumentLoadError{Path: path, Err: err}
	}

	n := reader.NumPage()
	pages = make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			return nil, &DocumentLoadError{Path: path, Err: fmt.Errorf("page %d: %w", i, err)}
		}
		pages = append(pages, Page{Index: i - 1, Text: text})
	}
	return pages, nil
}

// pageText extracts a page from its positioned glyphs so word gaps encoded
// as kerning become spaces. Pages whose content stream the layout pass cannot
// interpret fall back to the raw text operators.
func pageText(p pdf.Page) (string, error) {
	if text, ok := layoutText(p); ok {
		return text, nil
	}
	return p.GetPlainText(nil)
}

func layoutText(p pdf.Page) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			text, ok = "", false
		}
	}()
	return joinGlyphs(p.Content().Text), true
}

// joinGlyphs rebuilds text from glyphs in content-stream order. A vertical
// move of more than half the font size starts a new line; a horizontal gap
// wider than a fifth of the font size becomes a space.
func joinGlyphs(glyphs []pdf.Text) string {
	var b strings.Builder
	var prev *pdf.Text
	for i := range glyphs {
		g := &glyphs[i]
		if g.S == "" || g.S == "\n" {
			continue
		}
		if prev != nil {
			size := math.Max(g.FontSize, 1)
			switch {
			case math.Abs(g.Y-prev.Y) > size/2:
				b.WriteByte('\n')
			case g.X-(prev.X+prev.W) > size/5 && !isSpace(prev.S) && !isSpace(g.S):
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		prev = g
	}
	return b.String()
}

func isSpace(s string) bool {
	return strings.TrimSpace(s) == ""
}

// hasText reports whether p carries anything worth chunking.
func (p Page) hasText() bool {
	return strings.TrimSpace(p.Text) != ""
}
