package ingestion

import (
	"fmt"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// separators are tried in order: paragraphs, lines, words, then a hard
// character cut.
var separators = []string{"\n\n", "\n", " ", ""}

// Chunk is a bounded span of one page's text.
type Chunk struct {
	// Page is the 0-based page index the text came from.
	Page int
	// Index is the chunk's position in the whole document.
	Index int
	// Text is the chunk content.
	Text string
}

// SplitIntoChunks splits each page into chunks of at most size characters,
// sharing up to overlap characters between consecutive chunks of a page.
// Chunks never span pages.
func SplitIntoChunks(pages []Page, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("ingestion: chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("ingestion: chunk overlap must be in [0, %d), got %d", size, overlap)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(separators),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)

	var chunks []Chunk
	for _, p := range pages {
		if !p.hasText() {
			continue
		}
		parts, err := splitter.SplitText(p.Text)
		if err != nil {
			return nil, fmt.Errorf("ingestion: split page %d: %w", p.Index, err)
		}
		for _, text := range parts {
			if text == "" {
				continue
			}
			chunks = append(chunks, Chunk{Page: p.Index, Index: len(chunks), Text: text})
		}
	}
	return chunks, nil
}
