package ingestion

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

// wordText returns n unique space-separated words.
func wordText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("palavra%03d", i)
	}
	return strings.Join(words, " ")
}

func TestSplitIntoChunks_RespectsSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"defaults", 1000, 150},
		{"small", 120, 30},
		{"no overlap", 200, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chunks, err := SplitIntoChunks([]Page{{Index: 0, Text: wordText(400)}}, tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("SplitIntoChunks: %v", err)
			}
			if len(chunks) < 2 {
				t.Fatalf("expected several chunks, got %d", len(chunks))
			}
			for i, c := range chunks {
				if n := utf8.RuneCountInString(c.Text); n > tt.size {
					t.Errorf("chunk %d has %d characters, limit %d", i, n, tt.size)
				}
				if c.Index != i {
					t.Errorf("chunk %d: Index = %d", i, c.Index)
				}
			}
		})
	}
}

func TestSplitIntoChunks_CoversEveryWord(t *testing.T) {
	t.Parallel()

	chunks, err := SplitIntoChunks([]Page{{Text: wordText(300)}}, 200, 50)
	if err != nil {
		t.Fatal(err)
	}
	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Text)
		joined.WriteString(" ")
	}
	for i := range 300 {
		w := fmt.Sprintf("palavra%03d", i)
		if !strings.Contains(joined.String(), w) {
			t.Errorf("word %s missing from chunks", w)
		}
	}
}

func TestSplitIntoChunks_ConsecutiveChunksOverlap(t *testing.T) {
	t.Parallel()

	chunks, err := SplitIntoChunks([]Page{{Text: wordText(300)}}, 200, 50)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Text)
		last := prev[len(prev)-1]
		if !strings.Contains(chunks[i].Text, last) {
			t.Errorf("chunk %d does not repeat %q from the end of chunk %d", i, last, i-1)
		}
	}
}

func TestSplitIntoChunks_NoOverlapWhenZero(t *testing.T) {
	t.Parallel()

	chunks, err := SplitIntoChunks([]Page{{Text: wordText(100)}}, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]int{}
	for _, c := range chunks {
		for _, w := range strings.Fields(c.Text) {
			seen[w]++
		}
	}
	for w, n := range seen {
		if n > 1 {
			t.Errorf("word %s appears in %d chunks", w, n)
		}
	}
}

func TestSplitIntoChunks_PrefersParagraphs(t *testing.T) {
	t.Parallel()

	text := "aaaa aaaa aaaa\n\nbbbb bbbb bbbb"
	chunks, err := SplitIntoChunks([]Page{{Text: text}}, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"aaaa aaaa aaaa", "bbbb bbbb bbbb"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks %+v, want %q", len(chunks), chunks, want)
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Errorf("chunk %d: got %q, want %q", i, chunks[i].Text, w)
		}
	}
}

func TestSplitIntoChunks_HardCut(t *testing.T) {
	t.Parallel()

	word := strings.Repeat("x", 50)
	chunks, err := SplitIntoChunks([]Page{{Text: word}}, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	var joined strings.Builder
	for i, c := range chunks {
		if len(c.Text) > 20 {
			t.Errorf("chunk %d has %d characters", i, len(c.Text))
		}
		joined.WriteString(c.Text)
	}
	if joined.String() != word {
		t.Errorf("hard cut lost text: %q", joined.String())
	}
}

func TestSplitIntoChunks_KeepsPagesApart(t *testing.T) {
	t.Parallel()

	pages := []Page{
		{Index: 0, Text: "primeira página"},
		{Index: 1, Text: "   \n "},
		{Index: 2, Text: "terceira página"},
	}
	chunks, err := SplitIntoChunks(pages, 1000, 150)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Page != 0 || chunks[1].Page != 2 {
		t.Errorf("pages: got %d and %d", chunks[0].Page, chunks[1].Page)
	}
	if chunks[1].Index != 1 {
		t.Errorf("document index: got %d, want 1", chunks[1].Index)
	}
}

func TestSplitIntoChunks_InvalidParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := SplitIntoChunks([]Page{{Text: "x"}}, tt.size, tt.overlap); err == nil {
				t.Error("expected error")
			}
		})
	}
}
