package rag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUndefinedTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"missing relation", &pgconn.PgError{Code: "42P01"}, true},
		{"wrapped missing relation", fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01"}), true},
		{"permission denied", &pgconn.PgError{Code: "42501"}, false},
		{"plain error", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isUndefinedTable(tt.err); got != tt.want {
				t.Errorf("isUndefinedTable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestPGVectorStore_NotReady(t *testing.T) {
	t.Parallel()

	s := &PGVectorStore{cfg: &PGVectorConfig{Collection: "pdf_documents"}}

	docs, err := s.Search(t.Context(), []float32{1, 0}, 5)
	if err != nil || len(docs) != 0 {
		t.Fatalf("Search: got %v, %v; want empty result", docs, err)
	}
	err = s.Upsert(t.Context(), []Document{{Content: "x"}}, [][]float32{{1, 0}})
	if err == nil {
		t.Fatal("Upsert: expected error without a schema")
	}
}

func TestApplyMetadataPgvector(t *testing.T) {
	t.Parallel()

	var doc Document
	applyMetadata(&doc, map[string]any{"source": "manual.pdf", "page": float64(3), "chunk": float64(7)})
	if doc.Source != "manual.pdf" || doc.Page != 3 {
		t.Errorf("got source %q page %d", doc.Source, doc.Page)
	}
	if doc.Metadata["chunk"] != float64(7) {
		t.Errorf("chunk metadata: %v", doc.Metadata)
	}
	if _, ok := doc.Metadata["source"]; ok {
		t.Error("source must be lifted out of Metadata")
	}
}
