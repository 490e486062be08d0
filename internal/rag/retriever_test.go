package rag

import (
	"context"
	"errors"
	"testing"
)

// fakeEmbedder returns a fixed vector per text and counts calls.
type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

// fakeStore records the last search and returns canned documents.
type fakeStore struct {
	docs     []Document
	err      error
	lastTopK int
}

func (f *fakeStore) Upsert(context.Context, []Document, [][]float32) error { return nil }
func (f *fakeStore) Search(_ context.Context, _ []float32, topK int) ([]Document, error) {
	f.lastTopK = topK
	return f.docs, f.err
}
func (f *fakeStore) Name() string               { return "fake" }
func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func TestNewRetriever_NilArgs(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, &fakeStore{}, 0); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewRetriever(&fakeEmbedder{}, nil, 0); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	t.Parallel()

	store := &fakeStore{docs: []Document{{Content: "a", Score: 0.9}}}
	r, err := NewRetriever(&fakeEmbedder{vec: []float32{1, 0}}, store, 0)
	if err != nil {
		t.Fatal(err)
	}

	docs, err := r.Retrieve(context.Background(), "pergunta", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 doc, got %d", len(docs))
	}
	if store.lastTopK != DefaultTopK {
		t.Errorf("topK: got %d, want %d", store.lastTopK, DefaultTopK)
	}
}

func TestRetrieve_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name  string
		emb   *fakeEmbedder
		store *fakeStore
	}{
		{"embed error", &fakeEmbedder{err: boom}, &fakeStore{}},
		{"empty embedding", &fakeEmbedder{}, &fakeStore{}},
		{"search error", &fakeEmbedder{vec: []float32{1}}, &fakeStore{err: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := NewRetriever(tt.emb, tt.store, 3)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := r.Retrieve(context.Background(), "q", 0); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCheckParallel(t *testing.T) {
	t.Parallel()

	err := checkParallel([]Document{{}, {}}, [][]float32{{1}})
	var mm *MismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("expected *MismatchError, got %v", err)
	}
	if mm.Docs != 2 || mm.Embeddings != 1 {
		t.Errorf("got %+v", mm)
	}
}

func TestApplyMetadata(t *testing.T) {
	t.Parallel()

	var doc Document
	applyMetadata(&doc, map[string]any{"source": "/docs/a.pdf", "page": float64(3), "chunk": float64(7)})

	if doc.Source != "/docs/a.pdf" || doc.Page != 3 {
		t.Errorf("got source=%q page=%d", doc.Source, doc.Page)
	}
	if doc.Metadata["chunk"] != float64(7) {
		t.Errorf("chunk metadata not preserved: %v", doc.Metadata)
	}
	if _, ok := doc.Metadata["source"]; ok {
		t.Error("source should be lifted out of Metadata")
	}
}

func TestMetadataFor(t *testing.T) {
	t.Parallel()

	m := metadataFor(Document{Source: "doc.pdf", Page: 2, Metadata: map[string]any{"chunk": 4}})
	if m["source"] != "doc.pdf" || m["page"] != 2 || m["chunk"] != 4 {
		t.Errorf("unexpected metadata: %v", m)
	}
}
