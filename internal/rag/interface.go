// Package rag defines the retrieval-augmented generation building blocks:
// documents, embedders and vector stores. Concrete stores (pgvector, Qdrant)
// satisfy these interfaces so the pipelines never depend on a backend.
package rag

import (
	"context"
)

// Document is one stored or retrieved chunk of the source PDF.
type Document struct {
	// ID is the unique record identifier (a random UUID).
	ID string

	// Content is the chunk text.
	Content string

	// Source is the file path the chunk was extracted from.
	Source string

	// Page is the 0-based page index the chunk was extracted from.
	Page int

	// Metadata holds any additional key-value pairs persisted with the chunk.
	Metadata map[string]any

	// Score is the similarity to the query (higher is closer).
	// Zero value means the score was not computed.
	Score float32
}

// VectorStore persists chunk embeddings in one named collection and answers
// nearest-neighbour queries against it. Implementations must be safe to call
// from multiple goroutines.
type VectorStore interface {
	// Upsert appends docs with their pre-computed embeddings, creating the
	// collection if it does not exist. embeddings[i] is the vector for docs[i].
	// Records are never deduplicated.
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns up to topK documents ordered by descending similarity.
	// A missing collection yields an empty result, not an error.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// Name identifies the backend in logs and readiness checks.
	Name() string

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// QueryEmbedder is implemented by embedders whose provider distinguishes
// query embeddings from document embeddings.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever fetches the documents most relevant to a free-text query.
type Retriever interface {
	// Retrieve returns the top-k most relevant documents for the given query.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}

// metadataFor merges the first-class document fields into the persisted
// metadata map.
func metadataFor(doc Document) map[string]any {
	m := make(map[string]any, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		m[k] = v
	}
	m["source"] = doc.Source
	m["page"] = doc.Page
	return m
}

// checkParallel verifies docs and embeddings line up.
func checkParallel(docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return &MismatchError{Docs: len(docs), Embeddings: len(embeddings)}
	}
	return nil
}
