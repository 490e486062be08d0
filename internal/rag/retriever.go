package rag

import (
	"context"
	"fmt"
)

// DefaultTopK is the number of results returned when the caller passes 0.
const DefaultTopK = 10

// DefaultRetriever embeds the query at retrieval time and delegates
// similarity search to the store.
type DefaultRetriever struct {
	embedder    Embedder
	store       VectorStore
	defaultTopK int
}

// NewRetriever constructs a DefaultRetriever. defaultTopK sets the fallback
// result count when Retrieve is called with topK <= 0.
func NewRetriever(embedder Embedder, store VectorStore, defaultTopK int) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &DefaultRetriever{
		embedder:    embedder,
		store:       store,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the query and returns the top-k most relevant documents,
// most similar first.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	vec, err := EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	return docs, nil
}

// EmbedOne embeds a single query text, preferring EmbedQuery when e
// implements QueryEmbedder.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if q, ok := e.(QueryEmbedder); ok {
		vec, err := q.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("rag: embedding query failed: %w", err)
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("rag: embedder returned empty result for query")
		}
		return vec, nil
	}

	embeddings, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) != 1 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}
	return embeddings[0], nil
}
