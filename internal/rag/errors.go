package rag

import "fmt"

// MismatchError reports an Upsert whose docs and embeddings differ in length.
type MismatchError struct {
	Docs       int
	Embeddings int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("rag: %d documents but %d embeddings", e.Docs, e.Embeddings)
}
