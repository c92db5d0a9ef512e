// Package rag implements the retrieval side of the chatbot: splitting documents
// into chunks, embedding them, persisting them in a vector index and searching
// that index for the chunks closest to a question.
package rag

import (
	"context"
	"errors"
)

var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrIndexClosed      = errors.New("vector index is closed")
)

// Chunk is a bounded fragment of a document, the unit of retrieval.
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Record pairs a Chunk with its embedding for insertion.
type Record struct {
	Chunk
	Embedding []float32 `json:"embedding"`
}

// ScoredChunk is a search hit. Score is cosine similarity (higher is closer).
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// VectorIndex is a durable collection of embedded chunks with similarity search.
// The indexer is its only writer; retrieval only reads.
type VectorIndex interface {
	// Add appends records. Existing records are never replaced or deduplicated.
	Add(ctx context.Context, records []Record) error

	// Search returns up to k records ordered by descending similarity.
	Search(ctx context.Context, query []float32, k int) ([]ScoredChunk, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Reset destroys all persisted data and leaves an empty, usable index.
	Reset(ctx context.Context) error

	// Close releases resources and closes connections
	Close() error
}
