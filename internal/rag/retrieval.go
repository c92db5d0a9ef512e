package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultTopK is the number of chunks retrieved when k is not positive.
const DefaultTopK = 5

// Retriever embeds a query and searches the vector index with it.
type Retriever struct {
	embedder EmbeddingProvider
	index    VectorIndex
}

// NewRetriever creates a new Retriever instance.
func NewRetriever(embedder EmbeddingProvider, index VectorIndex) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index cannot be nil")
	}

	return &Retriever{
		embedder: embedder,
		index:    index,
	}, nil
}

// Retrieve returns up to k chunks ranked by similarity to query.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	scored, err := r.RetrieveScored(ctx, query, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, len(scored))
	for i, s := range scored {
		chunks[i] = s.Chunk
	}
	return chunks, nil
}

// RetrieveScored is Retrieve with similarity scores.
func (r *Retriever) RetrieveScored(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search for query: %w", err)
	}

	slog.Debug("retrieved chunks", "k", k, "hits", len(results))
	return results, nil
}
