package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Yates-Labs/ragchat/internal/loader"
)

// DocumentLoader is the part of loader.Loader the indexer needs.
type DocumentLoader interface {
	LoadDir(ctx context.Context, dir string) (*loader.Result, error)
}

// Splitter cuts document text into chunk contents.
type Splitter interface {
	Split(text string) []string
}

// BuildOptions configures an indexing run.
type BuildOptions struct {
	// DataDir is the directory scanned for documents.
	DataDir string

	// Rebuild resets the index before inserting, deleting its persisted data.
	// Otherwise chunks are appended, so re-indexing the same files duplicates them.
	Rebuild bool

	// InsertBatchSize is the number of chunks embedded and inserted per step.
	InsertBatchSize int

	Loader   DocumentLoader
	Splitter Splitter
	Embedder EmbeddingProvider
	Index    VectorIndex
}

// IndexResult summarizes an indexing run.
type IndexResult struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Skipped   []string `json:"skipped,omitempty"`

	// Total is the number of chunks in the index after the run.
	Total int `json:"total"`
}

// DefaultInsertBatchSize is used when BuildOptions.InsertBatchSize is unset.
const DefaultInsertBatchSize = 128

// BuildIndex loads, splits, embeds and stores every document in opts.DataDir.
// The returned error wraps loader.ErrIngestion for extraction failures.
func BuildIndex(ctx context.Context, opts BuildOptions) (*IndexResult, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("loader cannot be nil")
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if opts.Index == nil {
		return nil, fmt.Errorf("vector index cannot be nil")
	}
	if opts.Splitter == nil {
		opts.Splitter = NewRecursiveSplitter()
	}
	if opts.InsertBatchSize <= 0 {
		opts.InsertBatchSize = DefaultInsertBatchSize
	}

	if opts.Rebuild {
		if err := opts.Index.Reset(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset index: %w", err)
		}
	}

	loaded, err := opts.Loader.LoadDir(ctx, opts.DataDir)
	if err != nil {
		return nil, err
	}

	chunks := SplitDocuments(loaded.Documents, opts.Splitter)
	slog.Info("indexing documents",
		"dir", opts.DataDir,
		"documents", len(loaded.Documents),
		"chunks", len(chunks),
		"skipped", len(loaded.Skipped),
		"rebuild", opts.Rebuild)

	for start := 0; start < len(chunks); start += opts.InsertBatchSize {
		end := min(start+opts.InsertBatchSize, len(chunks))
		if err := embedAndStore(ctx, chunks[start:end], opts.Embedder, opts.Index); err != nil {
			return nil, fmt.Errorf("failed to index batch starting at %d: %w", start, err)
		}
	}

	total, err := opts.Index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count indexed chunks: %w", err)
	}

	return &IndexResult{
		Documents: len(loaded.Documents),
		Chunks:    len(chunks),
		Skipped:   loaded.Skipped,
		Total:     total,
	}, nil
}

// SplitDocuments splits each document and tags every chunk with a fresh ID and
// the document's source.
func SplitDocuments(docs []loader.Document, splitter Splitter) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		source := doc.Metadata.Source
		if source == "" {
			source = loader.UnknownSource
		}
		for _, content := range splitter.Split(doc.Content) {
			chunks = append(chunks, Chunk{
				ID:      uuid.NewString(),
				Content: content,
				Source:  source,
			})
		}
	}
	return chunks
}

func embedAndStore(ctx context.Context, chunks []Chunk, embedder EmbeddingProvider, index VectorIndex) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbeddingFailed, len(vectors), len(chunks))
	}

	records := make([]Record, len(chunks))
	for i, c := range chunks {
		records[i] = Record{Chunk: c, Embedding: vectors[i]}
	}
	return index.Add(ctx, records)
}
