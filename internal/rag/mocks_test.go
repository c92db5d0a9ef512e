package rag

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
)

// hashEmbedder is a deterministic bag-of-words embedder for tests.
type hashEmbedder struct {
	dim int

	mu           sync.Mutex
	documentHits int
	queryHits    int
	err          error
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{dim: 64}
}

func (h *hashEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dim)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ' ' || r == '.' || r == ',' || r == '?' || r == '¿' || r == '!' || r == '¡'
	}) {
		f := fnv.New32a()
		f.Write([]byte(word))
		v[f.Sum32()%uint32(h.dim)]++
	}
	// Keep every vector non-zero.
	v[h.dim-1] += 0.01
	return v
}

func (h *hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	h.documentHits++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	h.queryHits++
	return h.vector(text), nil
}

func (h *hashEmbedder) Model() string { return "hash" }

// mockIndex implements VectorIndex with func fields for failure injection.
type mockIndex struct {
	records    []Record
	addFunc    func(ctx context.Context, records []Record) error
	searchFunc func(ctx context.Context, query []float32, k int) ([]ScoredChunk, error)
	resets     int
}

func (m *mockIndex) Add(ctx context.Context, records []Record) error {
	if m.addFunc != nil {
		return m.addFunc(ctx, records)
	}
	m.records = append(m.records, records...)
	return nil
}

func (m *mockIndex) Search(ctx context.Context, query []float32, k int) ([]ScoredChunk, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, k)
	}
	var out []ScoredChunk
	for _, r := range m.records {
		if len(out) == k {
			break
		}
		out = append(out, ScoredChunk{Chunk: r.Chunk, Score: 1})
	}
	return out, nil
}

func (m *mockIndex) Count(context.Context) (int, error) { return len(m.records), nil }

func (m *mockIndex) Reset(context.Context) error {
	m.resets++
	m.records = nil
	return nil
}

func (m *mockIndex) Close() error { return nil }
