package rag

import (
	"context"
	"os"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// TestMilvusIndex_EmptyRecords tests that empty records are handled gracefully (no-op)
func TestMilvusIndex_EmptyRecords(t *testing.T) {
	idx := &MilvusIndex{config: DefaultMilvusConfig()}

	if err := idx.Add(context.Background(), nil); err != nil {
		t.Errorf("Expected nil for empty records, got: %v", err)
	}
}

func TestMilvusIndex_DimensionMismatch(t *testing.T) {
	idx := &MilvusIndex{config: DefaultMilvusConfig()}

	err := idx.Add(context.Background(), []Record{{Chunk: Chunk{ID: "a"}, Embedding: []float32{1, 2}}})
	if err == nil {
		t.Fatal("expected dimension error")
	}

	if _, err := idx.Search(context.Background(), []float32{1}, 3); err == nil {
		t.Fatal("expected dimension error on search")
	}
}

// TestDefaultMilvusConfig tests default configuration
func TestDefaultMilvusConfig(t *testing.T) {
	config := DefaultMilvusConfig()

	if config.Address != "localhost:19530" {
		t.Errorf("Expected default address, got %s", config.Address)
	}
	if config.CollectionName != "ragchat_chunks" {
		t.Errorf("Expected collection ragchat_chunks, got %s", config.CollectionName)
	}
	if config.Dimension != 768 {
		t.Errorf("Expected dimension 768, got %d", config.Dimension)
	}
	if config.M != 16 || config.EfConstruction != 256 {
		t.Errorf("unexpected HNSW params M=%d efConstruction=%d", config.M, config.EfConstruction)
	}
}

func TestChunkSchema(t *testing.T) {
	schema := chunkSchema("c", 8)
	if schema.CollectionName != "c" {
		t.Errorf("collection name = %q", schema.CollectionName)
	}

	fields := map[string]*entity.Field{}
	for _, f := range schema.Fields {
		fields[f.Name] = f
	}
	for _, name := range []string{"id", milvusFieldChunkID, milvusFieldSource, milvusFieldContent, milvusFieldEmbedding} {
		if fields[name] == nil {
			t.Errorf("missing field %s", name)
		}
	}
	if got := fields[milvusFieldEmbedding].TypeParams["dim"]; got != "8" {
		t.Errorf("embedding dim = %q, want 8", got)
	}
	if !fields["id"].PrimaryKey {
		t.Error("id must be the primary key")
	}
}

func TestParseSearchResult(t *testing.T) {
	res := client.SearchResult{
		ResultCount: 2,
		Scores:      []float32{0.9, 0.5},
		Fields: client.ResultSet{
			entity.NewColumnVarChar(milvusFieldChunkID, []string{"a", "b"}),
			entity.NewColumnVarChar(milvusFieldSource, []string{"x.txt", "y.txt"}),
			entity.NewColumnVarChar(milvusFieldContent, []string{"uno", "dos"}),
		},
	}

	chunks, err := parseSearchResult(res)
	if err != nil {
		t.Fatalf("parseSearchResult: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != "a" || chunks[0].Source != "x.txt" || chunks[0].Content != "uno" || chunks[0].Score != 0.9 {
		t.Errorf("unexpected first chunk: %+v", chunks[0])
	}
	if chunks[1].ID != "b" || chunks[1].Score != 0.5 {
		t.Errorf("unexpected second chunk: %+v", chunks[1])
	}
}

// Integration test: requires a running Milvus at MILVUS_ADDRESS.
func TestMilvusIndex_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	if os.Getenv("MILVUS_ADDRESS") == "" {
		t.Skip("MILVUS_ADDRESS not set")
	}

	ctx := context.Background()
	config := DefaultMilvusConfig()
	config.Address = os.Getenv("MILVUS_ADDRESS")
	config.Dimension = 4
	config.CollectionName = "ragchat_test_integration"

	idx, err := NewMilvusIndex(ctx, config)
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	defer idx.Close()

	if err := idx.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	records := []Record{
		{Chunk: Chunk{ID: "1", Source: "a.txt", Content: "uno"}, Embedding: []float32{1, 0, 0, 0}},
		{Chunk: Chunk{ID: "2", Source: "b.txt", Content: "dos"}, Embedding: []float32{0, 1, 0, 0}},
	}
	if err := idx.Add(ctx, records); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := idx.Search(ctx, []float32{1, 0.1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "1" {
		t.Errorf("unexpected results: %+v", results)
	}
}
