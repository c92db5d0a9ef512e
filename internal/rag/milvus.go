package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Common errors for Milvus operations
var (
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert records")
	ErrSearchFailed     = errors.New("failed to search vectors")
)

// Milvus field names.
const (
	milvusFieldChunkID   = "chunk_id"
	milvusFieldSource    = "source"
	milvusFieldContent   = "content"
	milvusFieldEmbedding = "embedding"
)

// MilvusConfig holds configuration for Milvus connection and collection
type MilvusConfig struct {
	Address        string // Milvus server address (e.g., "localhost:19530")
	CollectionName string // Name of the collection
	Dimension      int    // Vector dimension (DefaultDimension for gemini-embedding-001)

	// HNSW index parameters
	M              int // HNSW M parameter (default: 16)
	EfConstruction int // HNSW efConstruction (default: 256)
	Ef             int // HNSW search ef (default: 64)
}

// DefaultMilvusConfig returns the connection and HNSW defaults.
func DefaultMilvusConfig() MilvusConfig {
	return MilvusConfig{
		Address:        "localhost:19530",
		CollectionName: "ragchat_chunks",
		Dimension:      DefaultDimension,
		M:              16,
		EfConstruction: 256,
		Ef:             64,
	}
}

// MilvusIndex implements VectorIndex on a Milvus collection with an HNSW
// cosine index. Tie order among equal scores is whatever Milvus returns.
type MilvusIndex struct {
	client client.Client
	config MilvusConfig
}

var _ VectorIndex = (*MilvusIndex)(nil)

// NewMilvusIndex connects to Milvus and ensures the collection exists with proper schema
func NewMilvusIndex(ctx context.Context, config MilvusConfig) (*MilvusIndex, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}
	if config.Ef <= 0 {
		config.Ef = 64
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	idx := &MilvusIndex{
		client: c,
		config: config,
	}

	if err := idx.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return idx, nil
}

// chunkSchema describes the collection layout for chunk embeddings.
func chunkSchema(name string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: name,
		AutoID:         true,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     true,
			},
			{
				Name:       milvusFieldChunkID,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       milvusFieldSource,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "1024"},
			},
			{
				Name:       milvusFieldContent,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "65535"},
			},
			{
				Name:       milvusFieldEmbedding,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
		},
	}
}

// ensureCollection creates the collection with schema if it doesn't exist
func (m *MilvusIndex) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !has {
		schema := chunkSchema(m.config.CollectionName, m.config.Dimension)
		if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
		if err != nil {
			return fmt.Errorf("failed to create index config: %w", err)
		}
		if err := m.client.CreateIndex(ctx, m.config.CollectionName, milvusFieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Load collection into memory
	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// Add inserts records column-wise and flushes them.
func (m *MilvusIndex) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	sources := make([]string, len(records))
	contents := make([]string, len(records))
	embeddings := make([][]float32, len(records))

	for i, r := range records {
		if len(r.Embedding) != m.config.Dimension {
			return fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(r.Embedding))
		}
		ids[i] = r.ID
		sources[i] = r.Source
		contents[i] = r.Content
		embeddings[i] = r.Embedding
	}

	columns := []entity.Column{
		entity.NewColumnVarChar(milvusFieldChunkID, ids),
		entity.NewColumnVarChar(milvusFieldSource, sources),
		entity.NewColumnVarChar(milvusFieldContent, contents),
		entity.NewColumnFloatVector(milvusFieldEmbedding, m.config.Dimension, embeddings),
	}

	if _, err := m.client.Insert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	// Flush to ensure data is persisted
	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush data: %w", err)
	}

	return nil
}

// Search performs top-K similarity search
func (m *MilvusIndex) Search(ctx context.Context, query []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(query))
	}

	sp, err := entity.NewIndexHNSWSearchParam(m.config.Ef)
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		"",  // no filter
		[]string{milvusFieldChunkID, milvusFieldSource, milvusFieldContent},
		[]entity.Vector{entity.FloatVector(query)},
		milvusFieldEmbedding,
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	if len(results) == 0 {
		return []ScoredChunk{}, nil
	}

	return parseSearchResult(results[0])
}

// parseSearchResult converts one Milvus result set into scored chunks.
func parseSearchResult(res client.SearchResult) ([]ScoredChunk, error) {
	chunks := make([]ScoredChunk, res.ResultCount)
	for i := range chunks {
		chunks[i].Score = res.Scores[i]
	}

	for _, field := range res.Fields {
		col, ok := field.(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		data := col.Data()
		if len(data) < res.ResultCount {
			return nil, fmt.Errorf("%w: column %s has %d values for %d results",
				ErrSearchFailed, field.Name(), len(data), res.ResultCount)
		}
		for i := range chunks {
			switch field.Name() {
			case milvusFieldChunkID:
				chunks[i].ID = data[i]
			case milvusFieldSource:
				chunks[i].Source = data[i]
			case milvusFieldContent:
				chunks[i].Content = data[i]
			}
		}
	}

	return chunks, nil
}

// Count returns the collection row count.
func (m *MilvusIndex) Count(ctx context.Context) (int, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.config.CollectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get stats: %w", err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("parsing row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

// Reset drops the collection and recreates it empty.
func (m *MilvusIndex) Reset(ctx context.Context) error {
	if err := m.client.DropCollection(ctx, m.config.CollectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	slog.Info("collection dropped for rebuild", "collection", m.config.CollectionName)
	return m.ensureCollection(ctx)
}

// Close releases resources and closes the Milvus connection
func (m *MilvusIndex) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
