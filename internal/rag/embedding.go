package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/sync/errgroup"
)

// Common errors for embedding operations
var (
	ErrEmptyTexts      = errors.New("no texts provided for embedding")
	ErrMissingAPIKey   = errors.New("embedding API key not set")
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// EmbeddingProvider turns text into vectors. Documents and queries are embedded
// through separate calls so providers that distinguish the two intents can.
type EmbeddingProvider interface {
	// EmbedDocuments returns one vector per text, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Model returns the embedding model identifier
	Model() string
}

// GeminiBaseURL is Gemini's OpenAI-compatible API root.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// DefaultDimension is the truncated output size requested from
// gemini-embedding-001.
const DefaultDimension = 768

// DefaultQueryPrefix marks search queries. The OpenAI-compatible endpoint has
// no task type parameter, so query intent travels in the text itself.
const DefaultQueryPrefix = "task: search result | query: "

// EmbedderConfig configures an OpenAI-compatible embedder.
type EmbedderConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// Dimension requests a reduced output size. 0 keeps the model default.
	Dimension int

	// BatchSize is the number of texts per API request.
	BatchSize int

	// Concurrency bounds the number of in-flight batch requests.
	Concurrency int

	// QueryPrefix is prepended to queries in EmbedQuery. Documents are sent
	// as is.
	QueryPrefix string
}

// DefaultEmbedderConfig returns the Gemini defaults.
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		BaseURL:     GeminiBaseURL,
		Model:       "gemini-embedding-001",
		Dimension:   DefaultDimension,
		BatchSize:   32,
		Concurrency: 4,
		QueryPrefix: DefaultQueryPrefix,
	}
}

// OpenAIEmbedder implements EmbeddingProvider against any OpenAI-compatible
// embeddings endpoint (Gemini by default).
type OpenAIEmbedder struct {
	client openai.Client
	config EmbedderConfig
}

var _ EmbeddingProvider = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder. It does not contact the API.
func NewOpenAIEmbedder(config EmbedderConfig) (*OpenAIEmbedder, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	defaults := DefaultEmbedderConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		config: config,
	}, nil
}

// Model returns the embedding model identifier
func (e *OpenAIEmbedder) Model() string {
	return e.config.Model
}

// EmbedDocuments embeds texts in batches, running up to Concurrency batches
// at once.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}
	return embedInBatches(ctx, texts, e.config.BatchSize, e.config.Concurrency, e.embed)
}

// EmbedQuery embeds a single query string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyTexts
	}
	slog.Debug("embedding query", "model", e.config.Model, "mode", "query")

	vectors, err := e.embed(ctx, []string{e.config.QueryPrefix + text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embed performs one embeddings request.
func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          e.config.Model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if e.config.Dimension > 0 {
		params.Dimensions = openai.Int(int64(e.config.Dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmbeddingFailed, idx)
		}
		// Convert []float64 to []float32
		vec := make([]float32, len(data.Embedding))
		for j, val := range data.Embedding {
			vec[j] = float32(val)
		}
		vectors[idx] = vec
	}
	return vectors, nil
}

// embedInBatches splits texts into batches of batchSize and embeds them with at
// most concurrency requests in flight. Output order matches input order.
func embedInBatches(
	ctx context.Context,
	texts []string,
	batchSize int,
	concurrency int,
	embed func(ctx context.Context, batch []string) ([][]float32, error),
) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	results := make([][]float32, len(texts))

	g, gCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			vectors, err := embed(gCtx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding batch starting at %d: %w", start, err)
			}
			if len(vectors) != end-start {
				return fmt.Errorf("%w: batch starting at %d returned %d vectors for %d texts",
					ErrEmbeddingFailed, start, len(vectors), end-start)
			}
			copy(results[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
