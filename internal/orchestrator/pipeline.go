package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Yates-Labs/ragchat/internal/chat"
	"github.com/Yates-Labs/ragchat/internal/config"
	"github.com/Yates-Labs/ragchat/internal/loader"
	"github.com/Yates-Labs/ragchat/internal/rag"
	"github.com/Yates-Labs/ragchat/internal/session"
)

// Pipeline wires the loader, indexer, retriever, chat model and session
// store from a Config.
type Pipeline struct {
	config *config.Config

	embedder     rag.EmbeddingProvider
	index        rag.VectorIndex
	ocr          loader.OCREngine
	ocrSet       bool
	model        chat.ChatModel
	store        session.Store
	systemPrompt string
	indexOnly    bool

	loader       *loader.Loader
	splitter     *rag.RecursiveSplitter
	retriever    *rag.Retriever
	orchestrator *Orchestrator
}

// Option overrides a collaborator NewPipeline would otherwise build.
type Option func(*Pipeline)

func WithEmbedder(e rag.EmbeddingProvider) Option {
	return func(p *Pipeline) { p.embedder = e }
}

func WithIndex(idx rag.VectorIndex) Option {
	return func(p *Pipeline) { p.index = idx }
}

func WithChatModel(m chat.ChatModel) Option {
	return func(p *Pipeline) { p.model = m }
}

func WithStore(s session.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithOCR sets the OCR engine. A nil engine disables the OCR fallback.
func WithOCR(engine loader.OCREngine) Option {
	return func(p *Pipeline) {
		p.ocr = engine
		p.ocrSet = true
	}
}

// WithSystemPrompt uses prompt instead of reading Config.SystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(p *Pipeline) { p.systemPrompt = prompt }
}

// IndexOnly skips the chat model and system prompt.
func IndexOnly() Option {
	return func(p *Pipeline) { p.indexOnly = true }
}

// NewPipeline validates cfg and then builds every collaborator. Validation
// happens before any client is constructed, so a missing API key never
// reaches the network.
func NewPipeline(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{config: cfg}
	for _, opt := range opts {
		opt(p)
	}

	if !p.indexOnly && p.systemPrompt == "" {
		prompt, err := chat.LoadSystemPrompt(cfg.SystemPrompt)
		if err != nil {
			return nil, &config.ConfigError{Field: "system_prompt", Err: err}
		}
		p.systemPrompt = prompt
	}

	if p.embedder == nil {
		embedder, err := rag.NewOpenAIEmbedder(rag.EmbedderConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.Model.BaseURL,
			Model:       cfg.Model.EmbeddingModel,
			Dimension:   cfg.Model.Dimension,
			BatchSize:   cfg.Model.BatchSize,
			Concurrency: cfg.Model.Concurrency,
			QueryPrefix: cfg.Model.Prefix(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		p.embedder = embedder
	}

	if !p.ocrSet && cfg.OCR.On() {
		p.ocr = loader.NewTesseractOCR(nil, cfg.OCR.Language, cfg.OCR.DPI)
	}
	p.loader = loader.New(loader.DefaultRegistry(p.ocr, loader.WithOCRMinChars(cfg.OCR.MinChars)))
	p.splitter = rag.NewRecursiveSplitter(
		rag.WithChunkSize(cfg.Splitter.ChunkSize),
		rag.WithOverlap(cfg.Splitter.Overlap()),
	)

	if !p.indexOnly && p.model == nil {
		model, err := chat.NewOpenAIChatModel(chat.LLMConfig{
			Model:       cfg.Model.ChatModel,
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxTokens,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.Model.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		p.model = model
	}

	if p.index == nil {
		index, err := openIndex(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p.index = index
	}

	retriever, err := rag.NewRetriever(p.embedder, p.index)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}
	p.retriever = retriever

	if p.indexOnly {
		return p, nil
	}

	if p.store == nil {
		p.store = session.NewMemoryStore()
	}
	p.orchestrator, err = New(retriever, p.model, p.store, p.systemPrompt, cfg.TopK)
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func openIndex(ctx context.Context, cfg *config.Config) (rag.VectorIndex, error) {
	switch cfg.VectorStore.Backend {
	case config.BackendMilvus:
		index, err := rag.NewMilvusIndex(ctx, milvusConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to create vector store: %w", err)
		}
		return index, nil
	default:
		index, err := rag.OpenSQLiteIndex(cfg.PersistDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		return index, nil
	}
}

// milvusConfig overlays the configured Milvus settings on the defaults.
func milvusConfig(cfg *config.Config) rag.MilvusConfig {
	mc := rag.DefaultMilvusConfig()
	m := cfg.VectorStore.Milvus
	if m.Address != "" {
		mc.Address = m.Address
	}
	if m.Collection != "" {
		mc.CollectionName = m.Collection
	}
	if cfg.Model.Dimension > 0 {
		mc.Dimension = cfg.Model.Dimension
	}
	if m.M > 0 {
		mc.M = m.M
	}
	if m.EfConstruction > 0 {
		mc.EfConstruction = m.EfConstruction
	}
	if m.Ef > 0 {
		mc.Ef = m.Ef
	}
	return mc
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() *config.Config {
	return p.config
}

// Loader returns the document loader, whose registry lists supported
// extensions.
func (p *Pipeline) Loader() *loader.Loader {
	return p.loader
}

// BuildIndex indexes Config.DataDir. With rebuild the existing index is
// destroyed first; otherwise chunks are appended.
func (p *Pipeline) BuildIndex(ctx context.Context, rebuild bool) (*rag.IndexResult, error) {
	res, err := rag.BuildIndex(ctx, rag.BuildOptions{
		DataDir:  p.config.DataDir,
		Rebuild:  rebuild,
		Loader:   p.loader,
		Splitter: p.splitter,
		Embedder: p.embedder,
		Index:    p.index,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("index ready", "documents", res.Documents, "chunks", res.Chunks, "total", res.Total)
	return res, nil
}

// Retrieve exposes the retriever for diagnostics.
func (p *Pipeline) Retrieve(ctx context.Context, query string, k int) ([]rag.ScoredChunk, error) {
	if k <= 0 {
		k = p.config.TopK
	}
	return p.retriever.RetrieveScored(ctx, query, k)
}

// Answer runs one conversation turn.
func (p *Pipeline) Answer(ctx context.Context, sessionID, question string) (string, error) {
	if p.orchestrator == nil {
		return "", errNoChatModel
	}
	return p.orchestrator.Answer(ctx, sessionID, question)
}

// AnswerWithSources runs one turn and returns the retrieved chunks with the
// answer, so callers can show them without a second retrieval.
func (p *Pipeline) AnswerWithSources(ctx context.Context, sessionID, question string) (string, []rag.Chunk, error) {
	if p.orchestrator == nil {
		return "", nil, errNoChatModel
	}
	return p.orchestrator.AnswerWithSources(ctx, sessionID, question)
}

var errNoChatModel = errors.New("pipeline was built without a chat model")

// Close releases the vector index.
func (p *Pipeline) Close() error {
	if p.index != nil {
		return p.index.Close()
	}
	return nil
}
