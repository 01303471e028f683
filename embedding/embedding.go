// Package embedding wraps tmc/langchaingo's embedder abstraction behind a
// narrow provider interface used by the Clinical AI agent's
// search_knowledge node (SPEC_FULL.md §4.8) to turn free text into vectors
// before querying the vectorstore package.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider generates vector embeddings for text.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name identifies the underlying embedding model for logging/metrics.
	Name() string

	// Dimension returns the length of vectors this provider produces.
	Dimension() int
}

// langchainProvider adapts a langchaingo embeddings.Embedder to Provider.
type langchainProvider struct {
	embedder  embeddings.Embedder
	name      string
	dimension int
}

var _ Provider = (*langchainProvider)(nil)

// New wraps an existing langchaingo embedder. Use this to plug in any
// langchaingo-supported backend (OpenAI, Ollama, Vertex, ...) uniformly.
func New(embedder embeddings.Embedder, name string, dimension int) (Provider, error) {
	if embedder == nil {
		return nil, errors.New("embedding: embedder is required")
	}
	if dimension <= 0 {
		return nil, errors.New("embedding: dimension must be positive")
	}
	return &langchainProvider{embedder: embedder, name: name, dimension: dimension}, nil
}

// NewOpenAI builds a langchaingo-backed provider using OpenAI's embedding
// models. dimension must match the configured model (1536 for
// text-embedding-3-small, 3072 for text-embedding-3-large).
func NewOpenAI(apiKey, model string, dimension int) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New("embedding: OpenAI API key is required")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	llm, err := openai.New(openai.WithToken(apiKey), openai.WithEmbeddingModel(model))
	if err != nil {
		return nil, fmt.Errorf("embedding: construct openai llm: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("embedding: construct embedder: %w", err)
	}
	return New(embedder, "openai:"+model, dimension)
}

func (p *langchainProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding: embed query: %w", err)
	}
	return vec, nil
}

func (p *langchainProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding: embed documents: %w", err)
	}
	return vecs, nil
}

func (p *langchainProvider) Name() string {
	return p.name
}

func (p *langchainProvider) Dimension() int {
	return p.dimension
}
