package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/models"
)

var ErrEmbeddingCount = errors.New("embedding count does not match chunk count")

// NewEmbedder creates the configured embedder, wrapped with a per-query
// deadline and a query cache.
func NewEmbedder(llmConfig *config.LLMConfig) (*CachedEmbedder, error) {
	client, err := newClient(llmConfig)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return NewCachedEmbedder(embedder, llmConfig.CacheTTL, llmConfig.CallTimeout), nil
}

func newClient(llmConfig *config.LLMConfig) (embeddings.EmbedderClient, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	switch llmConfig.Provider {
	case "openai":
		llm, err := openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithEmbeddingModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai embedder: %w", err)
		}
		return llm, nil
	case "ollama", "":
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama embedder: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", llmConfig.Provider)
	}
}

// CachedEmbedder memoizes query embeddings. Document embeddings are computed
// once per upload and pass straight through.
type CachedEmbedder struct {
	next    embeddings.Embedder
	cache   *gocache.Cache
	timeout time.Duration
}

var _ embeddings.Embedder = (*CachedEmbedder)(nil)

func NewCachedEmbedder(next embeddings.Embedder, ttl, timeout time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedEmbedder{
		next:    next,
		cache:   gocache.New(ttl, 2*ttl),
		timeout: timeout,
	}
}

func (e *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return cloneVector(v.([]float32)), nil
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	vec, err := e.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, cloneVector(vec), gocache.DefaultExpiration)
	return vec, nil
}

func (e *CachedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.next.EmbedDocuments(ctx, texts)
}

// Flush drops every cached query vector.
func (e *CachedEmbedder) Flush() {
	e.cache.Flush()
}

// GenerateEmbedding embeds every chunk, one vector per chunk in order.
func GenerateEmbedding(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks generated from content")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingCount, len(vectors), len(chunks))
	}
	return vectors, nil
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
