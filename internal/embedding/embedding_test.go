package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/models"
)

type countingEmbedder struct {
	queries int
	docs    [][]float32
	err     error
}

func (c *countingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	c.queries++
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.docs != nil {
		return c.docs, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func TestCachedEmbedderMemoizesQueries(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner, time.Minute, time.Second)

	first, err := cached.EmbedQuery(context.Background(), "baking instructions")
	require.NoError(t, err)
	first[0] = -1 // callers may mutate their copy

	second, err := cached.EmbedQuery(context.Background(), "baking instructions")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.queries)
	assert.Equal(t, float32(len("baking instructions")), second[0])

	cached.Flush()
	_, err = cached.EmbedQuery(context.Background(), "baking instructions")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.queries)
}

func TestGenerateEmbedding(t *testing.T) {
	chunks := []models.Chunk{{Content: "one"}, {Content: "three"}}

	vectors, err := GenerateEmbedding(context.Background(), &countingEmbedder{}, chunks)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(5), vectors[1][0])

	empty, err := GenerateEmbedding(context.Background(), &countingEmbedder{}, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestGenerateEmbeddingCountMismatch(t *testing.T) {
	inner := &countingEmbedder{docs: [][]float32{{1}}}

	_, err := GenerateEmbedding(context.Background(), inner, []models.Chunk{{Content: "a"}, {Content: "b"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbeddingCount))
}

func TestGenerateEmbeddingPropagatesFailure(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("model not found")}

	_, err := GenerateEmbedding(context.Background(), inner, []models.Chunk{{Content: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}
