package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/models"
)

// topicEmbedder maps words onto fixed topic axes so similarity is
// predictable. The last axis is a constant bias so no vector is zero.
type topicEmbedder struct {
	failDocs bool
}

var topics = map[string]int{
	"apple": 0, "pie": 0, "recipe": 0, "baking": 0, "instructions": 0, "oven": 0,
	"car": 1, "engine": 1, "repair": 1, "wheel": 1,
	"tax": 2, "invoice": 2,
}

func (topicEmbedder) vector(text string) []float32 {
	v := make([]float32, 4)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if axis, ok := topics[w]; ok {
			v[axis]++
		}
	}
	v[3] = 0.1
	return v
}

func (e topicEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e topicEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.failDocs {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func chunksOf(texts ...string) []models.Chunk {
	out := make([]models.Chunk, len(texts))
	for i, text := range texts {
		out[i] = models.Chunk{Content: text, PageNumber: i + 1, ChunkID: i + 1}
	}
	return out
}

func TestQueryReturnsNearestChunk(t *testing.T) {
	idx, err := Build(context.Background(), chunksOf("apple pie recipe", "car engine repair"), topicEmbedder{})
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), "baking instructions", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "apple pie recipe", results[0].Chunk.Content)
}

func TestQueryRanksAscendingByDistance(t *testing.T) {
	idx, err := Build(context.Background(), chunksOf("tax invoice", "car engine repair", "apple pie recipe"), topicEmbedder{})
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), "engine wheel", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "car engine repair", results[0].Chunk.Content)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestQueryBreaksTiesByDocumentOrder(t *testing.T) {
	idx, err := Build(context.Background(), chunksOf("car wheel", "oven", "engine car", "car repair"), topicEmbedder{})
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), "car", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// three chunks are equidistant from the query; the first two in
	// document order win
	assert.Equal(t, "car wheel", results[0].Chunk.Content)
	assert.Equal(t, "engine car", results[1].Chunk.Content)
}

func TestQueryClampsK(t *testing.T) {
	idx, err := Build(context.Background(), chunksOf("apple pie recipe", "car engine repair"), topicEmbedder{})
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), "recipe", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestEmptyIndex(t *testing.T) {
	idx, err := Build(context.Background(), nil, topicEmbedder{})
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	var missing *Index
	results, err = missing.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	text, err := missing.Search(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.Equal(t, models.NoRelevantInfo, text)
}

func TestSearchJoinsContents(t *testing.T) {
	idx, err := Build(context.Background(), chunksOf("apple pie recipe", "oven baking", "car engine repair"), topicEmbedder{})
	require.NoError(t, err)

	text, err := idx.Search(context.Background(), "apple pie recipe", 2)
	require.NoError(t, err)
	assert.Equal(t, "apple pie recipe\n\noven baking", text)
}

func TestBuildIsAllOrNothing(t *testing.T) {
	idx, err := Build(context.Background(), chunksOf("apple pie recipe"), topicEmbedder{failDocs: true})
	require.Error(t, err)
	assert.Nil(t, idx)
}
