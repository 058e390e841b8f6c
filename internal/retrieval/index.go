// Package retrieval builds and queries the per-upload semantic index.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdf-chatbot/internal/chromemdb"
	"pdf-chatbot/internal/embedding"
	"pdf-chatbot/internal/models"
)

const (
	collectionName = "document_chunks"
	orderKey       = "order"
	pageKey        = "page"
)

// Result is a chunk returned by a query with its cosine distance.
type Result struct {
	Chunk    models.Chunk
	Distance float32
	order    int
}

// Index is an immutable nearest-neighbor index over one document's chunks.
// A nil *Index behaves as an empty index.
type Index struct {
	store  *chromemdb.VectorDBManager
	chunks []models.Chunk
}

// Build embeds every chunk and loads the vectors into a fresh collection.
// Either the whole index is returned or an error; nothing is partially
// populated.
func Build(ctx context.Context, chunks []models.Chunk, embedder embeddings.Embedder) (*Index, error) {
	store, err := chromemdb.NewVectorDBManager(collectionName, func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	})
	if err != nil {
		return nil, err
	}

	vectors, err := embedding.GenerateEmbedding(ctx, embedder, chunks)
	if err != nil {
		return nil, err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("chunk-%d", i),
			Content: chunk.Content,
			Metadata: map[string]string{
				orderKey: strconv.Itoa(i),
				pageKey:  strconv.Itoa(chunk.PageNumber),
			},
			Embedding: vectors[i],
		}
	}
	if err := store.CreateDocs(ctx, docs); err != nil {
		return nil, err
	}

	kept := make([]models.Chunk, len(chunks))
	copy(kept, chunks)
	log.Info().Int("chunks", store.Count()).Msg("Built retrieval index")
	return &Index{store: store, chunks: kept}, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.chunks)
}

// Chunks returns a copy of the indexed chunks in document order.
func (idx *Index) Chunks() []models.Chunk {
	if idx == nil {
		return nil
	}
	out := make([]models.Chunk, len(idx.chunks))
	copy(out, idx.chunks)
	return out
}

// Query returns the k chunks nearest to text, ascending by distance, ties
// broken by document order. An empty index returns an empty list.
//
// Every chunk is scored so the tie-break is exact at the k boundary; a
// single document keeps this cheap.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if idx.Len() == 0 || k <= 0 || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	hits, err := idx.store.SearchByText(ctx, text, idx.Len())
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		order, err := strconv.Atoi(hit.Metadata[orderKey])
		if err != nil || order < 0 || order >= len(idx.chunks) {
			return nil, fmt.Errorf("corrupt index entry %s", hit.ID)
		}
		results = append(results, Result{
			Chunk:    idx.chunks[order],
			Distance: 1 - hit.Similarity,
			order:    order,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].order < results[j].order
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Search returns the contents of the k nearest chunks joined by blank lines,
// or models.NoRelevantInfo when nothing matches.
func (idx *Index) Search(ctx context.Context, text string, k int) (string, error) {
	results, err := idx.Query(ctx, text, k)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return models.NoRelevantInfo, nil
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = strings.TrimSpace(r.Chunk.Content)
	}
	return strings.Join(parts, models.ContextSeparator), nil
}

// Close releases the underlying collection.
func (idx *Index) Close() error {
	if idx == nil || idx.store == nil {
		return nil
	}
	return idx.store.DeleteCollection()
}
