package chromemdb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
)

// VectorDBManager encapsulates an in-memory chromem-go collection. A new
// manager is created for every uploaded document.
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewVectorDBManager creates an in-memory database with one collection that
// embeds query text with embed.
func NewVectorDBManager(collectionName string, embed chromem.EmbeddingFunc) (*VectorDBManager, error) {
	db := chromem.NewDB()
	c, err := db.CreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %v", err)
	}
	return &VectorDBManager{
		db:         db,
		collection: c,
	}, nil
}

// add multiple documents
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	if len(documents) == 0 {
		return nil
	}
	err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (m *VectorDBManager) Count() int {
	return m.collection.Count()
}

// SearchByText embeds query with the collection's embedding function and
// returns the nResults most similar documents. nResults is clamped to the
// collection size; an empty collection yields no results.
func (m *VectorDBManager) SearchByText(ctx context.Context, query string, nResults int) ([]chromem.Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query must be provided")
	}
	nResults = min(nResults, m.collection.Count())
	if nResults <= 0 {
		return nil, nil
	}
	results, err := m.collection.Query(ctx, query, nResults, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	return results, nil
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	err := m.db.DeleteCollection(m.collection.Name)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}
