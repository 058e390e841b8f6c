package agent

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/tools"
)

const (
	DocumentSearchName = "DocumentSearch"
	PageInspectorName  = "PageInspector"
)

// Searcher is the retrieval capability behind DocumentSearch.
type Searcher interface {
	Search(ctx context.Context, text string, k int) (string, error)
}

// PageReader is the page lookup capability behind PageInspector.
type PageReader interface {
	Lookup(query, sourcePath string) string
}

type DocumentSearch struct {
	index Searcher
	topK  int
}

var _ tools.Tool = (*DocumentSearch)(nil)

func NewDocumentSearch(index Searcher, topK int) *DocumentSearch {
	return &DocumentSearch{index: index, topK: topK}
}

func (t *DocumentSearch) Name() string { return DocumentSearchName }

func (t *DocumentSearch) Description() string {
	return "Useful for answering general questions about the content of the document. Input is a search query."
}

func (t *DocumentSearch) Call(ctx context.Context, input string) (string, error) {
	return t.index.Search(ctx, input, t.topK)
}

type PageInspector struct {
	pages      PageReader
	sourcePath string
}

var _ tools.Tool = (*PageInspector)(nil)

func NewPageInspector(pages PageReader, sourcePath string) *PageInspector {
	return &PageInspector{pages: pages, sourcePath: sourcePath}
}

func (t *PageInspector) Name() string { return PageInspectorName }

func (t *PageInspector) Description() string {
	return `Useful for reading a specific page of the document. Input should mention the page, for example "page 3".`
}

func (t *PageInspector) Call(_ context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if isDigits(input) {
		input = "page " + input
	}
	return t.pages.Lookup(input, t.sourcePath), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
