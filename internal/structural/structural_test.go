package structural

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/parser"
)

func TestCountStats(t *testing.T) {
	stats := CountStats("Hello world. Bye!\n\nNext paragraph.", 1)

	assert.Equal(t, Stats{Pages: 1, Words: 5, Sentences: 3, Paragraphs: 2}, stats)
}

func TestDocumentStats(t *testing.T) {
	got := DocumentStats("One. Two?\n  \nThree!", 4)

	assert.Equal(t, "The document contains:\n- 4 pages\n- 3 words\n- 3 sentences\n- 2 paragraphs", got)
}

func TestCountStatsEmpty(t *testing.T) {
	assert.Equal(t, Stats{Pages: 0}, CountStats("", 0))
}

func TestParsePageNumber(t *testing.T) {
	tests := []struct {
		query string
		page  int
		ok    bool
	}{
		{"show me page 3", 3, true},
		{"What is on PAGE12?", 12, true},
		{"page   7 please", 7, true},
		{"how many pages are there", 0, false},
		{"summarize the document", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			page, ok := ParsePageNumber(tt.query)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.page, page)
		})
	}
}

func TestPageLookupOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("first page\fsecond page"), 0o644))

	lookup := NewPageLookup(nil)

	got := lookup.Lookup("show me page 3", path)
	assert.Equal(t, "Page 3 is out of range (max page: 2).", got)
	assert.Contains(t, got, "2")

	assert.Equal(t, "second page", lookup.Lookup("show me page 2", path))
}

func TestPageLookupMessages(t *testing.T) {
	extractor := PageExtractorFunc(func(path string, page int) (string, int, error) {
		switch page {
		case 1:
			return "", 3, nil
		case 2:
			return "", 3, errors.New("corrupt stream")
		case 9:
			return "", 3, &parser.PageOutOfRangeError{Page: page, Total: 3}
		}
		return "content", 3, nil
	})
	lookup := NewPageLookup(extractor)

	assert.Equal(t, "Please specify a page number.", lookup.Lookup("what is this about", "doc.pdf"))
	assert.Equal(t, "Page 1 is empty.", lookup.Lookup("page 1", "doc.pdf"))
	assert.Equal(t, "Failed to extract text from page 2: corrupt stream", lookup.Lookup("page 2", "doc.pdf"))
	assert.Equal(t, "Page 9 is out of range (max page: 3).", lookup.Lookup("page 9", "doc.pdf"))
	assert.Equal(t, "content", lookup.Lookup("page 3", "doc.pdf"))
}
