package parser

import (
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/models"
)

type Chunker struct {
	maxChars     int
	overlapChars int
	minPageChars int
}

func NewChunker(cfg config.RAGConfig) *Chunker {
	return &Chunker{
		maxChars:     cfg.ChunkSize,
		overlapChars: cfg.ChunkOverlap,
		minPageChars: cfg.MinPageChars,
	}
}

// ChunkPages splits every page into overlapping chunks tagged with their
// 1-based page number. Pages with fewer than the minimum number of characters
// are skipped.
func (c *Chunker) ChunkPages(pages []string) []models.Chunk {
	var chunks []models.Chunk
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if len([]rune(page)) < c.minPageChars {
			log.Warn().Int("page", i+1).Msg("Skipping page with too little text")
			continue
		}
		chunks = c.appendChunks(chunks, page, i+1)
	}
	log.Info().Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Chunked document")
	return chunks
}

// ChunkText splits text whose page is unknown.
func (c *Chunker) ChunkText(text string) []models.Chunk {
	return c.appendChunks(nil, text, 0)
}

func (c *Chunker) appendChunks(chunks []models.Chunk, content string, pageNumber int) []models.Chunk {
	for _, part := range chunkContent(content, c.maxChars, c.overlapChars) {
		chunks = append(chunks, models.Chunk{
			Content:    part,
			PageNumber: pageNumber,
			ChunkID:    len(chunks),
		})
	}
	return chunks
}

// chunkContent cuts content into windows of at most maxChars runes. A window
// is ended early at a space, newline or period found in its last tenth, and
// the next one starts overlapChars before that end.
func chunkContent(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	runes := []rune(strings.TrimSpace(content))
	contentLen := len(runes)
	if contentLen == 0 {
		return nil
	}
	if contentLen <= maxChars {
		return []string{string(runes)}
	}

	var chunks []string
	for start := 0; start < contentLen; {
		end := min(start+maxChars, contentLen)

		if end < contentLen {
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == contentLen {
			break
		}
		// step back from where this window really ended
		start = max(end-overlapChars, start+1)
	}
	return chunks
}
