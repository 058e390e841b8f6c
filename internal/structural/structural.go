package structural

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/parser"
)

var (
	pageNumberRe = regexp.MustCompile(models.PageNumberRegex)
	paragraphRe  = regexp.MustCompile(models.ParagraphRegex)
	sentenceRe   = regexp.MustCompile(models.SentenceRegex)
)

type Stats struct {
	Pages      int
	Words      int
	Sentences  int
	Paragraphs int
}

func (s Stats) String() string {
	return fmt.Sprintf(models.DocumentStatsFormat, s.Pages, s.Words, s.Sentences, s.Paragraphs)
}

// CountStats counts whitespace-delimited words, sentence terminators and
// blank-line separated paragraphs of text.
func CountStats(text string, pageCount int) Stats {
	stats := Stats{
		Pages:     pageCount,
		Words:     len(strings.Fields(text)),
		Sentences: len(sentenceRe.FindAllStringIndex(text, -1)),
	}
	for _, block := range paragraphRe.Split(text, -1) {
		if strings.TrimSpace(block) != "" {
			stats.Paragraphs++
		}
	}
	return stats
}

// DocumentStats renders the statistics answer for the document.
func DocumentStats(text string, pageCount int) string {
	return CountStats(text, pageCount).String()
}

// ParsePageNumber finds the first "page N" reference in query.
func ParsePageNumber(query string) (int, bool) {
	match := pageNumberRe.FindStringSubmatch(strings.ToLower(query))
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// PageExtractor reads one 1-based page of a stored document and reports the
// document's page count.
type PageExtractor interface {
	ExtractPage(path string, page int) (string, int, error)
}

type PageExtractorFunc func(path string, page int) (string, int, error)

func (f PageExtractorFunc) ExtractPage(path string, page int) (string, int, error) {
	return f(path, page)
}

// PageLookup answers "page N" questions straight from the source file,
// independent of the retrieval index.
type PageLookup struct {
	extractor PageExtractor
}

func NewPageLookup(extractor PageExtractor) *PageLookup {
	if extractor == nil {
		extractor = PageExtractorFunc(parser.ExtractPage)
	}
	return &PageLookup{extractor: extractor}
}

func (p *PageLookup) Lookup(query, sourcePath string) string {
	page, ok := ParsePageNumber(query)
	if !ok {
		return models.SpecifyPageNumber
	}

	text, total, err := p.extractor.ExtractPage(sourcePath, page)
	if err != nil {
		if errors.Is(err, parser.ErrPageOutOfRange) {
			return fmt.Sprintf(models.PageRangeTemplate, page, total)
		}
		log.Error().Err(err).Int("page", page).Str("source", sourcePath).Msg("Page lookup failed")
		return fmt.Sprintf(models.PageFailedTemplate, page, err)
	}
	if text == "" {
		return fmt.Sprintf(models.PageEmptyTemplate, page)
	}
	return text
}
