package models

import (
	"strconv"
	"strings"
)

// Chunk is a retrieval unit cut from the document text. Page 0 means the
// page is unknown.
type Chunk struct {
	Content    string `json:"content"`
	PageNumber int    `json:"page"`
	ChunkID    int    `json:"chunk_id"`
}

func (c Chunk) PageLabel() string {
	if c.PageNumber <= 0 {
		return "unknown"
	}
	return strconv.Itoa(c.PageNumber)
}

// Turn is one question/answer pair of the conversation.
type Turn struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// Intent is the classified category of a question.
type Intent string

const (
	IntentPageStats       Intent = "page stats"
	IntentPageInfo        Intent = "page info"
	IntentDocumentContent Intent = "document content"
	IntentSummarization   Intent = "summarization"
	IntentUnknown         Intent = "unknown"
)

var knownIntents = []Intent{
	IntentPageStats,
	IntentPageInfo,
	IntentDocumentContent,
	IntentSummarization,
	IntentUnknown,
}

// ParseIntent maps raw classifier output onto an Intent. Output is trimmed and
// lower-cased; surrounding quotes, backticks and periods are dropped in
// any order and '_' or '-' separators are read as spaces, so "Page_Stats." and
// "page-stats" both map to IntentPageStats. Anything else is IntentUnknown.
func ParseIntent(raw string) Intent {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "\"'`. ")
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	for _, intent := range knownIntents {
		if s == string(intent) {
			return intent
		}
	}
	return IntentUnknown
}

// ParseYesNo reports whether classifier output is an affirmative answer.
func ParseYesNo(raw string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "yes")
}

// Route names the path the router used to produce an answer.
type Route string

const (
	RouteMemory    Route = "memory"
	RouteStats     Route = "page_stats"
	RouteAgent     Route = "agent"
	RouteRetrieval Route = "retrieval"
	RouteApology   Route = "apology"
)

type PromptResponse struct {
	Query   string
	Source  string
	Content string
	Route   Route
}
