package api

import (
	"bytes"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown converts an answer to HTML. Raw HTML in the answer is not
// passed through.
func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		log.Warn().Err(err).Msg("Failed to render answer as HTML")
		return ""
	}
	return buf.String()
}
