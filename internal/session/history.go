package session

import (
	"fmt"
	"strings"

	"pdf-chatbot/internal/models"
)

const (
	userPrefix      = "User: "
	assistantPrefix = "Assistant: "
)

// FormatHistory renders turns as alternating "User:" / "Assistant:" lines.
func FormatHistory(turns []models.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, fmt.Sprintf("%s%s\n%s%s", userPrefix, turn.User, assistantPrefix, turn.Bot))
	}
	return strings.Join(lines, "\n")
}

// ParseHistory is the inverse of FormatHistory. Lines that do not start a new
// speaker continue the previous one.
func ParseHistory(text string) []models.Turn {
	var (
		turns   []models.Turn
		current *models.Turn
		inBot   bool
	)
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, userPrefix):
			turns = append(turns, models.Turn{User: strings.TrimPrefix(line, userPrefix)})
			current = &turns[len(turns)-1]
			inBot = false
		case strings.HasPrefix(line, assistantPrefix) && current != nil && !inBot:
			current.Bot = strings.TrimPrefix(line, assistantPrefix)
			inBot = true
		case current != nil && inBot:
			current.Bot += "\n" + line
		case current != nil:
			current.User += "\n" + line
		}
	}
	return turns
}

// PrintHistory renders the whole history for debug dumps.
func PrintHistory(turns []models.Turn) string {
	if len(turns) == 0 {
		return "No conversation history yet."
	}
	var b strings.Builder
	b.WriteString("=== Chat History ===")
	for i, turn := range turns {
		fmt.Fprintf(&b, "\n--- Message %d ---\nUser: %s\nBot : %s", i+1, turn.User, turn.Bot)
	}
	return b.String()
}
