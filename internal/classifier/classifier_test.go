package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/models"
)

type stubLLM struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubLLM) Invoke(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func TestIntentClassifier(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  models.Intent
	}{
		{"exact label", "page stats", nil, models.IntentPageStats},
		{"mixed case", "  Summarization \n", nil, models.IntentSummarization},
		{"quoted", `"page info"`, nil, models.IntentPageInfo},
		{"sentence", "The intent is document content", nil, models.IntentUnknown},
		{"model error", "", errors.New("timeout"), models.IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubLLM{reply: tt.reply, err: tt.err}
			got := NewIntentClassifier(llm).Classify(context.Background(), "how many pages?")

			assert.Equal(t, tt.want, got)
			require.Len(t, llm.prompts, 1)
			assert.Contains(t, llm.prompts[0], "Question: how many pages?")
		})
	}
}

func TestMemoryClassifier(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  bool
	}{
		{"yes", "yes", nil, true},
		{"yes with reason", "Yes, it refers to the previous answer.", nil, true},
		{"no", "no", nil, false},
		{"other", "maybe", nil, false},
		{"model error", "yes", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubLLM{reply: tt.reply, err: tt.err}
			got := NewMemoryClassifier(llm).NeedsMemory(context.Background(), "what did you just say?")

			assert.Equal(t, tt.want, got)
			require.Len(t, llm.prompts, 1)
			assert.Contains(t, llm.prompts[0], `"what did you just say?"`)
		})
	}
}
