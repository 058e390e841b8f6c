// Package classifier maps questions onto intents and decides whether they
// need earlier conversation to be answered. Model failures never surface:
// they degrade to IntentUnknown and "no".
package classifier

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pdf-chatbot/internal/llmservice"
	"pdf-chatbot/internal/models"
)

type IntentClassifier struct {
	llm llmservice.LanguageModel
}

func NewIntentClassifier(llm llmservice.LanguageModel) *IntentClassifier {
	return &IntentClassifier{llm: llm}
}

func (c *IntentClassifier) Classify(ctx context.Context, question string) models.Intent {
	out, err := c.llm.Invoke(ctx, fmt.Sprintf(models.IntentPromptTemplate, question))
	if err != nil {
		log.Warn().Err(err).Str("stage", "intent").Msg("Intent classification failed, using unknown")
		return models.IntentUnknown
	}
	intent := models.ParseIntent(out)
	log.Debug().Str("raw", out).Str("intent", string(intent)).Msg("Classified intent")
	return intent
}

type MemoryClassifier struct {
	llm llmservice.LanguageModel
}

func NewMemoryClassifier(llm llmservice.LanguageModel) *MemoryClassifier {
	return &MemoryClassifier{llm: llm}
}

// NeedsMemory reports whether the question refers back to the conversation.
func (c *MemoryClassifier) NeedsMemory(ctx context.Context, question string) bool {
	out, err := c.llm.Invoke(ctx, fmt.Sprintf(models.MemoryCheckPromptTemplate, question))
	if err != nil {
		log.Warn().Err(err).Str("stage", "memory_check").Msg("Memory classification failed, using no")
		return false
	}
	needs := models.ParseYesNo(out)
	log.Debug().Str("raw", out).Bool("needs_memory", needs).Msg("Classified memory dependence")
	return needs
}
