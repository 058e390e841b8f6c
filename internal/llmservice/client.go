package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/models"
)

const defaultCallTimeout = 60 * time.Second

var ErrEmptyResponse = errors.New("empty response from model")

// LanguageModel is the prompt-in, text-out contract used by the classifiers,
// the router and the agent.
type LanguageModel interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Client adapts a langchaingo model to LanguageModel. Every call gets its own
// deadline so a hung backend cannot stall a request.
type Client struct {
	llm         llms.Model
	temperature float64
	timeout     time.Duration
	thinkRe     *regexp.Regexp
}

var _ LanguageModel = (*Client)(nil)

// New builds the chat model described by llmConfig.
func New(llmConfig *config.LLMConfig) (*Client, error) {
	llm, err := NewModel(llmConfig)
	if err != nil {
		return nil, err
	}
	return NewWithModel(llm, llmConfig), nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(llm llms.Model, llmConfig *config.LLMConfig) *Client {
	timeout := llmConfig.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{
		llm:         llm,
		temperature: llmConfig.Temperature,
		timeout:     timeout,
		thinkRe:     regexp.MustCompile(models.ThinkTag),
	}
}

// NewModel creates the langchaingo backend for the configured provider.
func NewModel(llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Msg("Creating language model")
	switch llmConfig.Provider {
	case "openai":
		llm, err := openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai model: %w", err)
		}
		return llm, nil
	case "ollama", "":
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama model: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", llmConfig.Provider)
	}
}

// Invoke sends prompt as a single human message and returns the trimmed
// reply with any <think> block removed.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgContent := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	res, err := GenerateContent(ctx, c.llm, nil, msgContent, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 || res.Choices[0] == nil {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(c.thinkRe.ReplaceAllString(res.Choices[0].Content, "")), nil
}

// call llm
func GenerateContent(ctx context.Context, llm llms.Model, tools []llms.Tool, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(tools) > 0 {
		options = append(options, llms.WithTools(tools))
	}
	res, err := llm.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	return res, nil
}
