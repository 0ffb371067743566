package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/KemboiK/evolve-bot/internal/config"
	"github.com/KemboiK/evolve-bot/internal/llm"
	"github.com/KemboiK/evolve-bot/internal/models"
)

// OpenAI produces replies through an OpenAI-compatible chat completion API.
type OpenAI struct {
	client      llm.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// NewOpenAI wraps client with the configured model parameters and call
// deadline.
func NewOpenAI(client llm.Client, cfg config.LLMConfig, logger *zap.Logger) *OpenAI {
	return &OpenAI{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		timeout:     cfg.Timeout(),
		logger:      logger,
	}
}

// Generate sends the conversation history plus the new message to the
// provider and returns the reply text. The call is bounded by the configured
// timeout; on expiry the error is ErrProviderUnavailable. No lock is held
// across this call.
func (g *OpenAI) Generate(ctx context.Context, history []models.Record, text, name string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := systemPrompt
	if name != "" {
		prompt += " The user prefers to be called " + name + "."
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2*len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt,
	})
	for _, rec := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: rec.InboundText,
		})
		if rec.OutboundText != "" {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: rec.OutboundText,
			})
		}
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", g.classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}
	return content, nil
}

func (g *OpenAI) classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && strings.Contains(code, "content") {
			g.logger.Warn("provider declined request", zap.String("code", code))
			return fmt.Errorf("%w: %s", ErrProviderRejected, code)
		}
		if apiErr.HTTPStatusCode == http.StatusBadRequest && strings.Contains(apiErr.Message, "filtered") {
			return fmt.Errorf("%w: %s", ErrProviderRejected, apiErr.Message)
		}
	}
	g.logger.Warn("provider call failed", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
