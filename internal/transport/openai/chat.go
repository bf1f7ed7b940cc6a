package openai

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/chat"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// ChatClient is a chat model backend over the chat completions API.
type ChatClient struct {
	client      *openai.Client
	model       string
	temperature float32
	user        string
	provider    string
	logger      *zap.Logger
}

// NewChatClient creates an OpenAI-compatible chat client. A nil temperature
// selects chat.DefaultTemperature.
func NewChatClient(cfg *Config, temperature *float64) *ChatClient {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	t := chat.DefaultTemperature
	if temperature != nil {
		t = *temperature
	}
	return &ChatClient{
		client:      newClient(cfg),
		model:       cfg.Model,
		temperature: wireTemperature(t),
		user:        cfg.User,
		provider:    provider,
		logger:      logger,
	}
}

// Complete sends messages and returns the first choice.
func (c *ChatClient) Complete(ctx context.Context, messages []chat.Message) (chat.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: c.temperature,
		User:        c.user,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return chat.Completion{}, parseAPIError("chat/completions", err)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return chat.Completion{}, fmt.Errorf("empty chat response: %w", domain.ErrBackendRequestFailed)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.provider, c.model).Observe(time.Since(start).Seconds())

	model := resp.Model
	if model == "" {
		model = c.model
	}
	c.logger.Debug("chat completion",
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return chat.Completion{Content: resp.Choices[0].Message.Content, Model: model}, nil
}

// Model returns the configured model name.
func (c *ChatClient) Model() string { return c.model }

// HealthCheck verifies API availability via ListModels.
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return parseAPIError("models", err)
	}
	return nil
}

// wireTemperature maps zero to the smallest positive float32, since the
// request encoder omits a zero temperature and the server would apply its own.
func wireTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
