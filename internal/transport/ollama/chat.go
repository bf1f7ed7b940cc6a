package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain/chat"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Chat defaults.
const (
	DefaultChatModel   = "llama3.1:8b"
	DefaultChatTimeout = 300 * time.Second
	DefaultTemperature = chat.DefaultTemperature
	DefaultNumCtx      = 8192
)

const chatPath = "/api/chat"

// replyParser extracts the answer text from one response shape.
type replyParser struct {
	name  string
	parse func(body []byte) (string, bool)
}

// replyParsers are tried in order. A field that is present wins even when its
// text is empty. The last one always succeeds with the raw body.
var replyParsers = []replyParser{
	{name: "message", parse: func(body []byte) (string, bool) {
		var r struct {
			Message *struct {
				Content *string `json:"content"`
			} `json:"message"`
		}
		if json.Unmarshal(body, &r) != nil || r.Message == nil {
			return "", false
		}
		if r.Message.Content == nil {
			return "", true
		}
		return *r.Message.Content, true
	}},
	{name: "content", parse: func(body []byte) (string, bool) {
		var r struct {
			Content *string `json:"content"`
		}
		if json.Unmarshal(body, &r) != nil || r.Content == nil {
			return "", false
		}
		return *r.Content, true
	}},
	{name: "raw", parse: func(body []byte) (string, bool) {
		return strings.TrimSpace(string(body)), true
	}},
}

// ChatClient calls Ollama's /api/chat endpoint without streaming.
type ChatClient struct {
	client      *client
	model       string
	temperature float64
	numCtx      int
	logger      *zap.Logger
}

// ChatConfig holds the Ollama chat settings.
type ChatConfig struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature *float64
	NumCtx      int
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// NewChatClient creates an Ollama chat client.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	c := &ChatClient{
		client:      newClient(cfg.BaseURL, timeout, cfg.HTTPClient),
		model:       cfg.Model,
		temperature: DefaultTemperature,
		numCtx:      cfg.NumCtx,
		logger:      cfg.Logger,
	}
	if c.model == "" {
		c.model = DefaultChatModel
	}
	if cfg.Temperature != nil {
		c.temperature = *cfg.Temperature
	}
	if c.numCtx <= 0 {
		c.numCtx = DefaultNumCtx
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  chatOptions    `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
}

// Complete sends messages and returns the model's answer.
func (c *ChatClient) Complete(ctx context.Context, messages []chat.Message) (chat.Completion, error) {
	start := time.Now()

	body, err := c.client.postJSON(ctx, chatPath, chatRequest{
		Model:    c.model,
		Messages: messages,
		Options:  chatOptions{Temperature: c.temperature, NumCtx: c.numCtx},
	})
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("ollama", c.model, "error").Inc()
		return chat.Completion{}, err
	}

	metrics.LLMRequestsTotal.WithLabelValues("ollama", c.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues("ollama", c.model).Observe(time.Since(start).Seconds())

	return chat.Completion{Content: c.parseReply(body), Model: c.model}, nil
}

func (c *ChatClient) parseReply(body []byte) string {
	for i, p := range replyParsers {
		text, ok := p.parse(body)
		if !ok {
			continue
		}
		if i > 0 {
			metrics.LLMParseFallbackTotal.WithLabelValues(p.name).Inc()
			c.logger.Debug("chat reply decoded by fallback strategy", zap.String("strategy", p.name))
		}
		return text
	}
	return ""
}

// Model returns the configured model name.
func (c *ChatClient) Model() string { return c.model }

// HealthCheck verifies the server answers on /api/tags.
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	_, err := c.client.get(ctx, "/api/tags")
	return err
}
