package ragchat

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Storage drivers.
const (
	driverRedis  = "redis"
	driverValkey = "valkey"
	driverBolt   = "bolt"
)

type providerConfig struct {
	provider   domain.Provider
	baseURL    string
	apiKey     string
	embedModel string
	chatModel  string
}

type clientConfig struct {
	driver   string
	addrs    []string
	password string
	boltPath string

	provider  *providerConfig
	embedder  Embedder
	chatModel ChatModel

	documentInstruction string
	queryInstruction    string

	chunkSize    int
	chunkOverlap int
	topK         int
	language     string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey stores chunks in a Valkey instance with the search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores chunks in a Redis instance with RediSearch.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithBolt stores chunks in an embedded bbolt file. Sessions are kept in memory.
func WithBolt(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverBolt
		c.boltPath = path
	})
}

// WithOllama uses a local Ollama server for embeddings and chat.
func WithOllama(baseURL, embedModel, chatModel string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = &providerConfig{
			provider:   domain.ProviderOllama,
			baseURL:    baseURL,
			embedModel: embedModel,
			chatModel:  chatModel,
		}
	})
}

// WithOpenAI uses an OpenAI-compatible API for embeddings and chat.
// An empty baseURL selects the public OpenAI endpoint.
func WithOpenAI(apiKey, baseURL, embedModel, chatModel string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = &providerConfig{
			provider:   domain.ProviderOpenAI,
			baseURL:    baseURL,
			apiKey:     apiKey,
			embedModel: embedModel,
			chatModel:  chatModel,
		}
	})
}

// WithEmbedder sets a custom embedding backend. It takes precedence over
// WithOllama and WithOpenAI.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithChatModel sets a custom chat backend. It takes precedence over
// WithOllama and WithOpenAI.
func WithChatModel(m ChatModel) Option {
	return optionFunc(func(c *clientConfig) {
		c.chatModel = m
	})
}

// WithInstructions sets the prefixes prepended to documents and queries before
// embedding, e.g. "search_document: " and "search_query: " for nomic-embed-text.
func WithInstructions(document, query string) Option {
	return optionFunc(func(c *clientConfig) {
		c.documentInstruction = document
		c.queryInstruction = query
	})
}

// WithChunking sets the chunk window and overlap in characters.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithTopK sets the default number of passages retrieved per question.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithLanguage sets the language answers are written in. Default: English.
func WithLanguage(lang string) Option {
	return optionFunc(func(c *clientConfig) {
		c.language = lang
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
