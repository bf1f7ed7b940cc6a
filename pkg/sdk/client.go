package ragchat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kailas-cloud/ragchat/internal/chunker"
	dbRedis "github.com/kailas-cloud/ragchat/internal/db/redis"
	"github.com/kailas-cloud/ragchat/internal/domain"
	domchat "github.com/kailas-cloud/ragchat/internal/domain/chat"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
	"github.com/kailas-cloud/ragchat/internal/extract"
	"github.com/kailas-cloud/ragchat/internal/repository/boltindex"
	"github.com/kailas-cloud/ragchat/internal/repository/chunk"
	"github.com/kailas-cloud/ragchat/internal/repository/session"
	"github.com/kailas-cloud/ragchat/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/ragchat/internal/transport/openai"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/ragchat/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/ragchat/internal/usecase/retrieve"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for mocks in tests.
type ingestUseCase interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
}

type chatUseCase interface {
	Chat(ctx context.Context, req chatuc.Request) (chatuc.Answer, error)
}

type retrieveUseCase interface {
	Retrieve(ctx context.Context, question string, k int, source string) (retrieval.Result, error)
}

type countUseCase interface {
	Count(ctx context.Context) (int, error)
}

type vectorStore interface {
	Replace(ctx context.Context, source string, entries []document.Entry) (int, error)
	Count(ctx context.Context) (int, error)
	Query(ctx context.Context, vector []float32, n int, source string) ([]retrieval.Candidate, error)
}

type sessionStore interface {
	LastSource(ctx context.Context, id string) (string, error)
	SetLastSource(ctx context.Context, id, source string) error
}

// backend is an opened storage driver.
type backend struct {
	store    vectorStore
	sessions sessionStore
	ping     func(ctx context.Context) error
	close    func()
}

// Client is the ragchat SDK entry point.
type Client struct {
	closeFn     func()
	ingestSvc   ingestUseCase
	chatSvc     chatUseCase
	retrieveSvc retrieveUseCase
	counter     countUseCase
	healthSvc   healthUseCase
	obs         *observer
}

// New creates a ragchat Client and opens its storage.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil && cfg.provider == nil {
		return nil, errors.New("ragchat: embedding backend required (use WithOllama, WithOpenAI or WithEmbedder)")
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		b.close()
		return nil, err
	}
	return wireClient(b, cfg, obs), nil
}

func openBackend(ctx context.Context, cfg *clientConfig) (*backend, error) {
	switch cfg.driver {
	case driverRedis, driverValkey:
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, errors.New("ragchat: database address required")
		}
		flavor, err := dbRedis.ParseFlavor(cfg.driver)
		if err != nil {
			return nil, fmt.Errorf("ragchat: %w", err)
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
			Flavor:   flavor,
		})
		if err != nil {
			return nil, fmt.Errorf("ragchat: create %s store: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("ragchat: database not ready: %w", err)
		}
		return &backend{
			store:    chunk.New(s, chunk.HNSWConfig{}, nil),
			sessions: session.NewKV(s, 0),
			ping:     s.Ping,
			close:    s.Close,
		}, nil
	case driverBolt:
		s, err := boltindex.Open(cfg.boltPath, nil)
		if err != nil {
			return nil, fmt.Errorf("ragchat: open bolt index: %w", err)
		}
		return &backend{
			store:    s,
			sessions: session.NewMemory(0),
			ping:     s.Ping,
			close:    func() { _ = s.Close() },
		}, nil
	case "":
		return nil, errors.New("ragchat: storage required (use WithRedis, WithValkey or WithBolt)")
	default:
		return nil, fmt.Errorf("ragchat: unknown driver %q", cfg.driver)
	}
}

func wireClient(b *backend, cfg *clientConfig, obs *observer) *Client {
	base := buildEmbedder(cfg)
	docEmb := embeddinguc.NewService(domain.NewInstructionEmbedder(base, cfg.documentInstruction), 0, nil)
	queryEmb := embeddinguc.NewService(domain.NewInstructionEmbedder(base, cfg.queryInstruction), 0, nil)

	var chunkOpts []chunker.Option
	if cfg.chunkSize > 0 {
		chunkOpts = append(chunkOpts, chunker.WithChunkSize(cfg.chunkSize))
	}
	if cfg.chunkOverlap > 0 {
		chunkOpts = append(chunkOpts, chunker.WithOverlap(cfg.chunkOverlap))
	}

	ingestSvc := ingestuc.New(
		extract.NewRegistry(extract.NewPDF()),
		chunker.New(chunkOpts...),
		docEmb, b.store, nil,
		ingestuc.WithSessions(b.sessions),
	)
	retrieveSvc := retrieveuc.New(queryEmb, b.store, nil)
	model := buildChatModel(cfg)
	chatSvc := chatuc.New(retrieveSvc, model, b.sessions, chatuc.Config{
		TopK:     cfg.topK,
		Language: cfg.language,
	}, nil)

	components := []healthuc.Component{
		{Name: "database", Checker: healthuc.CheckerFunc(b.ping)},
		{Name: "embedding", Checker: queryEmb},
	}
	if hc, ok := model.(domain.HealthChecker); ok {
		components = append(components, healthuc.Component{Name: "llm", Checker: hc})
	}
	healthSvc := healthuc.New(0, nil, components...)

	return &Client{
		closeFn:     b.close,
		ingestSvc:   ingestSvc,
		chatSvc:     chatSvc,
		retrieveSvc: retrieveSvc,
		counter:     b.store,
		healthSvc:   healthSvc,
		obs:         obs,
	}
}

func buildEmbedder(cfg *clientConfig) domain.Embedder {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder}
	}
	p := cfg.provider
	if p.provider == domain.ProviderOpenAI {
		return openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:  p.apiKey,
			BaseURL: p.baseURL,
			Model:   p.embedModel,
		})
	}
	return ollama.NewEmbedder(&ollama.EmbedderConfig{BaseURL: p.baseURL, Model: p.embedModel})
}

func buildChatModel(cfg *clientConfig) chatuc.Model {
	if cfg.chatModel != nil {
		return &chatModelAdapter{inner: cfg.chatModel}
	}
	p := cfg.provider
	switch {
	case p == nil || p.chatModel == "":
		return noopChatModel{}
	case p.provider == domain.ProviderOpenAI:
		return openaiTransport.NewChatClient(&openaiTransport.Config{
			APIKey:  p.apiKey,
			BaseURL: p.baseURL,
			Model:   p.chatModel,
		}, nil)
	default:
		return ollama.NewChatClient(&ollama.ChatConfig{BaseURL: p.baseURL, Model: p.chatModel})
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Ingest extracts, chunks, embeds and stores doc, replacing any previous
// version of the same source name.
func (c *Client) Ingest(ctx context.Context, doc Document) (res IngestResult, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe(ctx, "ingest", start, err,
			slog.String("source", doc.Name), slog.Int("chunks", res.Chunks))
	}()

	r, err := c.ingestSvc.Ingest(ctx, ingestuc.Request{
		Filename:  doc.Name,
		Data:      doc.Data,
		SessionID: doc.SessionID,
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest %s: %w", doc.Name, err)
	}
	c.obs.addChunks(r.AddedChunks)
	return ingestResultFromUC(r), nil
}

// IngestFile reads path and ingests it under its base name.
func (c *Client) IngestFile(ctx context.Context, path, sessionID string) (IngestResult, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return IngestResult{}, fmt.Errorf("ragchat: read %s: %w", path, err)
	}
	return c.Ingest(ctx, Document{Name: filepath.Base(path), Data: data, SessionID: sessionID})
}

// Ask answers q from the passages nearest to it.
func (c *Client) Ask(ctx context.Context, q Question) (ans Answer, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe(ctx, "ask", start, err, slog.Int("sources", len(ans.Sources)))
	}()

	a, err := c.chatSvc.Chat(ctx, questionToUC(q))
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	return answerFromUC(a), nil
}

// Retrieve returns up to k passages nearest to query, optionally restricted to source.
func (c *Client) Retrieve(ctx context.Context, query string, k int, source string) (_ []Passage, err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, "retrieve", start, err) }()

	r, err := c.retrieveSvc.Retrieve(ctx, query, k, source)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return passagesFromResult(r), nil
}

// Count returns the number of stored chunks.
func (c *Client) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, "count", start, err) }()

	n, err = c.counter.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// chatModelAdapter wraps public ChatModel to satisfy the chat use case.
type chatModelAdapter struct {
	inner ChatModel
}

func (a *chatModelAdapter) Complete(ctx context.Context, messages []domchat.Message) (domchat.Completion, error) {
	reply, err := a.inner.Complete(ctx, messagesFromDomain(messages))
	if err != nil {
		return domchat.Completion{}, fmt.Errorf("complete: %w", err)
	}
	return domchat.Completion{Content: reply}, nil
}

// noopChatModel returns an error on Complete (used when no chat model configured).
type noopChatModel struct{}

func (noopChatModel) Complete(context.Context, []domchat.Message) (domchat.Completion, error) {
	return domchat.Completion{}, errors.New("ragchat: chat model not configured (use WithChatModel or a provider option)")
}
