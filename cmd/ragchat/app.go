package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/chunker"
	"github.com/kailas-cloud/ragchat/internal/config"
	dbRedis "github.com/kailas-cloud/ragchat/internal/db/redis"
	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
	"github.com/kailas-cloud/ragchat/internal/extract"
	"github.com/kailas-cloud/ragchat/internal/metrics"
	"github.com/kailas-cloud/ragchat/internal/repository/boltindex"
	"github.com/kailas-cloud/ragchat/internal/repository/chunk"
	"github.com/kailas-cloud/ragchat/internal/repository/embcache"
	"github.com/kailas-cloud/ragchat/internal/repository/session"
	"github.com/kailas-cloud/ragchat/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/ragchat/internal/transport/openai"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/ragchat/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/ragchat/internal/usecase/retrieve"
)

// vectorStore is what the composition root needs from either storage driver.
type vectorStore interface {
	Replace(ctx context.Context, source string, entries []document.Entry) (int, error)
	Count(ctx context.Context) (int, error)
	Query(ctx context.Context, vector []float32, n int, source string) ([]retrieval.Candidate, error)
}

// sessionStore is the session contract shared by ingest and chat.
type sessionStore interface {
	LastSource(ctx context.Context, id string) (string, error)
	SetLastSource(ctx context.Context, id, source string) error
}

// cacheStore is the key-value surface used by the embedding cache.
type cacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// chatModel is a language model backend that can also report its health.
type chatModel interface {
	chatuc.Model
	domain.HealthChecker
}

// app is the wired object graph shared by the serve, ingest and ask commands.
type app struct {
	store     vectorStore
	extractor *extract.Registry
	queryEmb  *embeddinguc.Service
	ingest    *ingestuc.Service
	retrieve  *retrieveuc.Service
	chat      *chatuc.Service
	health    *healthuc.Service
	closers   []func()
}

// Close releases storage handles in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp is the composition root.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterRAGMetrics()

	a := &app{}

	var (
		store    vectorStore
		sessions sessionStore
		cache    cacheStore
		dbCheck  healthuc.Checker
	)

	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		flavor, err := dbRedis.ParseFlavor(cfg.Database.Driver)
		if err != nil {
			return nil, err
		}
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
			Flavor:   flavor,
		})
		if err != nil {
			return nil, fmt.Errorf("create database store: %w", err)
		}
		a.closers = append(a.closers, rs.Close)

		if err := rs.WaitForReady(ctx, config.Timeout(cfg.Database.ReadinessTimeout)); err != nil {
			a.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

		store = chunk.New(rs, chunk.HNSWConfig{
			M:           cfg.Database.HNSWM,
			EFConstruct: cfg.Database.HNSWEFConstruct,
		}, logger)
		sessions = session.NewKV(rs, config.Timeout(cfg.Session.TTLSec))
		if cfg.Embedding.Cache.Enabled {
			cache = rs
		}
		dbCheck = healthuc.CheckerFunc(rs.Ping)

	case config.DriverBolt:
		bs, err := boltindex.Open(cfg.Database.BoltPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open bolt index: %w", err)
		}
		a.closers = append(a.closers, func() { _ = bs.Close() })
		logger.Info("Opened embedded index", zap.String("path", cfg.Database.BoltPath))

		store = bs
		sessions = session.NewMemory(config.Timeout(cfg.Session.TTLSec))
		dbCheck = healthuc.CheckerFunc(bs.Ping)

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	a.store = store

	docEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, cache, logger)
	queryEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, cache, logger)
	logger.Info("Embedders created",
		zap.Stringer("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Bool("cache", cache != nil),
	)

	docEmb := embeddinguc.NewService(docEmbedder, cfg.Embedding.Concurrency, logger)
	a.queryEmb = embeddinguc.NewService(queryEmbedder, cfg.Embedding.Concurrency, logger)

	a.extractor = extract.NewRegistry(extract.NewPDF(
		extract.WithBinary(cfg.RAG.PDFToTextPath),
		extract.WithTimeout(config.Timeout(cfg.RAG.ExtractTimeoutSec)),
	))
	chk := chunker.New(
		chunker.WithChunkSize(cfg.RAG.ChunkSize),
		chunker.WithOverlap(cfg.RAG.ChunkOverlap),
	)

	a.ingest = ingestuc.New(a.extractor, chk, docEmb, store, logger,
		ingestuc.WithBatchSize(cfg.RAG.IngestBatchSize),
		ingestuc.WithUploadsDir(cfg.RAG.UploadsDir),
		ingestuc.WithSessions(sessions),
	)
	a.retrieve = retrieveuc.New(a.queryEmb, store, logger)

	model := buildChatModel(cfg.LLM, logger)
	logger.Info("Chat model created",
		zap.Stringer("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
	)
	a.chat = chatuc.New(a.retrieve, model, sessions, chatuc.Config{
		TopK:           cfg.RAG.MaxContextChunks,
		MaxSourceChars: cfg.RAG.MaxSourceChars,
		Language:       cfg.RAG.AnswerLanguage,
		MMR:            cfg.RAG.MMR,
	}, logger)

	a.health = healthuc.New(healthuc.DefaultTimeout, logger,
		healthuc.Component{Name: "database", Checker: dbCheck},
		healthuc.Component{Name: "embedding", Checker: a.queryEmb},
		healthuc.Component{Name: "llm", Checker: model},
	)
	return a, nil
}

// buildEmbedder assembles the decorator chain: backend -> cache -> instrumented -> instruction.
// The instruction is outermost so the cache key includes it.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	instruction string,
	cache cacheStore,
	logger *zap.Logger,
) domain.Embedder {
	var base domain.Embedder
	switch cfg.Provider {
	case domain.ProviderOpenAI:
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider.String(),
			Timeout:    config.Timeout(cfg.TimeoutSec),
			Logger:     logger,
		})
	default:
		base = ollama.NewEmbedder(&ollama.EmbedderConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: config.Timeout(cfg.TimeoutSec),
			Logger:  logger,
		})
	}

	embedder := base
	// Pass a nil interface, not a typed nil, when caching is off.
	if cache != nil {
		embedder = embcache.New(base, cache, cfg.Model,
			config.Timeout(cfg.Cache.TTLSec), metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider.String(), cfg.Model, logger)

	return domain.NewInstructionEmbedder(embedder, instruction)
}

func buildChatModel(cfg config.LLMConfig, logger *zap.Logger) chatModel {
	switch cfg.Provider {
	case domain.ProviderOpenAI:
		return openaiTransport.NewChatClient(&openaiTransport.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: cfg.Provider.String(),
			Timeout:  config.Timeout(cfg.TimeoutSec),
			Logger:   logger,
		}, cfg.Temperature)
	default:
		return ollama.NewChatClient(&ollama.ChatConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Timeout:     config.Timeout(cfg.TimeoutSec),
			Temperature: cfg.Temperature,
			NumCtx:      cfg.NumCtx,
			Logger:      logger,
		})
	}
}
