// Package chat answers questions from retrieved context through a language model.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	domchat "github.com/kailas-cloud/ragchat/internal/domain/chat"
	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// NoContextAnswer is returned without a model call when nothing was retrieved.
const NoContextAnswer = "No relevant information was found in the knowledge base to answer this question."

// Defaults for Config zero values.
const (
	DefaultTopK           = 6
	DefaultMaxSourceChars = 5000
)

// MaxTopK bounds how many chunks one question may retrieve.
const MaxTopK = 100

var tracer = otel.Tracer("github.com/kailas-cloud/ragchat/chat")

// Config holds answer shaping parameters.
type Config struct {
	TopK           int
	MaxSourceChars int
	Language       string
	MMR            bool
}

// Request is a caller question.
type Request struct {
	Question  string
	TopK      int
	Source    string
	SessionID string
	History   []domchat.Turn
	MMR       *bool
}

// Extra echoes the effective retrieval parameters.
type Extra struct {
	TopK   int     `json:"top_k"`
	MMR    bool    `json:"mmr"`
	Source *string `json:"source"`
}

// Answer is the response to a Request.
type Answer struct {
	Answer      string
	UsedSources []domchat.SourceChunk
	Model       *string
	Extra       Extra
	SessionID   string
}

// Service orchestrates retrieval, prompt assembly and generation.
type Service struct {
	retriever Retriever
	model     Model
	sessions  SessionReader
	cfg       Config
	logger    *zap.Logger
}

// New creates a chat service. sessions may be nil.
func New(r Retriever, m Model, sessions SessionReader, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxSourceChars <= 0 {
		cfg.MaxSourceChars = DefaultMaxSourceChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{retriever: r, model: m, sessions: sessions, cfg: cfg, logger: logger}
}

// Chat answers req. The source filter is the explicit source, else the session's last
// ingested source, else none.
func (s *Service) Chat(ctx context.Context, req Request) (Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Answer{}, fmt.Errorf("empty question: %w", domain.ErrInvalidRequest)
	}

	ctx, span := tracer.Start(ctx, "chat.Chat")
	defer span.End()

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	topK = min(topK, MaxTopK)
	source := s.resolveSource(ctx, req)
	mmr := s.cfg.MMR
	if req.MMR != nil {
		mmr = *req.MMR
	}

	ans := Answer{SessionID: req.SessionID, Extra: Extra{TopK: topK, MMR: mmr}}
	if source != "" {
		ans.Extra.Source = &source
	}
	span.SetAttributes(
		attribute.Int("ragchat.top_k", topK),
		attribute.String("ragchat.source", source),
		attribute.Int("ragchat.history_len", len(req.History)),
	)
	log := logger.WithTrace(ctx, logger.FromContext(ctx, s.logger))

	res, err := s.retriever.Retrieve(ctx, question, topK, source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieve failed")
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	span.SetAttributes(attribute.Int("ragchat.contexts", res.Len()))

	if res.Empty() {
		metrics.ChatNoContextTotal.Inc()
		log.Info("No context retrieved", zap.String("source", source), zap.Int("top_k", topK))
		ans.Answer = NoContextAnswer
		ans.UsedSources = []domchat.SourceChunk{}
		return ans, nil
	}

	msgs := Assemble(question, res.Contexts, res.Metas, req.History, s.cfg.Language)
	out, err := s.model.Complete(ctx, msgs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return Answer{}, fmt.Errorf("complete: %w", err)
	}

	ans.Answer = out.Content
	ans.Model = &out.Model
	ans.UsedSources = s.usedSources(res)
	log.Info("Chat answered",
		zap.Int("top_k", topK),
		zap.Int("contexts", res.Len()),
		zap.String("source", source),
		zap.String("model", out.Model),
	)
	return ans, nil
}

func (s *Service) resolveSource(ctx context.Context, req Request) string {
	if src := strings.TrimSpace(req.Source); src != "" {
		return src
	}
	if s.sessions == nil || req.SessionID == "" {
		return ""
	}
	src, err := s.sessions.LastSource(ctx, req.SessionID)
	if err != nil {
		logger.FromContext(ctx, s.logger).Warn("Failed to read session source", zap.Error(err))
		return ""
	}
	return src
}

func (s *Service) usedSources(res retrieval.Result) []domchat.SourceChunk {
	out := make([]domchat.SourceChunk, res.Len())
	for i := range res.Contexts {
		m := res.Metas[i]
		sc := domchat.SourceChunk{
			ID:       res.IDs[i],
			Source:   sourceName(m),
			Distance: res.Distances[i],
			Text:     truncateRunes(res.Contexts[i], s.cfg.MaxSourceChars),
		}
		if m != nil && m.PageNumber > 0 {
			page := m.PageNumber
			sc.Page = &page
		}
		out[i] = sc
	}
	return out
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
