// Package chi exposes the RAG use cases over HTTP using the chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	domchat "github.com/kailas-cloud/ragchat/internal/domain/chat"
	"github.com/kailas-cloud/ragchat/internal/logger"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

// SessionHeader carries the caller's session id.
const SessionHeader = "X-Session-ID"

// DefaultMaxUploadBytes bounds multipart uploads when no limit is configured.
const DefaultMaxUploadBytes int64 = 50 << 20

// embedPreviewLen is how many leading vector components /debug/embed returns.
const embedPreviewLen = 8

// Ingester stores uploaded documents.
type Ingester interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
}

// Chatter answers questions.
type Chatter interface {
	Chat(ctx context.Context, req chatuc.Request) (chatuc.Answer, error)
}

// QueryEmbedder vectorizes a single query.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Counter reports the number of indexed chunks.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// HealthChecker reports dependency status.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	ingester       Ingester
	chatter        Chatter
	embedder       QueryEmbedder
	counter        Counter
	health         HealthChecker
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMaxUploadBytes bounds the /ingest request body.
func WithMaxUploadBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewServer creates an HTTP API server.
func NewServer(
	ingester Ingester,
	chatter Chatter,
	embedder QueryEmbedder,
	counter Counter,
	health HealthChecker,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		ingester:       ingester,
		chatter:        chatter,
		embedder:       embedder,
		counter:        counter,
		health:         health,
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         logger,
		errorHandlers:  defaultErrorHandlers(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes registers all endpoints on r.
func (s *Server) Routes(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/stats", s.Stats)
	r.Post("/ingest", s.Ingest)
	r.Post("/chat", s.Chat)
	r.Get("/debug/embed", s.DebugEmbed)
}

// Handler returns a standalone router serving all endpoints.
func (s *Server) Handler() http.Handler {
	r := chirouter.NewRouter()
	s.Routes(r)
	return r
}

// Ingest handles POST /ingest (multipart form, field "file").
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Failed to read upload: "+err.Error())
		return
	}

	sessionID := sessionFromRequest(r, r.FormValue("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	res, err := s.ingester.Ingest(r.Context(), ingestuc.Request{
		Filename:  filepath.Base(header.Filename),
		Data:      data,
		SessionID: sessionID,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set(SessionHeader, res.SessionID)
	writeJSON(w, http.StatusOK, IngestResponse{
		ContentHash:     res.ContentHash,
		SourceName:      res.SourceName,
		AddedChunks:     res.AddedChunks,
		CollectionCount: res.CollectionCount,
		Note:            res.Note,
		SessionID:       res.SessionID,
	})
}

// Chat handles POST /chat. top_k and source may also be passed as query parameters,
// which take precedence over the body.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "top_k", query, &body.TopK); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid top_k: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "source", query, &body.Source); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid source: "+err.Error())
		return
	}

	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "message is required")
		return
	}

	req := chatuc.Request{
		Question:  body.Message,
		SessionID: sessionFromRequest(r, body.SessionID),
		History:   domchat.DecodeHistory(body.History),
		MMR:       body.MMR,
	}
	if body.TopK != nil {
		if *body.TopK > chatuc.MaxTopK {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
				fmt.Sprintf("top_k must be at most %d", chatuc.MaxTopK))
			return
		}
		req.TopK = *body.TopK
	}
	if body.Source != nil {
		req.Source = *body.Source
	}

	ans, err := s.chatter.Chat(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	sources := ans.UsedSources
	if sources == nil {
		sources = []domchat.SourceChunk{}
	}
	if ans.SessionID != "" {
		w.Header().Set(SessionHeader, ans.SessionID)
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:      ans.Answer,
		UsedSources: sources,
		Model:       ans.Model,
		Extra:       ans.Extra,
		SessionID:   ans.SessionID,
	})
}

// DebugEmbed handles GET /debug/embed?q=.
func (s *Server) DebugEmbed(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &q); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid q: "+err.Error())
		return
	}
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "q must not be blank")
		return
	}

	vec, err := s.embedder.EmbedOne(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	preview := vec
	if len(preview) > embedPreviewLen {
		preview = preview[:embedPreviewLen]
	}
	writeJSON(w, http.StatusOK, EmbedResponse{Len: len(vec), Preview: preview})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	n, err := s.counter.Count(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{CollectionCount: n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func sessionFromRequest(r *http.Request, fallback string) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(fallback)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// handleDomainError maps domain errors to HTTP responses.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.FromContext(r.Context(), s.logger).Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "internal error")
}
