// Package chi exposes the chatbot intake over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/logger"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/metrics"
	chatbotuc "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/chatbot"
	healthuc "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/health"
)

// RunPath is the intake route.
const RunPath = "/ai/chatbot/run"

// maxBodyBytes caps the intake request body.
const maxBodyBytes = 1 << 20

// Error codes returned in error bodies.
const (
	codeBadRequest      = "bad_request"
	codeInvalidQuestion = "validation_failed"
	codeInvalidCallback = "invalid_callback"
	codeOverloaded      = "overloaded"
	codeUnauthorized    = "unauthorized"
	codeInternal        = "internal_error"
)

// ChatbotStarter accepts questions for background processing.
type ChatbotStarter interface {
	Start(ctx context.Context, req chatbotuc.Request) error
}

// HealthChecker reports backend availability.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the chatbot intake, health and metrics endpoints.
type Server struct {
	chatbot       ChatbotStarter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(chatbot ChatbotStarter, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		chatbot: chatbot,
		health:  health,
		logger:  logger,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrInvalidQuestion, http.StatusBadRequest, codeInvalidQuestion),
			sentinelHandler(domain.ErrInvalidCallback, http.StatusBadRequest, codeInvalidCallback),
			sentinelHandler(domain.ErrOverloaded, http.StatusServiceUnavailable, codeOverloaded),
		},
	}
}

// Router builds the chi router with the middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Post(RunPath, s.RunChatbot)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

// RunChatbot handles POST /ai/chatbot/run.
func (s *Server) RunChatbot(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req := body.toRequest()
	if err := s.chatbot.Start(r.Context(), req); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	logger.FromContext(r.Context()).Info("Chatbot request accepted",
		zap.String("chat_request_id", req.ID),
		zap.String("asker_id", req.Question.AskerID),
		zap.String("tenant_id", req.Question.TenantID),
		zap.Int("history", len(req.Question.History)),
	)
	writeJSON(w, http.StatusAccepted, runResponse{Accepted: true, RequestID: req.ID})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The message is the error chain text, which only carries validation detail.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
