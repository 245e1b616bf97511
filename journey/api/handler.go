// Package api exposes the journey pipelines over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/theimaginaryfoundation/journey-o-bot/journey"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/provider"
)

// MaxBodyBytes caps request bodies (JSON conversations and CSV uploads).
const MaxBodyBytes = 32 << 20

const (
	headerModelUsed = "X-Model-Used"
	headerRunID     = "X-Run-Id"
)

// Handler serves the journey, weekly summary and CSV ingestion endpoints.
type Handler struct {
	builder  *journey.Builder
	provider string
	logger   *slog.Logger
}

func NewHandler(b *journey.Builder, providerName string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{builder: b, provider: providerName, logger: logger}
}

// RegisterRoutes mounts the API under /api plus GET /health.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.UploadMessages)
		r.Post("/journey", h.Journey)
		r.Post("/weekly-summary", h.WeeklySummary)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok", "provider": h.provider})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeFailure maps pipeline errors onto HTTP responses.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ue *journey.UnparsableResponseError
	switch {
	case errors.Is(err, journey.ErrInvalidInput):
		Error(w, http.StatusBadRequest, "messages[] required")
	case errors.Is(err, journey.ErrMissingCredential):
		h.logger.Error("provider credential missing", "op", op, "provider", h.provider)
		Error(w, http.StatusInternalServerError, provider.DisplayName(h.provider)+" API key not configured")
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op+" timed out", "request_id", chiMiddleware.GetReqID(r.Context()))
		Error(w, http.StatusGatewayTimeout, "request timed out")
	case errors.As(err, &ue):
		h.logger.Warn("model returned unparsable output", "op", op, "model", ue.ModelUsed, "request_id", chiMiddleware.GetReqID(r.Context()))
		if ue.ModelUsed != "" {
			w.Header().Set(headerModelUsed, ue.ModelUsed)
		}
		JSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "Model did not return valid JSON",
			"raw":   ue.RawPrefix,
		})
	default:
		h.logger.Error(op+" failed", "error", err, "request_id", chiMiddleware.GetReqID(r.Context()))
		msg := err.Error()
		if msg == "" {
			msg = "Unknown error occurred"
		}
		Error(w, http.StatusInternalServerError, msg)
	}
}

func setRunID(w http.ResponseWriter) string {
	id := uuid.NewString()
	w.Header().Set(headerRunID, id)
	return id
}

// RequestTimeout bounds each request's context by d. Handlers answer a missed deadline themselves.
func RequestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs one line per request through logger.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chiMiddleware.GetReqID(r.Context()),
			)
		})
	}
}
