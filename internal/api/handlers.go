package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/miradorstack/mirador-pm/internal/engine"
	"github.com/miradorstack/mirador-pm/internal/models"
	"github.com/miradorstack/mirador-pm/internal/utils"
)

// AnalysisRunner produces analysis snapshots for a filter and refreshes the
// underlying event log.
type AnalysisRunner interface {
	Run(ctx context.Context, filter models.Filter) (models.AnalysisSnapshot, error)
	Reload(ctx context.Context) error
}

// Handler serves the analysis API over JSON.
type Handler struct {
	logger *slog.Logger
	runner AnalysisRunner
}

// NewHandler constructs the API handler.
func NewHandler(logger *slog.Logger, runner AnalysisRunner) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, runner: runner}
}

// Routes builds the HTTP mux for the analysis API.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /api/v1/analysis", h.handleAnalysis)
	mux.HandleFunc("GET /api/v1/analysis/flow", h.handleFlow)
	mux.HandleFunc("GET /api/v1/analysis/conformance", h.handleConformance)
	mux.HandleFunc("GET /api/v1/analysis/bottlenecks", h.handleBottlenecks)
	mux.HandleFunc("GET /api/v1/analysis/resources", h.handleResources)
	mux.HandleFunc("GET /api/v1/analysis/variants", h.handleVariants)
	mux.HandleFunc("GET /api/v1/analysis/summary", h.handleSummary)
	mux.HandleFunc("POST /api/v1/reload", h.handleReload)
	return h.logRequests(mux)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.run(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, ToAnalysisResponse(snapshot))
}

func (h *Handler) handleFlow(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.run(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, toFlowPayload(snapshot.Flow))
}

func (h *Handler) handleConformance(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.run(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, toConformancePayload(snapshot.Conformance))
}

func (h *Handler) handleBottlenecks(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.run(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, toBottleneckPayload(snapshot.Bottlenecks))
}

func (h *Handler) handleResources(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.run(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, toResourcePayloads(snapshot.Resources))
}

func (h *Handler) handleVariants(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.run(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, toVariantPayloads(snapshot.Variants))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.run(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, toSummaryPayload(snapshot.Summary))
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		h.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("analyzer not initialised"))
		return
	}
	if err := h.runner.Reload(r.Context()); err != nil {
		h.logger.Error("reload failed", slog.Any("error", err))
		if utils.OpOf(err) != "" {
			h.writeError(w, http.StatusBadGateway, fmt.Errorf("event source unavailable"))
			return
		}
		h.writeError(w, http.StatusInternalServerError, fmt.Errorf("reload failed"))
		return
	}
	h.writeJSON(w, map[string]string{"status": "reloaded"})
}

// run parses the filter, executes the analysis, and maps failures onto HTTP
// status codes. A false return means the response has already been written.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) (models.AnalysisSnapshot, bool) {
	if h.runner == nil {
		h.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("analyzer not initialised"))
		return models.AnalysisSnapshot{}, false
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return models.AnalysisSnapshot{}, false
	}
	snapshot, err := h.runner.Run(r.Context(), filter)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			h.writeError(w, http.StatusUnprocessableEntity, err)
			return models.AnalysisSnapshot{}, false
		}
		if op := utils.OpOf(err); op != "" {
			h.logger.Error("upstream fetch failed", slog.String("op", op), slog.Any("error", err))
			h.writeError(w, http.StatusBadGateway, fmt.Errorf("event source unavailable"))
			return models.AnalysisSnapshot{}, false
		}
		h.logger.Error("analysis request failed", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, fmt.Errorf("analysis failed"))
		return models.AnalysisSnapshot{}, false
	}
	return snapshot, true
}

func parseFilter(r *http.Request) (models.Filter, error) {
	query := r.URL.Query()
	var filter models.Filter
	if v := query.Get("from"); v != "" {
		ts, err := utils.ParseRFC3339(v)
		if err != nil {
			return models.Filter{}, fmt.Errorf("invalid from: %w", err)
		}
		filter.From = ts
	}
	if v := query.Get("to"); v != "" {
		ts, err := utils.ParseRFC3339(v)
		if err != nil {
			return models.Filter{}, fmt.Errorf("invalid to: %w", err)
		}
		filter.To = ts
	}
	filter.Activities = splitParam(query.Get("activities"))
	filter.Resources = splitParam(query.Get("resources"))
	filter.Cases = splitParam(query.Get("cases"))
	return filter, nil
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("elapsed", time.Since(start)))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
