package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/oncocare/journey/internal/apperrors"
	"github.com/oncocare/journey/internal/domain/patient"
	"github.com/oncocare/journey/internal/llm"
	"github.com/oncocare/journey/internal/observability/metrics"
	"github.com/oncocare/journey/internal/summary"
)

// ChatHandler serves the summary endpoint: free-text patient message in,
// structured clinical summary out.
type ChatHandler struct {
	store     *patient.Store
	summaries *summary.Service
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewChatHandler creates a new handler.
func NewChatHandler(store *patient.Store, svc *summary.Service, m *metrics.Metrics, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{store: store, summaries: svc, metrics: m, logger: logger}
}

// Routes returns the handler routes.
func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Post)
	return r
}

// ChatRequest is the inbound summary request.
type ChatRequest struct {
	PatientID string        `json:"patient_id"`
	Message   string        `json:"message"`
	History   []llm.Message `json:"history,omitempty"`
}

// ChatResponse wraps a successful summary.
type ChatResponse struct {
	PatientID string          `json:"patient_id"`
	Summary   *summary.Result `json:"summary"`
}

// Post handles POST /chat. The patient is resolved before any model call:
// an unknown ID never reaches the upstream.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("chat-handler")
	ctx, span := tracer.Start(ctx, "chat_summary")
	defer span.End()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid request body", nil))
		return
	}
	if strings.TrimSpace(req.PatientID) == "" {
		writeError(w, apperrors.Validation("patient_id is required", map[string]string{"field": "patient_id"}))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, apperrors.Validation("message is required", map[string]string{"field": "message"}))
		return
	}
	span.SetAttributes(attribute.String("patient_id", req.PatientID))

	p, err := h.store.Get(req.PatientID)
	if err != nil {
		writeError(w, apperrors.NotFound("patient", req.PatientID))
		return
	}

	if h.metrics != nil {
		h.metrics.SummariesRequested.Inc()
	}

	start := time.Now()
	result, err := h.summaries.Summarize(ctx, p, req.Message, req.History)
	if h.metrics != nil {
		h.metrics.SummaryDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if h.metrics != nil {
			h.metrics.SummariesFailed.Inc()
		}
		h.logger.Warn("summary failed",
			zap.String("patient_id", req.PatientID),
			zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{PatientID: req.PatientID, Summary: result})
}
