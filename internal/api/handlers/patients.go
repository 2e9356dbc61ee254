package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oncocare/journey/internal/apperrors"
	"github.com/oncocare/journey/internal/domain/patient"
	"github.com/oncocare/journey/internal/observability/metrics"
)

// PatientHandler serves the roster endpoints.
type PatientHandler struct {
	store   *patient.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewPatientHandler creates a new handler.
func NewPatientHandler(store *patient.Store, m *metrics.Metrics, logger *zap.Logger) *PatientHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientHandler{store: store, metrics: m, logger: logger}
}

// Routes returns the handler routes.
func (h *PatientHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/search", h.Search)
	r.Get("/cancer-types", h.CancerTypes)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Patch)
	return r
}

// List handles GET /patients with optional name search and slicing.
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 1, 200)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	pts := h.store.Search(patient.Filter{Query: r.URL.Query().Get("q")})
	writeJSON(w, http.StatusOK, slicePatients(pts, offset, limit))
}

// Search handles GET /patients/search with the full filter set.
func (h *PatientHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryInt(r, "limit", 50, 1, 200)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	pts := h.store.Search(patient.Filter{
		Query:       q.Get("q"),
		CancerType:  q.Get("cancer_type"),
		Status:      q.Get("status"),
		OnlyDelayed: q.Get("only_delayed") == "true",
	})
	writeJSON(w, http.StatusOK, slicePatients(pts, offset, limit))
}

// CancerTypes handles GET /patients/cancer-types.
func (h *PatientHandler) CancerTypes(w http.ResponseWriter, r *http.Request) {
	types := h.store.CancerTypes()
	if types == nil {
		types = []string{}
	}
	writeJSON(w, http.StatusOK, types)
}

// Get handles GET /patients/{id}.
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.store.Get(id)
	if err != nil {
		writeError(w, apperrors.NotFound("patient", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Patch handles PATCH /patients/{id}. Only oncology.* and care.* fields are
// applied; unknown fields in the body are ignored.
func (h *PatientHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch patient.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apperrors.Validation("invalid request body", nil))
		return
	}

	p, err := h.store.Patch(id, patch)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			writeError(w, apperrors.NotFound("patient", id))
			return
		}
		writeError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.PatchesApplied.Inc()
	}
	h.logger.Info("patient updated", zap.String("patient_id", id))
	writeJSON(w, http.StatusOK, p)
}

func slicePatients(pts []*patient.Patient, offset, limit int) []*patient.Patient {
	if offset >= len(pts) {
		return []*patient.Patient{}
	}
	end := offset + limit
	if end > len(pts) {
		end = len(pts)
	}
	return pts[offset:end]
}
