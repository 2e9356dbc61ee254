package handlers

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oncocare/journey/internal/domain/patient"
)

// DashboardHandler serves aggregate roster statistics.
type DashboardHandler struct {
	store *patient.Store
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(store *patient.Store) *DashboardHandler {
	return &DashboardHandler{store: store}
}

// Routes returns the handler routes.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/alerts", h.Alerts)
	return r
}

// AlertStats summarizes journey delays across the roster. Field names match
// the dashboard frontend contract.
type AlertStats struct {
	TotalPacientes     int     `json:"total_pacientes"`
	PacientesComAtraso int     `json:"pacientes_com_atraso"`
	PercentualAtraso   float64 `json:"percentual_atraso"`
}

// Alerts handles GET /dashboard/alerts.
func (h *DashboardHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	pts := h.store.List()

	delayed := 0
	for _, p := range pts {
		if p.Flags.AtrasoEstadiamentoTratamento {
			delayed++
		}
	}

	stats := AlertStats{
		TotalPacientes:     len(pts),
		PacientesComAtraso: delayed,
	}
	if stats.TotalPacientes > 0 {
		pct := float64(delayed) / float64(stats.TotalPacientes) * 100
		stats.PercentualAtraso = math.Round(pct*100) / 100
	}

	writeJSON(w, http.StatusOK, stats)
}
