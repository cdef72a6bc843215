package handlers

import (
	"log"
	"net/http"

	"github.com/duetware/keepsake/internal/engine"
)

// MaintenanceHandlers exposes the maintenance sweep. The routes are gated
// behind the shared maintenance secret by the server wiring.
type MaintenanceHandlers struct {
	svc *engine.Service
}

// NewMaintenanceHandlers creates maintenance handlers over the given
// service.
func NewMaintenanceHandlers(svc *engine.Service) *MaintenanceHandlers {
	return &MaintenanceHandlers{svc: svc}
}

// RunSweep handles POST /api/maintenance/sweep - run one decay and
// regeneration pass over every scope.
func (h *MaintenanceHandlers) RunSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Sweep(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "sweep failed", err)
		return
	}
	if report.Failures > 0 {
		log.Printf("maintenance: sweep finished with %d scope failures", report.Failures)
	}
	respondJSON(w, http.StatusOK, report)
}
