package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/duetware/keepsake/internal/engine"
	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// MemoryHandlers exposes memory listing, insight listing, and user actions.
type MemoryHandlers struct {
	svc *engine.Service
}

// NewMemoryHandlers creates memory handlers over the given service.
func NewMemoryHandlers(svc *engine.Service) *MemoryHandlers {
	return &MemoryHandlers{svc: svc}
}

// ListMemories handles GET /api/memories. Exactly one of user_id and
// partnership_id selects the scope.
func (h *MemoryHandlers) ListMemories(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	partnershipID := r.URL.Query().Get("partnership_id")
	if (userID == "") == (partnershipID == "") {
		respondError(w, http.StatusBadRequest, "exactly one of user_id and partnership_id is required", nil)
		return
	}

	var (
		memories []*types.MemoryRecord
		err      error
	)
	if userID != "" {
		memories, err = h.svc.MemoriesForUser(r.Context(), userID)
	} else {
		memories, err = h.svc.MemoriesForPartnership(r.Context(), partnershipID)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list memories", err)
		return
	}
	if memories == nil {
		memories = []*types.MemoryRecord{}
	}
	respondJSON(w, http.StatusOK, MemoriesResponse{Memories: memories, Total: len(memories)})
}

// ListInsights handles GET /api/insights?partnership_id=.
func (h *MemoryHandlers) ListInsights(w http.ResponseWriter, r *http.Request) {
	partnershipID := r.URL.Query().Get("partnership_id")
	if partnershipID == "" {
		respondError(w, http.StatusBadRequest, "partnership_id is required", nil)
		return
	}

	insights, err := h.svc.InsightsForPartnership(r.Context(), partnershipID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list insights", err)
		return
	}
	if insights == nil {
		insights = []*types.Insight{}
	}
	respondJSON(w, http.StatusOK, InsightsResponse{Insights: insights, Total: len(insights)})
}

// PostAction handles POST /api/memories/{id}/action - confirm, wrong, or
// delete a memory as the acting user.
func (h *MemoryHandlers) PostAction(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "memory ID is required", nil)
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.svc.ApplyAction(r.Context(), id, req.UserID, engine.Action(req.Action))
	if err != nil {
		var vErr *engine.ValidationError
		switch {
		case errors.As(err, &vErr):
			respondError(w, validationStatus(vErr), vErr.Error(), nil)
		case errors.Is(err, storage.ErrNotFound):
			respondError(w, http.StatusNotFound, "memory not found", nil)
		default:
			respondError(w, http.StatusInternalServerError, "failed to apply action", err)
		}
		return
	}
	respondJSON(w, http.StatusOK, result)
}
