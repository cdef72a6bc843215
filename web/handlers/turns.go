package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/duetware/keepsake/internal/engine"
)

// TurnHandlers accepts conversation turns and hands them to the memory
// pipeline.
type TurnHandlers struct {
	svc *engine.Service
}

// NewTurnHandlers creates turn handlers over the given service.
func NewTurnHandlers(svc *engine.Service) *TurnHandlers {
	return &TurnHandlers{svc: svc}
}

// PostTurn handles POST /api/turns. Extraction runs in the background, so
// the response is 202 regardless of whether the pipeline later succeeds;
// the body reports whether an extraction pass was started.
func (h *TurnHandlers) PostTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ConversationID == "" || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "conversation_id and user_id are required", nil)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "content is required", nil)
		return
	}

	switch req.Role {
	case "", "user":
		turn, triggered, err := h.svc.HandleUserTurn(r.Context(), req.ConversationID, req.UserID, req.Content)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to record turn", err)
			return
		}
		respondJSON(w, http.StatusAccepted, TurnResponse{TurnID: turn.ID, ExtractionTriggered: triggered})
	case "assistant":
		turn, err := h.svc.RecordAssistantTurn(r.Context(), req.ConversationID, req.UserID, req.Content)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to record turn", err)
			return
		}
		respondJSON(w, http.StatusAccepted, TurnResponse{TurnID: turn.ID})
	default:
		respondError(w, http.StatusBadRequest, "role must be user or assistant", nil)
	}
}
