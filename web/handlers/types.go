package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/duetware/keepsake/internal/engine"
	"github.com/duetware/keepsake/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TurnRequest is the request format for POST /api/turns.
type TurnRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Role           string `json:"role,omitempty"` // "user" (default) or "assistant"
	Content        string `json:"content"`
}

// TurnResponse is the response format for POST /api/turns.
type TurnResponse struct {
	TurnID              string `json:"turn_id"`
	ExtractionTriggered bool   `json:"extraction_triggered"`
}

// MemoriesResponse is the response format for GET /api/memories.
type MemoriesResponse struct {
	Memories []*types.MemoryRecord `json:"memories"`
	Total    int                   `json:"total"`
}

// InsightsResponse is the response format for GET /api/insights.
type InsightsResponse struct {
	Insights []*types.Insight `json:"insights"`
	Total    int              `json:"total"`
}

// ActionRequest is the request format for POST /api/memories/{id}/action.
type ActionRequest struct {
	Action string `json:"action"`
	UserID string `json:"user_id"`
}

// extractID extracts a path parameter from the request.
func extractID(r *http.Request, key string) string {
	return r.PathValue(key)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent, nothing else to do.
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}
	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}
	respondJSON(w, statusCode, errResp)
}

// validationStatus maps a rejection kind to its HTTP status.
func validationStatus(err *engine.ValidationError) int {
	switch err.Kind {
	case engine.ValidationForbidden:
		return http.StatusForbidden
	case engine.ValidationNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
