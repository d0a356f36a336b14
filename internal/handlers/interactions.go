package handlers

import (
	"net/http"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/request"
	"github.com/benvon/smartmatch/internal/validation"
	"github.com/gorilla/mux"
)

// InteractionHandler accepts interaction events from clients
type InteractionHandler struct {
	pipeline SignalPipeline
}

// NewInteractionHandler creates a new interaction handler
func NewInteractionHandler(pipeline SignalPipeline) *InteractionHandler {
	return &InteractionHandler{pipeline: pipeline}
}

// RegisterRoutes registers interaction routes on a router already prefixed with /interactions
func (h *InteractionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.RecordInteraction).Methods("POST")
}

// RecordInteractionRequest represents one interaction event
type RecordInteractionRequest struct {
	TargetID string `json:"target_id" validate:"required,max=128"`
	Kind     string `json:"kind" validate:"required,interaction_kind"`
}

// RecordInteraction hands the event to the pipeline and answers 202 once the pipeline has
// applied its policy. Views return at once. Likes and messages are persisted and the
// caller's recommendations invalidated before the response, so a follow-up fetch sees the
// change; that write is bounded by the pipeline's IO timeout and one retry. Persistence
// failures never change the response.
func (h *InteractionHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	id := request.IdentityFromContext(r)
	if !id.Authenticated() {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}

	var req RecordInteractionRequest
	if !decodeJSON(w, r, &req, validation.Validate) {
		return
	}
	targetID := validation.SanitizeText(req.TargetID)
	if targetID == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "target_id cannot be empty")
		return
	}
	if targetID == id.UserID {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "cannot interact with yourself")
		return
	}

	h.pipeline.RecordInteraction(r.Context(), id, targetID, models.InteractionKind(req.Kind))
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
