package handlers

import (
	"net/http"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/validation"
	"github.com/gorilla/mux"
)

// MaxPresenceBatch is the most users one batch presence request may ask about
const MaxPresenceBatch = 100

// PresenceHandler serves presence labels
type PresenceHandler struct {
	pipeline SignalPipeline
	socket   http.Handler
}

// NewPresenceHandler creates a new presence handler. socket may be nil when the
// realtime channel is not available.
func NewPresenceHandler(pipeline SignalPipeline, socket http.Handler) *PresenceHandler {
	return &PresenceHandler{pipeline: pipeline, socket: socket}
}

// RegisterRoutes registers presence routes on a router already prefixed with /presence
func (h *PresenceHandler) RegisterRoutes(r *mux.Router) {
	if h.socket != nil {
		r.Handle("/socket", h.socket).Methods("GET")
	}
	r.HandleFunc("", h.GetPresenceMany).Methods("GET")
	r.HandleFunc("/{userID}", h.GetPresence).Methods("GET")
}

// GetPresence returns the presence label for one user
func (h *PresenceHandler) GetPresence(w http.ResponseWriter, r *http.Request) {
	userID := validation.SanitizeText(mux.Vars(r)["userID"])
	if userID == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "user id is required")
		return
	}

	state, err := h.pipeline.GetPresence(r.Context(), userID)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// PresenceListResponse is the batch presence response
type PresenceListResponse struct {
	Users []models.PresenceState `json:"users"`
}

// GetPresenceMany resolves presence for every user_id query parameter, in order
func (h *PresenceHandler) GetPresenceMany(w http.ResponseWriter, r *http.Request) {
	var userIDs []string
	for _, raw := range r.URL.Query()["user_id"] {
		if userID := validation.SanitizeText(raw); userID != "" {
			userIDs = append(userIDs, userID)
		}
	}
	if len(userIDs) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "at least one user_id is required")
		return
	}
	if len(userIDs) > MaxPresenceBatch {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "too many user_id values")
		return
	}

	states, err := h.pipeline.GetPresenceMany(r.Context(), userIDs)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, PresenceListResponse{Users: states})
}
