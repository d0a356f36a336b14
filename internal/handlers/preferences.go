package handlers

import (
	"net/http"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/request"
	"github.com/benvon/smartmatch/internal/validation"
	"github.com/gorilla/mux"
)

// PreferenceHandler reads and updates the caller's recommendation preferences
type PreferenceHandler struct {
	pipeline SignalPipeline
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(pipeline SignalPipeline) *PreferenceHandler {
	return &PreferenceHandler{pipeline: pipeline}
}

// RegisterRoutes registers preference routes on a router already prefixed with /preferences
func (h *PreferenceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetPreferences).Methods("GET")
	r.HandleFunc("", h.UpdatePreferences).Methods("PUT")
}

// UpdatePreferencesRequest represents a preference update
type UpdatePreferencesRequest struct {
	SeekingGender []string `json:"seeking_gender"`
	MinAge        int      `json:"min_age"`
	MaxAge        int      `json:"max_age"`
}

// GetPreferences returns the hydrated preferences for the caller
func (h *PreferenceHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	id := request.IdentityFromContext(r)
	if !id.Authenticated() {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	prefs, ok := h.pipeline.Preferences(id.UserID)
	if !ok {
		respondJSONError(w, http.StatusConflict, "Conflict", "preferences not loaded for this session; call /api/v1/session/login first")
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences replaces the caller's preferences. The caller's recommendations
// are recomputed on the next read.
func (h *PreferenceHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	id := request.IdentityFromContext(r)
	if !id.Authenticated() {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}

	var req UpdatePreferencesRequest
	if !decodeJSON(w, r, &req, nil) {
		return
	}
	prefs := &models.Preferences{
		UserID:        id.UserID,
		SeekingGender: req.SeekingGender,
		MinAge:        req.MinAge,
		MaxAge:        req.MaxAge,
	}
	if err := validation.ValidatePreferences(prefs); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	updated, err := h.pipeline.UpdatePreferences(r.Context(), id, prefs)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
