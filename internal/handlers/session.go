package handlers

import (
	"net/http"

	"github.com/benvon/smartmatch/internal/request"
	"github.com/gorilla/mux"
)

// SessionHandler drives preference hydration for a client session
type SessionHandler struct {
	pipeline SignalPipeline
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(pipeline SignalPipeline) *SessionHandler {
	return &SessionHandler{pipeline: pipeline}
}

// RegisterRoutes registers session routes on a router already prefixed with /session
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSession).Methods("GET")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")
}

// SessionResponse describes the hydration state of the caller's session
type SessionResponse struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// Login hydrates preferences for the session. It returns once they are loaded.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	id := request.IdentityFromContext(r)
	if err := h.pipeline.OnLogin(r.Context(), id); err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{
		UserID:    id.UserID,
		SessionID: id.SessionID,
		State:     h.pipeline.SessionState(id).String(),
	})
}

// Logout resets the session. It is idempotent and does not require a user.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := request.IdentityFromContext(r)
	if id.SessionID == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "session id is required")
		return
	}
	h.pipeline.OnLogout(id)
	respondJSON(w, http.StatusOK, SessionResponse{
		SessionID: id.SessionID,
		State:     h.pipeline.SessionState(id).String(),
	})
}

// GetSession reports the hydration state without changing it
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := request.IdentityFromContext(r)
	if id.SessionID == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "session id is required")
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{
		UserID:    id.UserID,
		SessionID: id.SessionID,
		State:     h.pipeline.SessionState(id).String(),
	})
}
