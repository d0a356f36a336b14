package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/benvon/smartmatch/internal/apperr"
	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/request"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RecommendationHandler serves paged SmartMatch recommendations
type RecommendationHandler struct {
	pipeline SignalPipeline
	log      *zap.Logger
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(pipeline SignalPipeline, log *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{pipeline: pipeline, log: logger.OrNop(log)}
}

// RegisterRoutes registers recommendation routes on a router already prefixed with /recommendations
func (h *RecommendationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetRecommendations).Methods("GET")
}

// GetRecommendations returns one page. A stale page (refresh failed, previous list
// served) is still a 200 with "stale": true.
func (h *RecommendationHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	id := request.IdentityFromContext(r)

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 1 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "page must be a positive integer")
			return
		}
		page = parsed
	}
	// 0 lets the cache apply its default page size
	pageSize := 0
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		parsed, err := strconv.Atoi(ps)
		if err != nil || parsed < 1 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "page_size must be a positive integer")
			return
		}
		pageSize = parsed
	}

	result, err := h.pipeline.GetRecommendations(r.Context(), id, page, pageSize)
	if err != nil {
		if !errors.Is(err, apperr.ErrRefreshFailed) {
			respondPipelineError(w, err)
			return
		}
		h.log.Warn("serving_stale_recommendations", logger.UserID(id.UserID), zap.Error(err))
	}
	respondJSON(w, http.StatusOK, result)
}
