package handler

import (
	"net/http"

	"chirp/internal/httputil"
	"chirp/internal/service"
	"chirp/internal/transport/http/middleware"
)

// FeedHandler handles the home timeline endpoint.
type FeedHandler struct {
	feedSvc *service.FeedService
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(feedSvc *service.FeedService) *FeedHandler {
	return &FeedHandler{feedSvc: feedSvc}
}

// GetFeed handles GET /feed.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	resp, err := h.feedSvc.GetFeed(r.Context(), userID, r.URL.Query().Get("cursor"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not load feed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
