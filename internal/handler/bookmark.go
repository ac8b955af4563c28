package handler

import (
	"net/http"

	"chirp/internal/httputil"
	"chirp/internal/service"
	"chirp/internal/transport/http/middleware"
)

// BookmarkHandler handles the bookmarks list endpoint.
type BookmarkHandler struct {
	postSvc *service.PostService
}

// NewBookmarkHandler creates a new bookmark handler.
func NewBookmarkHandler(postSvc *service.PostService) *BookmarkHandler {
	return &BookmarkHandler{postSvc: postSvc}
}

// List handles GET /bookmarks.
func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	resp, err := h.postSvc.GetBookmarks(r.Context(), userID, r.URL.Query().Get("cursor"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not load bookmarks")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
