package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"chirp/internal/httputil"
	"chirp/internal/service"
	"chirp/internal/transport/http/middleware"
)

// SearchHandler handles search and hashtag browsing.
type SearchHandler struct {
	searchSvc *service.SearchService
	postSvc   *service.PostService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searchSvc *service.SearchService, postSvc *service.PostService) *SearchHandler {
	return &SearchHandler{searchSvc: searchSvc, postSvc: postSvc}
}

// Search handles GET /search?q=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserIDFromContext(r.Context())

	resp, err := h.searchSvc.Search(r.Context(), viewerID, r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "search failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetHashtagPosts handles GET /hashtags/{tag}.
func (h *SearchHandler) GetHashtagPosts(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserIDFromContext(r.Context())

	resp, err := h.postSvc.GetPostsByHashtag(r.Context(), viewerID, chi.URLParam(r, "tag"), r.URL.Query().Get("cursor"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not load hashtag posts")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
