package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chirp/internal/httputil"
	"chirp/internal/model"
	"chirp/internal/service"
	"chirp/internal/transport/http/middleware"
)

// PostHandler handles post CRUD, toggles and post sub-lists.
type PostHandler struct {
	postSvc *service.PostService
}

// NewPostHandler creates a new post handler.
func NewPostHandler(postSvc *service.PostService) *PostHandler {
	return &PostHandler{postSvc: postSvc}
}

// Create handles POST /posts.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.postSvc.Create(r.Context(), userID, req)
	if err != nil {
		writePostError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, post)
}

// CreateReply handles POST /posts/{id}/replies.
func (h *PostHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.postSvc.CreateReply(r.Context(), userID, postID, req)
	if err != nil {
		writePostError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reply)
}

// Get handles GET /posts/{id}.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserIDFromContext(r.Context())
	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	post, err := h.postSvc.Get(r.Context(), viewerID, postID)
	if err != nil {
		writePostError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/{id}.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	if err := h.postSvc.Delete(r.Context(), userID, postID); err != nil {
		writePostError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

// ToggleLike handles POST /posts/{id}/like.
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.postSvc.ToggleLike)
}

// ToggleRepost handles POST /posts/{id}/repost.
func (h *PostHandler) ToggleRepost(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.postSvc.ToggleRepost)
}

// ToggleBookmark handles POST /posts/{id}/bookmark.
func (h *PostHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.postSvc.ToggleBookmark)
}

func (h *PostHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, postID int64) (*model.ToggleResponse, error)) {
	userID := middleware.GetUserIDFromContext(r.Context())
	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	resp, err := fn(r.Context(), userID, postID)
	if err != nil {
		writePostError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetReplies handles GET /posts/{id}/replies.
func (h *PostHandler) GetReplies(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserIDFromContext(r.Context())
	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	resp, err := h.postSvc.GetReplies(r.Context(), viewerID, postID, r.URL.Query().Get("cursor"))
	if err != nil {
		writePostError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetLikers handles GET /posts/{id}/likes.
func (h *PostHandler) GetLikers(w http.ResponseWriter, r *http.Request) {
	h.listActors(w, r, h.postSvc.GetLikers)
}

// GetReposters handles GET /posts/{id}/reposts.
func (h *PostHandler) GetReposters(w http.ResponseWriter, r *http.Request) {
	h.listActors(w, r, h.postSvc.GetReposters)
}

func (h *PostHandler) listActors(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, viewerID, postID int64, cursor string) (*model.FollowListResponse, error)) {
	viewerID := middleware.GetUserIDFromContext(r.Context())
	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	resp, err := fn(r.Context(), viewerID, postID, r.URL.Query().Get("cursor"))
	if err != nil {
		writePostError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func parsePostID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid post id")
		return 0, false
	}
	return postID, true
}

func writePostError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrPostNotFound):
		httputil.WriteError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, model.ErrNotPostOwner):
		httputil.WriteError(w, http.StatusForbidden, "not the owner of this post")
	case errors.Is(err, model.ErrMessageRequired):
		httputil.WriteError(w, http.StatusBadRequest, "message is required")
	case errors.Is(err, model.ErrMessageTooLong):
		httputil.WriteError(w, http.StatusBadRequest, "message exceeds maximum length")
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
