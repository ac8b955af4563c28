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

// UserHandler handles profile, follow and avatar endpoints.
type UserHandler struct {
	userSvc  *service.UserService
	mediaSvc *service.MediaService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userSvc *service.UserService, mediaSvc *service.MediaService) *UserHandler {
	return &UserHandler{userSvc: userSvc, mediaSvc: mediaSvc}
}

// GetMe handles GET /me.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	resp, err := h.userSvc.GetMe(r.Context(), userID)
	if err != nil {
		writeUserError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// UpdateMe handles PATCH /me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userSvc.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, model.ErrBioTooLong) {
			httputil.WriteError(w, http.StatusBadRequest, "bio exceeds maximum length")
			return
		}
		writeUserError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// UploadAvatar handles POST /me/avatar (multipart form, field "avatar").
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(model.MaxAvatarSizeBytes); err != nil {
		httputil.WriteErrorCode(w, http.StatusRequestEntityTooLarge, model.CodeFileTooLarge, "avatar exceeds size limit")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	result, err := h.mediaSvc.UploadAvatar(r.Context(), userID, file, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteErrorCode(w, http.StatusBadRequest, model.CodeInvalidImageType, "unsupported image type")
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteErrorCode(w, http.StatusRequestEntityTooLarge, model.CodeFileTooLarge, "avatar exceeds size limit")
		default:
			httputil.WriteError(w, http.StatusInternalServerError, "avatar upload failed")
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// CheckUsername handles POST /me/username-check.
func (h *UserHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req model.UsernameCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.userSvc.CheckUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, model.ErrInvalidUsername) {
			httputil.WriteError(w, http.StatusBadRequest, "username must be 1-15 characters: letters, digits, underscores")
			return
		}
		writeUserError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetProfile handles GET /users/{username}.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserIDFromContext(r.Context())
	resp, err := h.userSvc.GetProfile(r.Context(), viewerID, chi.URLParam(r, "username"))
	if err != nil {
		writeUserError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetUserPosts handles GET /users/{username}/posts.
func (h *UserHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	h.listPosts(w, r, h.userSvc.GetUserPosts)
}

// GetUserLikes handles GET /users/{username}/likes.
func (h *UserHandler) GetUserLikes(w http.ResponseWriter, r *http.Request) {
	h.listPosts(w, r, h.userSvc.GetUserLikes)
}

// GetUserReplies handles GET /users/{username}/replies.
func (h *UserHandler) GetUserReplies(w http.ResponseWriter, r *http.Request) {
	h.listPosts(w, r, h.userSvc.GetUserReplies)
}

// GetFollowers handles GET /users/{username}/followers.
func (h *UserHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.userSvc.GetFollowers)
}

// GetFollowing handles GET /users/{username}/following.
func (h *UserHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.userSvc.GetFollowing)
}

// ToggleFollow handles POST /users/{id}/follow.
func (h *UserHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserIDFromContext(r.Context())
	followeeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	resp, err := h.userSvc.ToggleFollow(r.Context(), viewerID, followeeID)
	if err != nil {
		if errors.Is(err, model.ErrCannotFollowSelf) {
			httputil.WriteError(w, http.StatusBadRequest, "cannot follow yourself")
			return
		}
		writeUserError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) listPosts(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, viewerID int64, username, cursor string) (*model.PostListResponse, error)) {
	viewerID := middleware.GetUserIDFromContext(r.Context())
	resp, err := list(r.Context(), viewerID, chi.URLParam(r, "username"), r.URL.Query().Get("cursor"))
	if err != nil {
		writeUserError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, viewerID int64, username, cursor string) (*model.FollowListResponse, error)) {
	viewerID := middleware.GetUserIDFromContext(r.Context())
	resp, err := list(r.Context(), viewerID, chi.URLParam(r, "username"), r.URL.Query().Get("cursor"))
	if err != nil {
		writeUserError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func writeUserError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrUserNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
}
