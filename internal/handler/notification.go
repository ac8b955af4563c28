package handler

import (
	"encoding/json"
	"net/http"

	"chirp/internal/httputil"
	"chirp/internal/model"
	"chirp/internal/service"
	"chirp/internal/transport/http/middleware"
)

// NotificationHandler handles the notifications screen.
type NotificationHandler struct {
	notifSvc *service.NotificationService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(notifSvc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifSvc: notifSvc}
}

// List handles GET /notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	resp, err := h.notifSvc.List(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not load notifications")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// MarkRead handles POST /notifications/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req model.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.notifSvc.MarkRead(r.Context(), userID, req.NotificationIDs); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not mark notifications read")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "marked read"})
}
