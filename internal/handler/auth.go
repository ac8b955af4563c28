package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chirp/internal/httputil"
	"chirp/internal/model"
	"chirp/internal/service"
	"chirp/internal/transport/http/middleware"
)

const oauthStateCookie = "oauth_state"

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Register(r.Context(), req, r.UserAgent(), clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidUsername):
			httputil.WriteError(w, http.StatusBadRequest, "username must be 1-15 characters: letters, digits, underscores")
		case errors.Is(err, model.ErrUsernameExists):
			httputil.WriteError(w, http.StatusConflict, "username already taken")
		default:
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Login(r.Context(), req, r.UserAgent(), clientIP(r))
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "login failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.WriteError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.authSvc.Refresh(r.Context(), req.RefreshToken, r.UserAgent(), clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRefreshTokenReused):
			httputil.WriteErrorCode(w, http.StatusUnauthorized, model.CodeTokenReused, "refresh token reuse detected, all sessions revoked")
		case errors.Is(err, model.ErrRefreshTokenExpired):
			httputil.WriteErrorCode(w, http.StatusUnauthorized, model.CodeTokenExpired, "refresh token expired")
		case errors.Is(err, model.ErrRefreshTokenNotFound):
			httputil.WriteErrorCode(w, http.StatusUnauthorized, model.CodeTokenInvalid, "invalid refresh token")
		default:
			httputil.WriteError(w, http.StatusInternalServerError, "token refresh failed")
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.WriteError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := h.authSvc.Logout(r.Context(), req.RefreshToken); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// LogoutAll handles POST /auth/logout-all.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if err := h.authSvc.LogoutAll(r.Context(), userID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "all sessions revoked"})
}

// GitHubRedirect handles GET /auth/github: sets a CSRF state cookie and
// redirects to GitHub's authorization page.
func (h *AuthHandler) GitHubRedirect(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not start oauth flow")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.authSvc.GitHubAuthURL(state), http.StatusTemporaryRedirect)
}

// GitHubCallback handles GET /auth/github/callback.
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		httputil.WriteError(w, http.StatusBadRequest, model.ErrOAuthStateMismatch.Error())
		return
	}
	// State is single-use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	resp, err := h.authSvc.HandleGitHubCallback(r.Context(), code, r.UserAgent(), clientIP(r))
	if err != nil {
		if errors.Is(err, model.ErrOAuthExchange) {
			httputil.WriteError(w, http.StatusBadGateway, "github code exchange failed")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "github sign-in failed")
		return
	}

	status := http.StatusOK
	if resp.IsNewUser {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, resp)
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
