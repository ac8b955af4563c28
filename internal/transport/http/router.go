package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"chirp/internal/handler"
	"chirp/internal/httputil"
	"chirp/internal/metrics"
	authmw "chirp/internal/transport/http/middleware"
)

// Handlers bundles every HTTP handler wired into the router.
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Post         *handler.PostHandler
	Feed         *handler.FeedHandler
	Bookmark     *handler.BookmarkHandler
	Search       *handler.SearchHandler
	Notification *handler.NotificationHandler
}

// NewRouter builds the chi router with all routes mounted.
func NewRouter(h Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Auth
	r.Post("/auth/register", h.Auth.Register)
	r.Post("/auth/login", h.Auth.Login)
	r.Post("/auth/refresh", h.Auth.Refresh)
	r.Post("/auth/logout", h.Auth.Logout)
	r.Get("/auth/github", h.Auth.GitHubRedirect)
	r.Get("/auth/github/callback", h.Auth.GitHubCallback)

	// Public routes, viewer-aware when a token is present.
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(jwtSecret))

		r.Get("/users/{username}", h.User.GetProfile)
		r.Get("/users/{username}/posts", h.User.GetUserPosts)
		r.Get("/users/{username}/likes", h.User.GetUserLikes)
		r.Get("/users/{username}/replies", h.User.GetUserReplies)
		r.Get("/users/{username}/followers", h.User.GetFollowers)
		r.Get("/users/{username}/following", h.User.GetFollowing)

		r.Get("/posts/{id}", h.Post.Get)
		r.Get("/posts/{id}/replies", h.Post.GetReplies)
		r.Get("/posts/{id}/likes", h.Post.GetLikers)
		r.Get("/posts/{id}/reposts", h.Post.GetReposters)

		r.Get("/hashtags/{tag}", h.Search.GetHashtagPosts)
		r.Get("/search", h.Search.Search)
	})

	// Protected routes.
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(jwtSecret))

		r.Post("/auth/logout-all", h.Auth.LogoutAll)

		r.Get("/me", h.User.GetMe)
		r.Patch("/me", h.User.UpdateMe)
		r.Post("/me/avatar", h.User.UploadAvatar)
		r.Post("/me/username-check", h.User.CheckUsername)

		r.Post("/users/{id}/follow", h.User.ToggleFollow)

		r.Get("/feed", h.Feed.GetFeed)

		r.Post("/posts", h.Post.Create)
		r.Delete("/posts/{id}", h.Post.Delete)
		r.Post("/posts/{id}/replies", h.Post.CreateReply)
		r.Post("/posts/{id}/like", h.Post.ToggleLike)
		r.Post("/posts/{id}/repost", h.Post.ToggleRepost)
		r.Post("/posts/{id}/bookmark", h.Post.ToggleBookmark)

		r.Get("/bookmarks", h.Bookmark.List)

		r.Get("/notifications", h.Notification.List)
		r.Post("/notifications/read", h.Notification.MarkRead)
	})

	return r
}
