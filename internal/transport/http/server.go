package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/handler"
	"chirp/internal/queue"
	redisclient "chirp/internal/redis"
	"chirp/internal/repository"
	"chirp/internal/service"
	"chirp/internal/worker"
)

// Run wires the full application together and serves until interrupted.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	followRepo := repository.NewFollowRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	hashtagRepo := repository.NewHashtagRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	// Infrastructure
	feedCache := cache.NewFeedCache(rdb)
	publisher := queue.NewPublisher(rdb)

	// Services
	authSvc := service.NewAuthService(userRepo, tokenRepo, cfg)
	postSvc := service.NewPostService(postRepo, userRepo, followRepo, bookmarkRepo, hashtagRepo, publisher)
	userSvc := service.NewUserService(userRepo, postRepo, followRepo, postSvc, publisher)
	feedSvc := service.NewFeedService(feedCache, postRepo, userRepo, postSvc)
	searchSvc := service.NewSearchService(userSvc, hashtagRepo)
	notifSvc := service.NewNotificationService(notifRepo)
	mediaSvc, err := service.NewMediaService(cfg, userRepo)
	if err != nil {
		return fmt.Errorf("init media service: %w", err)
	}

	// Feed workers
	workerHandler := worker.NewHandler(feedCache, postRepo, followRepo, notifRepo)
	manager := worker.NewManager(rdb, workerHandler, cfg.WorkerCount)
	if err := manager.Start(context.Background()); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}
	defer manager.Stop()

	router := NewRouter(Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		User:         handler.NewUserHandler(userSvc, mediaSvc),
		Post:         handler.NewPostHandler(postSvc),
		Feed:         handler.NewFeedHandler(feedSvc),
		Bookmark:     handler.NewBookmarkHandler(postSvc),
		Search:       handler.NewSearchHandler(searchSvc, postSvc),
		Notification: handler.NewNotificationHandler(notifSvc),
	}, cfg.JWTSecret)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		log.Printf("[Server] Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Printf("[Server] Shutdown complete")
	return nil
}
