package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"chirp/internal/cache"
	"chirp/internal/metrics"
	"chirp/internal/model"
	"chirp/internal/queue"
	"chirp/internal/repository"
)

// backfillLimit caps how much followee activity is copied into a follower's
// cache on a new follow.
const backfillLimit = 50

// Handler processes feed events: fan-out to follower caches and notification
// writes. All operations are idempotent, so redelivered messages are safe.
type Handler struct {
	feedCache  cache.FeedCache
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	notifRepo  repository.NotificationRepository
}

// NewHandler creates a feed event handler.
func NewHandler(feedCache cache.FeedCache, postRepo repository.PostRepository, followRepo repository.FollowRepository, notifRepo repository.NotificationRepository) *Handler {
	return &Handler{
		feedCache:  feedCache,
		postRepo:   postRepo,
		followRepo: followRepo,
		notifRepo:  notifRepo,
	}
}

// Handle dispatches one stream message to the matching event handler.
func (h *Handler) Handle(ctx context.Context, msg redis.XMessage) error {
	event, err := queue.ParseFeedEvent(msg.Values)
	if err != nil {
		return fmt.Errorf("parse event: %w", err)
	}

	err = h.dispatch(ctx, event)
	metrics.ObserveFeedEvent(event.Type, err)
	return err
}

func (h *Handler) dispatch(ctx context.Context, event queue.FeedEvent) error {
	switch event.Type {
	case queue.EventPostCreated:
		return h.handlePostCreated(ctx, event)
	case queue.EventPostDeleted:
		return h.handlePostDeleted(ctx, event)
	case queue.EventPostReposted:
		return h.handlePostReposted(ctx, event)
	case queue.EventRepostRemoved:
		return h.handleRepostRemoved(ctx, event)
	case queue.EventPostLiked:
		return h.notify(ctx, event, model.NotificationTypeLike)
	case queue.EventPostReplied:
		return h.notify(ctx, event, model.NotificationTypeReply)
	case queue.EventUserFollowed:
		return h.handleUserFollowed(ctx, event)
	case queue.EventUserUnfollowed:
		return h.handleUserUnfollowed(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type %q, skipping", event.Type)
		return nil
	}
}

// handlePostCreated fans the new post out to every follower's cache and to
// the author's own cache.
func (h *Handler) handlePostCreated(ctx context.Context, event queue.FeedEvent) error {
	followerIDs, err := h.followRepo.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	entry := cache.FeedEntry{PostID: event.PostID, Timestamp: event.Timestamp}
	targets := append(followerIDs, event.AuthorID)

	var failed int
	for _, userID := range targets {
		if err := h.feedCache.AddEntry(ctx, userID, entry); err != nil {
			failed++
		}
	}
	if failed > 0 {
		log.Printf("[Worker] post_created fan-out for post %d: %d/%d caches FAILED", event.PostID, failed, len(targets))
	}
	return nil
}

// handlePostDeleted strips cached entries referencing the post from the
// author's followers. Repost-attributed entries in other caches cannot be
// enumerated once the reposts rows are cascaded away; hydration drops
// entries whose post no longer exists, so those fade out on read.
func (h *Handler) handlePostDeleted(ctx context.Context, event queue.FeedEvent) error {
	followerIDs, err := h.followRepo.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	targets := append(followerIDs, event.AuthorID)
	for _, userID := range targets {
		if err := h.feedCache.RemovePost(ctx, userID, event.PostID); err != nil {
			log.Printf("[Worker] FAILED to remove post %d from cache of user %d: %v", event.PostID, userID, err)
		}
	}
	return nil
}

// handlePostReposted fans the attributed entry out to the reposter's
// followers and notifies the post author.
func (h *Handler) handlePostReposted(ctx context.Context, event queue.FeedEvent) error {
	followerIDs, err := h.followRepo.GetFollowerIDs(ctx, event.ActorID)
	if err != nil {
		return fmt.Errorf("get reposter followers: %w", err)
	}

	entry := cache.FeedEntry{
		PostID:     event.PostID,
		RepostedBy: event.ActorID,
		Timestamp:  event.Timestamp,
	}
	targets := append(followerIDs, event.ActorID)
	for _, userID := range targets {
		if err := h.feedCache.AddEntry(ctx, userID, entry); err != nil {
			log.Printf("[Worker] FAILED to add repost entry to cache of user %d: %v", userID, err)
		}
	}

	return h.notify(ctx, event, model.NotificationTypeRepost)
}

func (h *Handler) handleRepostRemoved(ctx context.Context, event queue.FeedEvent) error {
	followerIDs, err := h.followRepo.GetFollowerIDs(ctx, event.ActorID)
	if err != nil {
		return fmt.Errorf("get reposter followers: %w", err)
	}

	entry := cache.FeedEntry{PostID: event.PostID, RepostedBy: event.ActorID}
	targets := append(followerIDs, event.ActorID)
	for _, userID := range targets {
		if err := h.feedCache.RemoveEntry(ctx, userID, entry); err != nil {
			log.Printf("[Worker] FAILED to remove repost entry from cache of user %d: %v", userID, err)
		}
	}
	return nil
}

// handleUserFollowed backfills the followee's recent activity into the
// follower's cache and records a follow notification.
func (h *Handler) handleUserFollowed(ctx context.Context, event queue.FeedEvent) error {
	entries, err := h.postRepo.GetRecentEntriesByUser(ctx, event.FolloweeID, backfillLimit)
	if err != nil {
		return fmt.Errorf("get followee activity: %w", err)
	}
	if err := h.feedCache.WarmCache(ctx, event.FollowerID, entries); err != nil {
		log.Printf("[Worker] FAILED to backfill cache of user %d: %v", event.FollowerID, err)
	}

	n := &model.Notification{
		UserID:  event.FolloweeID,
		ActorID: event.FollowerID,
		Type:    model.NotificationTypeFollow,
	}
	if err := h.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("create follow notification: %w", err)
	}
	return nil
}

// handleUserUnfollowed strips the ex-followee's activity from the follower's
// cache.
func (h *Handler) handleUserUnfollowed(ctx context.Context, event queue.FeedEvent) error {
	entries, err := h.postRepo.GetRecentEntriesByUser(ctx, event.FolloweeID, cache.FeedCacheCap)
	if err != nil {
		return fmt.Errorf("get ex-followee activity: %w", err)
	}
	for _, entry := range entries {
		if err := h.feedCache.RemoveEntry(ctx, event.FollowerID, entry); err != nil {
			log.Printf("[Worker] FAILED to remove entry from cache of user %d: %v", event.FollowerID, err)
		}
	}
	return nil
}

func (h *Handler) notify(ctx context.Context, event queue.FeedEvent, notifType string) error {
	n := &model.Notification{
		UserID:  event.RecipientID,
		ActorID: event.ActorID,
		Type:    notifType,
		PostID:  &event.PostID,
	}
	if err := h.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("create %s notification: %w", notifType, err)
	}
	return nil
}
