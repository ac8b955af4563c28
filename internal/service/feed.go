package service

import (
	"context"
	"log"
	"strconv"
	"time"

	"chirp/internal/cache"
	"chirp/internal/model"
	"chirp/internal/repository"
)

// FeedService assembles home timelines from the Redis feed cache, falling
// back to Postgres and warming the cache on a miss.
type FeedService struct {
	feedCache cache.FeedCache
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	postSvc   *PostService
}

// NewFeedService creates a new feed service.
func NewFeedService(feedCache cache.FeedCache, postRepo repository.PostRepository, userRepo repository.UserRepository, postSvc *PostService) *FeedService {
	return &FeedService{
		feedCache: feedCache,
		postRepo:  postRepo,
		userRepo:  userRepo,
		postSvc:   postSvc,
	}
}

// GetFeed returns a page of the viewer's home timeline, newest activity
// first. The cursor is the score of the last entry of the previous page.
func (s *FeedService) GetFeed(ctx context.Context, userID int64, cursorStr string) (*model.FeedResponse, error) {
	var cursorScore *float64
	if cursorStr != "" {
		score, err := strconv.ParseFloat(cursorStr, 64)
		if err != nil {
			return nil, err
		}
		cursorScore = &score
	}

	if err := s.ensureWarm(ctx, userID); err != nil {
		log.Printf("[Feed] FAILED to warm cache for user %d: %v", userID, err)
	}

	entries, scores, err := s.feedCache.GetPage(ctx, userID, cursorScore, DefaultPageSize+1)
	if err != nil || len(entries) == 0 {
		if err != nil {
			log.Printf("[Feed] Cache read FAILED for user %d, falling back to database: %v", userID, err)
		}
		entries, scores, err = s.readThrough(ctx, userID, cursorScore)
		if err != nil {
			return nil, err
		}
	}

	return s.assemble(ctx, userID, entries, scores)
}

// ensureWarm populates the feed cache from Postgres when it is empty, which
// happens for new sessions and after TTL expiry.
func (s *FeedService) ensureWarm(ctx context.Context, userID int64) error {
	exists, err := s.feedCache.Exists(ctx, userID)
	if err != nil || exists {
		return err
	}

	entries, err := s.postRepo.GetFeedEntries(ctx, userID, time.Now(), cache.FeedCacheCap)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return s.feedCache.WarmCache(ctx, userID, entries)
}

// readThrough serves a page straight from Postgres, for pages older than the
// cache cap or when Redis is unavailable.
func (s *FeedService) readThrough(ctx context.Context, userID int64, cursorScore *float64) ([]cache.FeedEntry, []float64, error) {
	before := time.Now()
	if cursorScore != nil {
		before = time.Unix(int64(*cursorScore), 0)
	}

	entries, err := s.postRepo.GetFeedEntries(ctx, userID, before, DefaultPageSize+1)
	if err != nil {
		return nil, nil, err
	}

	scores := make([]float64, len(entries))
	for i, e := range entries {
		scores[i] = float64(e.Timestamp)
	}
	return entries, scores, nil
}

// assemble hydrates a limit+1 page of feed entries. Entries whose post has
// been deleted since caching are dropped silently.
func (s *FeedService) assemble(ctx context.Context, userID int64, entries []cache.FeedEntry, scores []float64) (*model.FeedResponse, error) {
	hasMore := len(entries) > DefaultPageSize
	if hasMore {
		entries = entries[:DefaultPageSize]
		scores = scores[:DefaultPageSize]
	}

	postIDs := make([]int64, 0, len(entries))
	reposterIDSet := make(map[int64]struct{})
	for _, e := range entries {
		postIDs = append(postIDs, e.PostID)
		if e.RepostedBy != 0 {
			reposterIDSet[e.RepostedBy] = struct{}{}
		}
	}

	postsByID, err := s.postRepo.GetByIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	reposterIDs := make([]int64, 0, len(reposterIDSet))
	for id := range reposterIDSet {
		reposterIDs = append(reposterIDs, id)
	}
	reposters, err := s.userRepo.GetSummariesByIDs(ctx, reposterIDs)
	if err != nil {
		return nil, err
	}

	posts := make([]*model.Post, 0, len(entries))
	kept := make([]int, 0, len(entries))
	for i, e := range entries {
		p, ok := postsByID[e.PostID]
		if !ok {
			continue // deleted since the entry was cached
		}
		copied := *p
		posts = append(posts, &copied)
		kept = append(kept, i)
	}

	if err := s.postSvc.hydrate(ctx, userID, posts); err != nil {
		return nil, err
	}

	resp := &model.FeedResponse{
		Posts:   make([]model.FeedPost, len(posts)),
		HasMore: hasMore,
	}
	var lastScore float64
	for i, p := range posts {
		entry := entries[kept[i]]
		lastScore = scores[kept[i]]

		fp := model.FeedPost{Post: *p, ActivityAt: time.Unix(entry.Timestamp, 0)}
		if entry.RepostedBy != 0 {
			if rb, ok := reposters[entry.RepostedBy]; ok {
				r := rb
				fp.RepostedBy = &r
			}
		}
		resp.Posts[i] = fp
	}

	if hasMore && len(resp.Posts) > 0 {
		c := strconv.FormatFloat(lastScore, 'f', -1, 64)
		resp.NextCursor = &c
	}
	return resp, nil
}
