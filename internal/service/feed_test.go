package service

import (
	"context"
	"testing"
	"time"

	"chirp/internal/cache"
	"chirp/internal/model"
)

func newFeedFixture(feedCache cache.FeedCache, postRepo *mockPostRepo, userRepo *mockUserRepo) *FeedService {
	if postRepo == nil {
		postRepo = &mockPostRepo{}
	}
	if userRepo == nil {
		userRepo = &mockUserRepo{}
	}
	postSvc := NewPostService(postRepo, userRepo, &mockFollowRepo{}, &mockBookmarkRepo{}, &mockHashtagRepo{}, &mockPublisher{})
	return NewFeedService(feedCache, postRepo, userRepo, postSvc)
}

// The feed must come back newest activity first regardless of cache
// insertion order.
func TestFeedDescendingOrder(t *testing.T) {
	now := time.Now().Unix()
	fc := newMockFeedCache()
	fc.entries[1] = []cache.FeedEntry{
		{PostID: 101, Timestamp: now - 300},
		{PostID: 103, Timestamp: now - 10},
		{PostID: 102, Timestamp: now - 60},
	}

	postRepo := &mockPostRepo{
		getByIDsFn: func(ctx context.Context, ids []int64) (map[int64]*model.Post, error) {
			posts := make(map[int64]*model.Post)
			for _, id := range ids {
				posts[id] = &model.Post{ID: id, UserID: 2, Message: "m", CreatedAt: time.Now()}
			}
			return posts, nil
		},
	}

	svc := newFeedFixture(fc, postRepo, nil)
	resp, err := svc.GetFeed(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}

	if len(resp.Posts) != 3 {
		t.Fatalf("got %d posts, want 3", len(resp.Posts))
	}
	for i := 1; i < len(resp.Posts); i++ {
		if resp.Posts[i].ActivityAt.After(resp.Posts[i-1].ActivityAt) {
			t.Errorf("posts out of order at %d: %v after %v", i, resp.Posts[i].ActivityAt, resp.Posts[i-1].ActivityAt)
		}
	}
	if resp.Posts[0].ID != 103 || resp.Posts[2].ID != 101 {
		t.Errorf("order = [%d %d %d], want [103 102 101]", resp.Posts[0].ID, resp.Posts[1].ID, resp.Posts[2].ID)
	}
}

// Cache entries whose post was deleted must vanish from the page.
func TestFeedDropsDeletedPosts(t *testing.T) {
	now := time.Now().Unix()
	fc := newMockFeedCache()
	fc.entries[1] = []cache.FeedEntry{
		{PostID: 101, Timestamp: now - 20},
		{PostID: 102, Timestamp: now - 10},
	}

	postRepo := &mockPostRepo{
		getByIDsFn: func(ctx context.Context, ids []int64) (map[int64]*model.Post, error) {
			// 102 was deleted after caching.
			return map[int64]*model.Post{
				101: {ID: 101, UserID: 2, Message: "still here", CreatedAt: time.Now()},
			}, nil
		},
	}

	svc := newFeedFixture(fc, postRepo, nil)
	resp, err := svc.GetFeed(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}

	if len(resp.Posts) != 1 || resp.Posts[0].ID != 101 {
		t.Errorf("posts = %+v, want only post 101", resp.Posts)
	}
}

// Repost entries carry the reposter's summary.
func TestFeedRepostAttribution(t *testing.T) {
	now := time.Now().Unix()
	fc := newMockFeedCache()
	fc.entries[1] = []cache.FeedEntry{
		{PostID: 101, RepostedBy: 7, Timestamp: now - 5},
	}

	postRepo := &mockPostRepo{
		getByIDsFn: func(ctx context.Context, ids []int64) (map[int64]*model.Post, error) {
			return map[int64]*model.Post{
				101: {ID: 101, UserID: 2, Message: "m", CreatedAt: time.Now()},
			}, nil
		},
	}
	userRepo := &mockUserRepo{
		getSummariesByIDsFn: func(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
			return map[int64]model.UserSummary{
				2: {ID: 2, Username: "author"},
				7: {ID: 7, Username: "reposter"},
			}, nil
		},
	}

	svc := newFeedFixture(fc, postRepo, userRepo)
	resp, err := svc.GetFeed(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}

	if len(resp.Posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(resp.Posts))
	}
	fp := resp.Posts[0]
	if fp.RepostedBy == nil || fp.RepostedBy.Username != "reposter" {
		t.Errorf("RepostedBy = %+v, want reposter", fp.RepostedBy)
	}
	if fp.Author == nil || fp.Author.Username != "author" {
		t.Errorf("Author = %+v, want author", fp.Author)
	}
}

// An empty cache is warmed from the database before serving.
func TestFeedWarmsEmptyCache(t *testing.T) {
	now := time.Now().Unix()
	fc := newMockFeedCache()

	warmed := false
	postRepo := &mockPostRepo{
		getFeedEntriesFn: func(ctx context.Context, userID int64, before time.Time, limit int) ([]cache.FeedEntry, error) {
			warmed = true
			return []cache.FeedEntry{{PostID: 101, Timestamp: now - 10}}, nil
		},
		getByIDsFn: func(ctx context.Context, ids []int64) (map[int64]*model.Post, error) {
			return map[int64]*model.Post{
				101: {ID: 101, UserID: 2, Message: "m", CreatedAt: time.Now()},
			}, nil
		},
	}

	svc := newFeedFixture(fc, postRepo, nil)
	resp, err := svc.GetFeed(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}

	if !warmed {
		t.Error("feed entries were never read from the database")
	}
	if len(resp.Posts) != 1 {
		t.Errorf("got %d posts, want 1", len(resp.Posts))
	}
	if n, _ := fc.Size(context.Background(), 1); n != 1 {
		t.Errorf("cache size = %d, want 1 after warming", n)
	}
}
