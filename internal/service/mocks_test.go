package service

import (
	"context"
	"time"

	"chirp/internal/cache"
	"chirp/internal/model"
	"chirp/internal/queue"
	"chirp/internal/repository"
)

// Function-field mocks: each method delegates to the field when set and
// returns zero values otherwise.

type mockUserRepo struct {
	createFn            func(ctx context.Context, user *model.User) error
	getByIDFn           func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn     func(ctx context.Context, username string) (*model.User, error)
	getByGitHubIDFn     func(ctx context.Context, githubID int64) (*model.User, error)
	existsByUsernameFn  func(ctx context.Context, username string) (bool, error)
	updateFn            func(ctx context.Context, user *model.User) error
	searchFn            func(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
	getByUsernamesFn    func(ctx context.Context, usernames []string) (map[string]model.UserSummary, error)
	getSummariesByIDsFn func(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	if m.getByGitHubIDFn != nil {
		return m.getByGitHubIDFn(ctx, githubID)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByUsernames(ctx context.Context, usernames []string) (map[string]model.UserSummary, error) {
	if m.getByUsernamesFn != nil {
		return m.getByUsernamesFn(ctx, usernames)
	}
	return map[string]model.UserSummary{}, nil
}

func (m *mockUserRepo) GetSummariesByIDs(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	if m.getSummariesByIDsFn != nil {
		return m.getSummariesByIDsFn(ctx, ids)
	}
	return map[int64]model.UserSummary{}, nil
}

type mockPostRepo struct {
	createFn                 func(ctx context.Context, post *model.Post, hashtags []string) error
	getByIDFn                func(ctx context.Context, id int64) (*model.Post, error)
	getByIDsFn               func(ctx context.Context, ids []int64) (map[int64]*model.Post, error)
	deleteFn                 func(ctx context.Context, postID, userID int64) error
	getAuthorIDFn            func(ctx context.Context, postID int64) (int64, error)
	getUserPostsFn           func(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, error)
	getUserRepliesFn         func(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, error)
	getLikedPostsFn          func(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error)
	getRepliesToPostFn       func(ctx context.Context, postID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, error)
	getPostsByHashtagFn      func(ctx context.Context, tag string, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, error)
	getUserRepostsFn         func(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error)
	toggleLikeFn             func(ctx context.Context, postID, userID int64) (bool, int, error)
	toggleRepostFn           func(ctx context.Context, postID, userID int64) (bool, int, error)
	checkLikesFn             func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	checkRepostsFn           func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	getLikerUsernamesFn      func(ctx context.Context, postIDs []int64, perPost int) (map[int64][]string, error)
	getPostLikersFn          func(ctx context.Context, postID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error)
	getPostRepostersFn       func(ctx context.Context, postID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error)
	getFeedEntriesFn         func(ctx context.Context, userID int64, before time.Time, limit int) ([]cache.FeedEntry, error)
	getRecentEntriesByUserFn func(ctx context.Context, userID int64, limit int) ([]cache.FeedEntry, error)
}

func (m *mockPostRepo) Create(ctx context.Context, post *model.Post, hashtags []string) error {
	if m.createFn != nil {
		return m.createFn(ctx, post, hashtags)
	}
	return nil
}

func (m *mockPostRepo) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Post, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return map[int64]*model.Post{}, nil
}

func (m *mockPostRepo) Delete(ctx context.Context, postID, userID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, postID, userID)
	}
	return nil
}

func (m *mockPostRepo) GetAuthorID(ctx context.Context, postID int64) (int64, error) {
	if m.getAuthorIDFn != nil {
		return m.getAuthorIDFn(ctx, postID)
	}
	return 0, model.ErrPostNotFound
}

func (m *mockPostRepo) GetUserPosts(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, error) {
	if m.getUserPostsFn != nil {
		return m.getUserPostsFn(ctx, userID, cursor, hasCursor, limit)
	}
	return nil, nil
}

func (m *mockPostRepo) GetUserReplies(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, error) {
	if m.getUserRepliesFn != nil {
		return m.getUserRepliesFn(ctx, userID, cursor, hasCursor, limit)
	}
	return nil, nil
}

func (m *mockPostRepo) GetLikedPosts(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error) {
	if m.getLikedPostsFn != nil {
		return m.getLikedPostsFn(ctx, userID, cursor, hasCursor, limit)
	}
	return nil, nil, nil
}

func (m *mockPostRepo) GetRepliesToPost(ctx context.Context, postID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, error) {
	if m.getRepliesToPostFn != nil {
		return m.getRepliesToPostFn(ctx, postID, cursor, hasCursor, limit)
	}
	return nil, nil
}

func (m *mockPostRepo) GetPostsByHashtag(ctx context.Context, tag string, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, error) {
	if m.getPostsByHashtagFn != nil {
		return m.getPostsByHashtagFn(ctx, tag, cursor, hasCursor, limit)
	}
	return nil, nil
}

func (m *mockPostRepo) GetUserReposts(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error) {
	if m.getUserRepostsFn != nil {
		return m.getUserRepostsFn(ctx, userID, cursor, hasCursor, limit)
	}
	return nil, nil, nil
}

func (m *mockPostRepo) ToggleLike(ctx context.Context, postID, userID int64) (bool, int, error) {
	if m.toggleLikeFn != nil {
		return m.toggleLikeFn(ctx, postID, userID)
	}
	return false, 0, nil
}

func (m *mockPostRepo) ToggleRepost(ctx context.Context, postID, userID int64) (bool, int, error) {
	if m.toggleRepostFn != nil {
		return m.toggleRepostFn(ctx, postID, userID)
	}
	return false, 0, nil
}

func (m *mockPostRepo) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if m.checkLikesFn != nil {
		return m.checkLikesFn(ctx, userID, postIDs)
	}
	return map[int64]bool{}, nil
}

func (m *mockPostRepo) CheckReposts(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if m.checkRepostsFn != nil {
		return m.checkRepostsFn(ctx, userID, postIDs)
	}
	return map[int64]bool{}, nil
}

func (m *mockPostRepo) GetLikerUsernames(ctx context.Context, postIDs []int64, perPost int) (map[int64][]string, error) {
	if m.getLikerUsernamesFn != nil {
		return m.getLikerUsernamesFn(ctx, postIDs, perPost)
	}
	return map[int64][]string{}, nil
}

func (m *mockPostRepo) GetPostLikers(ctx context.Context, postID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error) {
	if m.getPostLikersFn != nil {
		return m.getPostLikersFn(ctx, postID, cursor, hasCursor, limit)
	}
	return nil, nil, nil
}

func (m *mockPostRepo) GetPostReposters(ctx context.Context, postID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error) {
	if m.getPostRepostersFn != nil {
		return m.getPostRepostersFn(ctx, postID, cursor, hasCursor, limit)
	}
	return nil, nil, nil
}

func (m *mockPostRepo) GetFeedEntries(ctx context.Context, userID int64, before time.Time, limit int) ([]cache.FeedEntry, error) {
	if m.getFeedEntriesFn != nil {
		return m.getFeedEntriesFn(ctx, userID, before, limit)
	}
	return nil, nil
}

func (m *mockPostRepo) GetRecentEntriesByUser(ctx context.Context, userID int64, limit int) ([]cache.FeedEntry, error) {
	if m.getRecentEntriesByUserFn != nil {
		return m.getRecentEntriesByUserFn(ctx, userID, limit)
	}
	return nil, nil
}

type mockFollowRepo struct {
	toggleFn         func(ctx context.Context, followerID, followeeID int64) (bool, error)
	existsFn         func(ctx context.Context, followerID, followeeID int64) (bool, error)
	getFollowersFn   func(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error)
	getFollowingFn   func(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error)
	checkFollowsFn   func(ctx context.Context, followerID int64, userIDs []int64) (map[int64]bool, error)
	getFollowerIDsFn func(ctx context.Context, userID int64) ([]int64, error)
}

func (m *mockFollowRepo) Toggle(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, followerID, followeeID)
	}
	if followerID == followeeID {
		return false, model.ErrCannotFollowSelf
	}
	return false, nil
}

func (m *mockFollowRepo) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, followerID, followeeID)
	}
	return false, nil
}

func (m *mockFollowRepo) GetFollowers(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error) {
	if m.getFollowersFn != nil {
		return m.getFollowersFn(ctx, userID, cursor, hasCursor, limit)
	}
	return nil, nil, nil
}

func (m *mockFollowRepo) GetFollowing(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error) {
	if m.getFollowingFn != nil {
		return m.getFollowingFn(ctx, userID, cursor, hasCursor, limit)
	}
	return nil, nil, nil
}

func (m *mockFollowRepo) CheckFollows(ctx context.Context, followerID int64, userIDs []int64) (map[int64]bool, error) {
	if m.checkFollowsFn != nil {
		return m.checkFollowsFn(ctx, followerID, userIDs)
	}
	return map[int64]bool{}, nil
}

func (m *mockFollowRepo) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.getFollowerIDsFn != nil {
		return m.getFollowerIDsFn(ctx, userID)
	}
	return nil, nil
}

type mockBookmarkRepo struct {
	toggleFn             func(ctx context.Context, userID, postID int64) (bool, error)
	getBookmarkedPostsFn func(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error)
	checkFn              func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
}

func (m *mockBookmarkRepo) Toggle(ctx context.Context, userID, postID int64) (bool, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, userID, postID)
	}
	return false, nil
}

func (m *mockBookmarkRepo) GetBookmarkedPosts(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error) {
	if m.getBookmarkedPostsFn != nil {
		return m.getBookmarkedPostsFn(ctx, userID, cursor, hasCursor, limit)
	}
	return nil, nil, nil
}

func (m *mockBookmarkRepo) Check(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, userID, postIDs)
	}
	return map[int64]bool{}, nil
}

type mockHashtagRepo struct {
	getByPostIDsFn func(ctx context.Context, postIDs []int64) (map[int64][]string, error)
	searchFn       func(ctx context.Context, prefix string, limit int) ([]model.HashtagCount, error)
}

func (m *mockHashtagRepo) GetByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]string, error) {
	if m.getByPostIDsFn != nil {
		return m.getByPostIDsFn(ctx, postIDs)
	}
	return map[int64][]string{}, nil
}

func (m *mockHashtagRepo) Search(ctx context.Context, prefix string, limit int) ([]model.HashtagCount, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, prefix, limit)
	}
	return nil, nil
}

// mockPublisher records published events.
type mockPublisher struct {
	events []queue.FeedEvent
}

func (m *mockPublisher) PublishFeedEvent(ctx context.Context, event queue.FeedEvent) error {
	m.events = append(m.events, event)
	return nil
}

// mockFeedCache is an in-memory FeedCache for feed service tests.
type mockFeedCache struct {
	entries map[int64][]cache.FeedEntry
}

func newMockFeedCache() *mockFeedCache {
	return &mockFeedCache{entries: make(map[int64][]cache.FeedEntry)}
}

func (m *mockFeedCache) AddEntry(ctx context.Context, userID int64, entry cache.FeedEntry) error {
	m.entries[userID] = append(m.entries[userID], entry)
	return nil
}

func (m *mockFeedCache) RemoveEntry(ctx context.Context, userID int64, entry cache.FeedEntry) error {
	kept := m.entries[userID][:0]
	for _, e := range m.entries[userID] {
		if e.Member() != entry.Member() {
			kept = append(kept, e)
		}
	}
	m.entries[userID] = kept
	return nil
}

func (m *mockFeedCache) RemovePost(ctx context.Context, userID, postID int64) error {
	kept := m.entries[userID][:0]
	for _, e := range m.entries[userID] {
		if e.PostID != postID {
			kept = append(kept, e)
		}
	}
	m.entries[userID] = kept
	return nil
}

func (m *mockFeedCache) GetPage(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]cache.FeedEntry, []float64, error) {
	all := append([]cache.FeedEntry(nil), m.entries[userID]...)
	// Newest first.
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].Timestamp > all[i].Timestamp {
				all[i], all[j] = all[j], all[i]
			}
		}
	}

	var entries []cache.FeedEntry
	var scores []float64
	for _, e := range all {
		if cursorScore != nil && float64(e.Timestamp) >= *cursorScore {
			continue
		}
		entries = append(entries, e)
		scores = append(scores, float64(e.Timestamp))
		if len(entries) == limit {
			break
		}
	}
	return entries, scores, nil
}

func (m *mockFeedCache) WarmCache(ctx context.Context, userID int64, entries []cache.FeedEntry) error {
	m.entries[userID] = append(m.entries[userID], entries...)
	return nil
}

func (m *mockFeedCache) Size(ctx context.Context, userID int64) (int64, error) {
	return int64(len(m.entries[userID])), nil
}

func (m *mockFeedCache) Exists(ctx context.Context, userID int64) (bool, error) {
	return len(m.entries[userID]) > 0, nil
}
