package repository

import (
	"context"
	"time"

	"chirp/internal/cache"
	"chirp/internal/model"
)

// UserRepository handles user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *model.User) error
	// Search matches usernames and display names by substring,
	// most-followed first.
	Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
	// GetByUsernames returns summaries for the given usernames; unknown
	// names are silently absent from the result.
	GetByUsernames(ctx context.Context, usernames []string) (map[string]model.UserSummary, error)
	GetSummariesByIDs(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
}

// PostRepository handles posts, replies and the per-post toggles
// (likes, reposts). Toggle operations run their own transaction and
// report the resulting state plus the updated counter.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post, hashtags []string) error
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Post, error)
	Delete(ctx context.Context, postID, userID int64) error
	GetAuthorID(ctx context.Context, postID int64) (int64, error)

	GetUserPosts(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, error)
	GetUserReplies(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, error)
	// GetLikedPosts returns the posts a user liked along with the like
	// timestamps, newest like first.
	GetLikedPosts(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error)
	GetRepliesToPost(ctx context.Context, postID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, error)
	GetPostsByHashtag(ctx context.Context, tag string, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, error)
	// GetUserReposts returns the posts a user reposted along with the
	// repost timestamps, newest repost first.
	GetUserReposts(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error)

	ToggleLike(ctx context.Context, postID, userID int64) (liked bool, likeCount int, err error)
	ToggleRepost(ctx context.Context, postID, userID int64) (reposted bool, repostCount int, err error)

	CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	CheckReposts(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	// GetLikerUsernames returns the usernames of users who liked each post,
	// capped per post, most recent likes first.
	GetLikerUsernames(ctx context.Context, postIDs []int64, perPost int) (map[int64][]string, error)

	GetPostLikers(ctx context.Context, postID int64, cursor Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error)
	GetPostReposters(ctx context.Context, postID int64, cursor Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error)

	// GetFeedEntries assembles a feed page straight from Postgres: posts and
	// reposts by the user and their followees, newest activity first.
	GetFeedEntries(ctx context.Context, userID int64, before time.Time, limit int) ([]cache.FeedEntry, error)
	// GetRecentEntriesByUser returns one user's recent activity (posts and
	// reposts) as feed entries, for backfilling a follower's cache.
	GetRecentEntriesByUser(ctx context.Context, userID int64, limit int) ([]cache.FeedEntry, error)
}

// FollowRepository handles the follow graph.
type FollowRepository interface {
	// Toggle follows if not following and unfollows otherwise, adjusting
	// both users' counters in the same transaction.
	Toggle(ctx context.Context, followerID, followeeID int64) (following bool, err error)
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error)
	GetFollowing(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error)
	CheckFollows(ctx context.Context, followerID int64, userIDs []int64) (map[int64]bool, error)
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

// BookmarkRepository handles private bookmarks.
type BookmarkRepository interface {
	Toggle(ctx context.Context, userID, postID int64) (bookmarked bool, err error)
	GetBookmarkedPosts(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error)
	Check(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
}

// HashtagRepository handles the post-hashtag index.
type HashtagRepository interface {
	GetByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]string, error)
	// Search returns hashtags starting with the given prefix along with
	// how many posts carry each, most used first.
	Search(ctx context.Context, prefix string, limit int) ([]model.HashtagCount, error)
}

// RefreshTokenRepository handles refresh token persistence for rotation.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// NotificationRepository handles in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetFollowNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	GetAggregatedNotifications(ctx context.Context, userID int64, limit int) ([]model.AggregatedNotification, error)
	MarkAsRead(ctx context.Context, userID int64, ids []int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
	GetUnreadCount(ctx context.Context, userID int64) (int, error)
}
