package model

import (
	"errors"
	"time"
)

// Post represents a single message. Replies are posts with ReplyToPostID set.
type Post struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	Message       string    `db:"message" json:"message"`
	ReplyToPostID *int64    `db:"reply_to_post_id" json:"reply_to_post_id,omitempty"`
	LikeCount     int       `db:"like_count" json:"like_count"`
	RepostCount   int       `db:"repost_count" json:"repost_count"`
	ReplyCount    int       `db:"reply_count" json:"reply_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`

	// Enrichment fields (not in the posts table)
	Author       *UserSummary `json:"author,omitempty"`
	IsLiked      bool         `json:"is_liked"`
	LikedUsers   []string     `json:"liked_users,omitempty"`
	IsReposted   bool         `json:"is_reposted"`
	IsBookmarked bool         `json:"is_bookmarked"`
	IsDeletable  bool         `json:"is_deletable"`
	Hashtags     []string     `json:"hashtags,omitempty"`
	Mentions     []string     `json:"mentions,omitempty"`
	ReplyingTo   *UserSummary `json:"replying_to,omitempty"`
	PostedAgo    string       `json:"posted_ago,omitempty"`
}

// FeedPost is an enriched post for feed and profile display. RepostedBy is
// set when the post appears in a timeline because someone reposted it; the
// activity timestamp then reflects the repost, not the original post.
type FeedPost struct {
	Post
	RepostedBy *UserSummary `json:"reposted_by,omitempty"`
	ActivityAt time.Time    `json:"activity_at"`
}

// FeedResponse is the paginated feed response.
type FeedResponse struct {
	Posts      []FeedPost `json:"posts"`
	NextCursor *string    `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

// PostListResponse is the paginated post list response (profile tabs,
// hashtag pages, bookmarks).
type PostListResponse struct {
	Posts      []FeedPost `json:"posts"`
	NextCursor *string    `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

// CreatePostRequest is the request body for creating a post or a reply.
type CreatePostRequest struct {
	Message string `json:"message"`
}

// ToggleResponse reports the membership state after a toggle action and the
// resulting counter value (zero for counterless toggles like bookmarks).
type ToggleResponse struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// Post constraints
const (
	MaxMessageLength = 180
)

// Post errors
var (
	ErrPostNotFound    = errors.New("post not found")
	ErrNotPostOwner    = errors.New("not the owner of this post")
	ErrMessageRequired = errors.New("message is required")
	ErrMessageTooLong  = errors.New("message too long")
)
