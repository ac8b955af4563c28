package model

import (
	"time"
)

// Notification types
const (
	NotificationTypeFollow = "follow"
	NotificationTypeLike   = "like"
	NotificationTypeRepost = "repost"
	NotificationTypeReply  = "reply"
)

// Notification represents a single notification record in the database.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`         // Recipient
	ActorID   int64     `db:"actor_id" json:"actor_id"` // Who triggered it
	Type      string    `db:"type" json:"type"`
	PostID    *int64    `db:"post_id" json:"post_id,omitempty"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined field for display
	Actor *UserSummary `json:"actor,omitempty"`
}

// AggregatedNotification groups likes/reposts/replies on the same post.
// Used for "alice and 5 others liked your post" display.
type AggregatedNotification struct {
	Type       string        `json:"type"`
	PostID     *int64        `json:"post_id,omitempty"`
	Actors     []UserSummary `json:"actors"`      // Most recent actors
	TotalCount int           `json:"total_count"` // Total actors (for "and X others")
	LatestAt   time.Time     `json:"latest_at"`
	IsRead     bool          `json:"is_read"` // True if ALL in group are read
}

// NotificationListResponse is the notification list response.
type NotificationListResponse struct {
	// Follows are not aggregated - shown individually
	Follows []Notification `json:"follows"`
	// Likes, reposts and replies are aggregated by post
	Aggregated []AggregatedNotification `json:"aggregated"`
	// Unread count for badge
	UnreadCount int `json:"unread_count"`
}

// MarkReadRequest is the request body for marking notifications as read.
// Empty NotificationIDs means mark everything.
type MarkReadRequest struct {
	NotificationIDs []int64 `json:"notification_ids"`
}
