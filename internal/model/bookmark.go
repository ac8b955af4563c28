package model

import "time"

// Bookmark is a private saved-post record. Unlike likes and reposts it has
// no counter on the post and is never surfaced to other users.
type Bookmark struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	PostID    int64     `db:"post_id" json:"post_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
