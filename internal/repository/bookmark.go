package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chirp/internal/model"
)

type bookmarkRepository struct {
	db *sqlx.DB
}

// NewBookmarkRepository creates a new PostgreSQL-backed bookmark repository.
func NewBookmarkRepository(db *sqlx.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

// Toggle bookmarks the post if not saved and removes the bookmark otherwise.
// Bookmarks carry no counter on the post, so no transaction is needed: the
// primary key makes the insert-or-delete pair settle correctly on its own.
func (r *bookmarkRepository) Toggle(ctx context.Context, userID, postID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bookmarks (user_id, post_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, postID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return false, model.ErrPostNotFound
		}
		return false, fmt.Errorf("insert bookmark: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if inserted > 0 {
		return true, nil
	}

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM bookmarks WHERE user_id = $1 AND post_id = $2`, userID, postID); err != nil {
		return false, fmt.Errorf("delete bookmark: %w", err)
	}
	return false, nil
}

func (r *bookmarkRepository) GetBookmarkedPosts(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error) {
	var rows []struct {
		model.Post
		BookmarkedAt time.Time `db:"bookmarked_at"`
	}
	var err error

	base := `
		SELECT p.id, p.user_id, p.message, p.reply_to_post_id,
		       p.like_count, p.repost_count, p.reply_count, p.created_at,
		       b.created_at AS bookmarked_at
		FROM bookmarks b
		JOIN posts p ON p.id = b.post_id
		WHERE b.user_id = $1`

	if hasCursor {
		err = r.db.SelectContext(ctx, &rows,
			base+` AND (b.created_at, p.id) < ($2, $3) ORDER BY b.created_at DESC, p.id DESC LIMIT $4`,
			userID, cursor.Timestamp, cursor.ID, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows,
			base+` ORDER BY b.created_at DESC, p.id DESC LIMIT $2`,
			userID, limit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get bookmarked posts: %w", err)
	}

	posts := make([]*model.Post, len(rows))
	times := make([]time.Time, len(rows))
	for i := range rows {
		p := rows[i].Post
		posts[i] = &p
		times[i] = rows[i].BookmarkedAt
	}
	return posts, times, nil
}

func (r *bookmarkRepository) Check(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	for _, id := range postIDs {
		result[id] = false
	}

	var marked []int64
	err := r.db.SelectContext(ctx, &marked, `
		SELECT post_id FROM bookmarks WHERE user_id = $1 AND post_id = ANY($2)`,
		userID, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("check bookmarks: %w", err)
	}

	for _, id := range marked {
		result[id] = true
	}
	return result, nil
}
