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

type followRepository struct {
	db *sqlx.DB
}

// NewFollowRepository creates a new PostgreSQL-backed follow repository.
func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// Toggle follows the user if no edge exists and unfollows otherwise. Both
// users' counters move in the same transaction as the edge change.
func (r *followRepository) Toggle(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if followerID == followeeID {
		return false, model.ErrCannotFollowSelf
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, followerID, followeeID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return false, model.ErrUserNotFound
		}
		return false, fmt.Errorf("insert follow: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	following := inserted > 0

	if !following {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
			followerID, followeeID); err != nil {
			return false, fmt.Errorf("delete follow: %w", err)
		}
	}

	delta := "- 1"
	if following {
		delta = "+ 1"
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE users SET following_count = GREATEST(following_count %s, 0) WHERE id = $1`, delta),
		followerID); err != nil {
		return false, fmt.Errorf("update following count: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE users SET follower_count = GREATEST(follower_count %s, 0) WHERE id = $1`, delta),
		followeeID); err != nil {
		return false, fmt.Errorf("update follower count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return following, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`,
		followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("check follow exists: %w", err)
	}
	return exists, nil
}

func (r *followRepository) GetFollowers(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error) {
	return r.listEdge(ctx, userID, "f.followee_id", "f.follower_id", cursor, hasCursor, limit)
}

func (r *followRepository) GetFollowing(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error) {
	return r.listEdge(ctx, userID, "f.follower_id", "f.followee_id", cursor, hasCursor, limit)
}

func (r *followRepository) listEdge(ctx context.Context, userID int64, anchorCol, joinCol string, cursor Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error) {
	var rows []struct {
		model.UserSummary
		CreatedAt time.Time `db:"created_at"`
	}
	var err error

	base := fmt.Sprintf(`
		SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at
		FROM follows f
		JOIN users u ON u.id = %s
		WHERE %s = $1`, joinCol, anchorCol)

	if hasCursor {
		err = r.db.SelectContext(ctx, &rows,
			base+` AND (f.created_at, u.id) < ($2, $3) ORDER BY f.created_at DESC, u.id DESC LIMIT $4`,
			userID, cursor.Timestamp, cursor.ID, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows,
			base+` ORDER BY f.created_at DESC, u.id DESC LIMIT $2`,
			userID, limit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("list follow edge: %w", err)
	}

	users := make([]model.UserSummary, len(rows))
	times := make([]time.Time, len(rows))
	for i := range rows {
		users[i] = rows[i].UserSummary
		times[i] = rows[i].CreatedAt
	}
	return users, times, nil
}

func (r *followRepository) CheckFollows(ctx context.Context, followerID int64, userIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	for _, id := range userIDs {
		result[id] = false
	}

	var followed []int64
	err := r.db.SelectContext(ctx, &followed, `
		SELECT followee_id FROM follows WHERE follower_id = $1 AND followee_id = ANY($2)`,
		followerID, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("check follows: %w", err)
	}

	for _, id := range followed {
		result[id] = true
	}
	return result, nil
}

func (r *followRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `
		SELECT follower_id FROM follows WHERE followee_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("get follower ids: %w", err)
	}
	return ids, nil
}
