package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chirp/internal/cache"
	"chirp/internal/model"
)

type postRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new PostgreSQL-backed post repository.
func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, message, reply_to_post_id, like_count, repost_count, reply_count, created_at`

// Create inserts the post, indexes its hashtags and bumps the author's post
// count in one transaction. For replies it also bumps the parent's reply count.
func (r *postRepository) Create(ctx context.Context, post *model.Post, hashtags []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO posts (user_id, message, reply_to_post_id)
		VALUES ($1, $2, $3)
		RETURNING id, like_count, repost_count, reply_count, created_at`,
		post.UserID, post.Message, post.ReplyToPostID,
	).Scan(&post.ID, &post.LikeCount, &post.RepostCount, &post.ReplyCount, &post.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return model.ErrPostNotFound // parent reply target gone
		}
		return fmt.Errorf("insert post: %w", err)
	}

	for _, tag := range hashtags {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO post_hashtags (post_id, tag)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, post.ID, tag)
		if err != nil {
			return fmt.Errorf("insert hashtag %q: %w", tag, err)
		}
	}

	if post.ReplyToPostID != nil {
		res, err := tx.ExecContext(ctx, `
			UPDATE posts SET reply_count = reply_count + 1 WHERE id = $1`, *post.ReplyToPostID)
		if err != nil {
			return fmt.Errorf("increment reply count: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.ErrPostNotFound
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET post_count = post_count + 1 WHERE id = $1`, post.UserID)
	if err != nil {
		return fmt.Errorf("increment post count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	var post model.Post
	err := r.db.GetContext(ctx, &post,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPostNotFound
		}
		return nil, fmt.Errorf("get post by id: %w", err)
	}
	return &post, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Post, error) {
	result := make(map[int64]*model.Post)
	if len(ids) == 0 {
		return result, nil
	}

	var posts []model.Post
	err := r.db.SelectContext(ctx, &posts,
		`SELECT `+postColumns+` FROM posts WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get posts by ids: %w", err)
	}

	for i := range posts {
		result[posts[i].ID] = &posts[i]
	}
	return result, nil
}

func (r *postRepository) GetAuthorID(ctx context.Context, postID int64) (int64, error) {
	var authorID int64
	err := r.db.GetContext(ctx, &authorID, `SELECT user_id FROM posts WHERE id = $1`, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrPostNotFound
		}
		return 0, fmt.Errorf("get post author: %w", err)
	}
	return authorID, nil
}

// Delete removes the post if owned by userID. Likes, reposts, bookmarks,
// hashtag rows and replies go with it via ON DELETE CASCADE; the author's
// post count is decremented in the same transaction.
func (r *postRepository) Delete(ctx context.Context, postID, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var ownerID int64
	var replyTo *int64
	err = tx.QueryRowxContext(ctx,
		`SELECT user_id, reply_to_post_id FROM posts WHERE id = $1`, postID,
	).Scan(&ownerID, &replyTo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrPostNotFound
		}
		return fmt.Errorf("get post owner: %w", err)
	}
	if ownerID != userID {
		return model.ErrNotPostOwner
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if replyTo != nil {
		_, err := tx.ExecContext(ctx, `
			UPDATE posts SET reply_count = GREATEST(reply_count - 1, 0) WHERE id = $1`, *replyTo)
		if err != nil {
			return fmt.Errorf("decrement parent reply count: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET post_count = GREATEST(post_count - 1, 0) WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("decrement post count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// listPosts runs a keyset-paginated post query. The base query must select
// postColumns and end right before the cursor/order/limit clauses, with $1
// already bound to the anchor argument.
func (r *postRepository) listPosts(ctx context.Context, base string, anchor interface{}, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, error) {
	var rows []model.Post
	var err error

	if hasCursor {
		query := base + ` AND (created_at, id) < ($2, $3) ORDER BY created_at DESC, id DESC LIMIT $4`
		err = r.db.SelectContext(ctx, &rows, query, anchor, cursor.Timestamp, cursor.ID, limit)
	} else {
		query := base + ` ORDER BY created_at DESC, id DESC LIMIT $2`
		err = r.db.SelectContext(ctx, &rows, query, anchor, limit)
	}
	if err != nil {
		return nil, err
	}

	posts := make([]*model.Post, len(rows))
	for i := range rows {
		posts[i] = &rows[i]
	}
	return posts, nil
}

func (r *postRepository) GetUserPosts(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, error) {
	posts, err := r.listPosts(ctx,
		`SELECT `+postColumns+` FROM posts WHERE user_id = $1 AND reply_to_post_id IS NULL`,
		userID, cursor, hasCursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get user posts: %w", err)
	}
	return posts, nil
}

func (r *postRepository) GetUserReplies(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, error) {
	posts, err := r.listPosts(ctx,
		`SELECT `+postColumns+` FROM posts WHERE user_id = $1 AND reply_to_post_id IS NOT NULL`,
		userID, cursor, hasCursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get user replies: %w", err)
	}
	return posts, nil
}

func (r *postRepository) GetRepliesToPost(ctx context.Context, postID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, error) {
	posts, err := r.listPosts(ctx,
		`SELECT `+postColumns+` FROM posts WHERE reply_to_post_id = $1`,
		postID, cursor, hasCursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get replies to post: %w", err)
	}
	return posts, nil
}

// GetLikedPosts orders by like time, so the cursor anchors on
// post_likes.created_at rather than the post's own timestamp.
func (r *postRepository) GetLikedPosts(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error) {
	var rows []struct {
		model.Post
		LikedAt time.Time `db:"liked_at"`
	}
	var err error

	base := `
		SELECT p.id, p.user_id, p.message, p.reply_to_post_id,
		       p.like_count, p.repost_count, p.reply_count, p.created_at,
		       pl.created_at AS liked_at
		FROM post_likes pl
		JOIN posts p ON p.id = pl.post_id
		WHERE pl.user_id = $1`

	if hasCursor {
		err = r.db.SelectContext(ctx, &rows,
			base+` AND (pl.created_at, p.id) < ($2, $3) ORDER BY pl.created_at DESC, p.id DESC LIMIT $4`,
			userID, cursor.Timestamp, cursor.ID, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows,
			base+` ORDER BY pl.created_at DESC, p.id DESC LIMIT $2`,
			userID, limit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get liked posts: %w", err)
	}

	posts := make([]*model.Post, len(rows))
	times := make([]time.Time, len(rows))
	for i := range rows {
		p := rows[i].Post
		posts[i] = &p
		times[i] = rows[i].LikedAt
	}
	return posts, times, nil
}

func (r *postRepository) GetPostsByHashtag(ctx context.Context, tag string, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, error) {
	posts, err := r.listPosts(ctx,
		`SELECT p.id, p.user_id, p.message, p.reply_to_post_id,
		        p.like_count, p.repost_count, p.reply_count, p.created_at
		 FROM post_hashtags ph
		 JOIN posts p ON p.id = ph.post_id
		 WHERE ph.tag = $1`,
		tag, cursor, hasCursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get posts by hashtag: %w", err)
	}
	return posts, nil
}

func (r *postRepository) GetUserReposts(ctx context.Context, userID int64, cursor Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error) {
	var rows []struct {
		model.Post
		RepostedAt time.Time `db:"reposted_at"`
	}
	var err error

	base := `
		SELECT p.id, p.user_id, p.message, p.reply_to_post_id,
		       p.like_count, p.repost_count, p.reply_count, p.created_at,
		       r.created_at AS reposted_at
		FROM reposts r
		JOIN posts p ON p.id = r.post_id
		WHERE r.user_id = $1`

	if hasCursor {
		err = r.db.SelectContext(ctx, &rows,
			base+` AND (r.created_at, p.id) < ($2, $3) ORDER BY r.created_at DESC, p.id DESC LIMIT $4`,
			userID, cursor.Timestamp, cursor.ID, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows,
			base+` ORDER BY r.created_at DESC, p.id DESC LIMIT $2`,
			userID, limit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get user reposts: %w", err)
	}

	posts := make([]*model.Post, len(rows))
	times := make([]time.Time, len(rows))
	for i := range rows {
		p := rows[i].Post
		posts[i] = &p
		times[i] = rows[i].RepostedAt
	}
	return posts, times, nil
}

// ToggleLike likes the post if not yet liked and unlikes it otherwise. The
// membership insert, counter update and count read share one transaction, so
// concurrent toggles settle on a consistent state.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID int64) (bool, int, error) {
	return r.toggleMembership(ctx, postID, userID, "post_likes", "like_count")
}

// ToggleRepost mirrors ToggleLike against the reposts table.
func (r *postRepository) ToggleRepost(ctx context.Context, postID, userID int64) (bool, int, error) {
	return r.toggleMembership(ctx, postID, userID, "reposts", "repost_count")
}

func (r *postRepository) toggleMembership(ctx context.Context, postID, userID int64, table, counter string) (bool, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (user_id, post_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, table), userID, postID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return false, 0, model.ErrPostNotFound
		}
		return false, 0, fmt.Errorf("insert into %s: %w", table, err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("rows affected: %w", err)
	}

	active := inserted > 0
	var count int
	if active {
		err = tx.QueryRowxContext(ctx, fmt.Sprintf(`
			UPDATE posts SET %s = %s + 1 WHERE id = $1 RETURNING %s`, counter, counter, counter),
			postID,
		).Scan(&count)
	} else {
		// Row already existed, so this toggle removes it.
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`
			DELETE FROM %s WHERE user_id = $1 AND post_id = $2`, table), userID, postID); err != nil {
			return false, 0, fmt.Errorf("delete from %s: %w", table, err)
		}
		err = tx.QueryRowxContext(ctx, fmt.Sprintf(`
			UPDATE posts SET %s = GREATEST(%s - 1, 0) WHERE id = $1 RETURNING %s`, counter, counter, counter),
			postID,
		).Scan(&count)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, 0, model.ErrPostNotFound
		}
		return false, 0, fmt.Errorf("update %s: %w", counter, err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit tx: %w", err)
	}
	return active, count, nil
}

func (r *postRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	return r.checkMembership(ctx, userID, postIDs, "post_likes")
}

func (r *postRepository) CheckReposts(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	return r.checkMembership(ctx, userID, postIDs, "reposts")
}

func (r *postRepository) checkMembership(ctx context.Context, userID int64, postIDs []int64, table string) (map[int64]bool, error) {
	result := make(map[int64]bool, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	for _, id := range postIDs {
		result[id] = false
	}

	var marked []int64
	err := r.db.SelectContext(ctx, &marked, fmt.Sprintf(`
		SELECT post_id FROM %s WHERE user_id = $1 AND post_id = ANY($2)`, table),
		userID, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", table, err)
	}

	for _, id := range marked {
		result[id] = true
	}
	return result, nil
}

func (r *postRepository) GetLikerUsernames(ctx context.Context, postIDs []int64, perPost int) (map[int64][]string, error) {
	result := make(map[int64][]string, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		PostID   int64  `db:"post_id"`
		Username string `db:"username"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT post_id, username FROM (
			SELECT pl.post_id, u.username,
			       ROW_NUMBER() OVER (PARTITION BY pl.post_id ORDER BY pl.created_at DESC) AS rn
			FROM post_likes pl
			JOIN users u ON u.id = pl.user_id
			WHERE pl.post_id = ANY($1)
		) ranked
		WHERE rn <= $2`, pq.Array(postIDs), perPost)
	if err != nil {
		return nil, fmt.Errorf("get liker usernames: %w", err)
	}

	for _, row := range rows {
		result[row.PostID] = append(result[row.PostID], row.Username)
	}
	return result, nil
}

func (r *postRepository) GetPostLikers(ctx context.Context, postID int64, cursor Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error) {
	return r.listActors(ctx, postID, "post_likes", cursor, hasCursor, limit)
}

func (r *postRepository) GetPostReposters(ctx context.Context, postID int64, cursor Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error) {
	return r.listActors(ctx, postID, "reposts", cursor, hasCursor, limit)
}

func (r *postRepository) listActors(ctx context.Context, postID int64, table string, cursor Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error) {
	var rows []struct {
		model.UserSummary
		CreatedAt time.Time `db:"created_at"`
	}
	var err error

	base := fmt.Sprintf(`
		SELECT u.id, u.username, u.display_name, u.avatar_url, t.created_at
		FROM %s t
		JOIN users u ON u.id = t.user_id
		WHERE t.post_id = $1`, table)

	if hasCursor {
		err = r.db.SelectContext(ctx, &rows,
			base+` AND (t.created_at, u.id) < ($2, $3) ORDER BY t.created_at DESC, u.id DESC LIMIT $4`,
			postID, cursor.Timestamp, cursor.ID, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows,
			base+` ORDER BY t.created_at DESC, u.id DESC LIMIT $2`,
			postID, limit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("list %s actors: %w", table, err)
	}

	users := make([]model.UserSummary, len(rows))
	times := make([]time.Time, len(rows))
	for i := range rows {
		users[i] = rows[i].UserSummary
		times[i] = rows[i].CreatedAt
	}
	return users, times, nil
}

// GetFeedEntries reads a feed page straight from Postgres: posts and reposts
// by the user and their followees, newest activity first. Used on cache
// misses and for warming the cache.
func (r *postRepository) GetFeedEntries(ctx context.Context, userID int64, before time.Time, limit int) ([]cache.FeedEntry, error) {
	var rows []struct {
		PostID     int64     `db:"post_id"`
		RepostedBy int64     `db:"reposted_by"`
		ActivityAt time.Time `db:"activity_at"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT post_id, reposted_by, activity_at FROM (
			SELECT p.id AS post_id, 0::bigint AS reposted_by, p.created_at AS activity_at
			FROM posts p
			WHERE p.reply_to_post_id IS NULL
			  AND (p.user_id = $1 OR p.user_id IN (
			      SELECT followee_id FROM follows WHERE follower_id = $1))
			UNION ALL
			SELECT r.post_id, r.user_id AS reposted_by, r.created_at AS activity_at
			FROM reposts r
			WHERE r.user_id = $1 OR r.user_id IN (
			      SELECT followee_id FROM follows WHERE follower_id = $1)
		) activity
		WHERE activity_at < $2
		ORDER BY activity_at DESC
		LIMIT $3`, userID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("get feed entries: %w", err)
	}

	entries := make([]cache.FeedEntry, len(rows))
	for i, row := range rows {
		entries[i] = cache.FeedEntry{
			PostID:     row.PostID,
			RepostedBy: row.RepostedBy,
			Timestamp:  row.ActivityAt.Unix(),
		}
	}
	return entries, nil
}

func (r *postRepository) GetRecentEntriesByUser(ctx context.Context, userID int64, limit int) ([]cache.FeedEntry, error) {
	var rows []struct {
		PostID     int64     `db:"post_id"`
		RepostedBy int64     `db:"reposted_by"`
		ActivityAt time.Time `db:"activity_at"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT post_id, reposted_by, activity_at FROM (
			SELECT id AS post_id, 0::bigint AS reposted_by, created_at AS activity_at
			FROM posts
			WHERE user_id = $1 AND reply_to_post_id IS NULL
			UNION ALL
			SELECT post_id, user_id AS reposted_by, created_at AS activity_at
			FROM reposts
			WHERE user_id = $1
		) activity
		ORDER BY activity_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent entries by user: %w", err)
	}

	entries := make([]cache.FeedEntry, len(rows))
	for i, row := range rows {
		entries[i] = cache.FeedEntry{
			PostID:     row.PostID,
			RepostedBy: row.RepostedBy,
			Timestamp:  row.ActivityAt.Unix(),
		}
	}
	return entries, nil
}
