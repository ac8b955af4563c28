package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chirp/internal/model"
)

type hashtagRepository struct {
	db *sqlx.DB
}

// NewHashtagRepository creates a new PostgreSQL-backed hashtag repository.
func NewHashtagRepository(db *sqlx.DB) HashtagRepository {
	return &hashtagRepository{db: db}
}

func (r *hashtagRepository) GetByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		PostID int64  `db:"post_id"`
		Tag    string `db:"tag"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT post_id, tag FROM post_hashtags
		WHERE post_id = ANY($1)
		ORDER BY post_id, tag`, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("get hashtags by posts: %w", err)
	}

	for _, row := range rows {
		result[row.PostID] = append(result[row.PostID], row.Tag)
	}
	return result, nil
}

func (r *hashtagRepository) Search(ctx context.Context, prefix string, limit int) ([]model.HashtagCount, error) {
	tags := []model.HashtagCount{}
	pattern := escapeLike(prefix) + "%"
	err := r.db.SelectContext(ctx, &tags, `
		SELECT tag, COUNT(*) AS post_count
		FROM post_hashtags
		WHERE tag LIKE $1
		GROUP BY tag
		ORDER BY post_count DESC, tag ASC
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search hashtags: %w", err)
	}
	return tags, nil
}

// escapeLike escapes LIKE metacharacters so a user-supplied prefix matches
// literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
