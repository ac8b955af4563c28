package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chirp/internal/model"
)

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (username, github_id, github_username, password_hashed, display_name, bio, dob, avatar_url, avatar_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, follower_count, following_count, post_count, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		user.Username,
		user.GitHubID,
		user.GitHubUsername,
		user.PasswordHashed,
		user.DisplayName,
		user.Bio,
		user.DOB,
		user.AvatarURL,
		user.AvatarKey,
	).Scan(&user.ID, &user.FollowerCount, &user.FollowingCount, &user.PostCount, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return model.ErrUsernameExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE username = $1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE github_id = $1`, githubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by github id: %w", err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
	if err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}
	return exists, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET username = $1, display_name = $2, bio = $3, dob = $4,
		    avatar_url = $5, avatar_key = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		user.Username,
		user.DisplayName,
		user.Bio,
		user.DOB,
		user.AvatarURL,
		user.AvatarKey,
		user.ID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrUserNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return model.ErrUsernameExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	users := []model.UserSummary{}
	pattern := "%" + query + "%"
	err := r.db.SelectContext(ctx, &users, `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE username ILIKE $1 OR display_name ILIKE $1
		ORDER BY follower_count DESC, id ASC
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

func (r *userRepository) GetByUsernames(ctx context.Context, usernames []string) (map[string]model.UserSummary, error) {
	result := make(map[string]model.UserSummary)
	if len(usernames) == 0 {
		return result, nil
	}

	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE username = ANY($1)`, pq.Array(usernames))
	if err != nil {
		return nil, fmt.Errorf("get users by usernames: %w", err)
	}

	for _, u := range users {
		result[u.Username] = u
	}
	return result, nil
}

func (r *userRepository) GetSummariesByIDs(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	result := make(map[int64]model.UserSummary)
	if len(ids) == 0 {
		return result, nil
	}

	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get user summaries: %w", err)
	}

	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
