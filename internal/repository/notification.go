package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chirp/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new PostgreSQL-backed notification repository.
func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	// Self-notifications are dropped at the source.
	if n.UserID == n.ActorID {
		return nil
	}

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO notifications (user_id, actor_id, type, post_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		n.UserID, n.ActorID, n.Type, n.PostID,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) GetFollowNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	var rows []struct {
		model.Notification
		ActorUsername    string  `db:"actor_username"`
		ActorDisplayName *string `db:"actor_display_name"`
		ActorAvatarURL   *string `db:"actor_avatar_url"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT n.id, n.user_id, n.actor_id, n.type, n.post_id, n.is_read, n.created_at,
		       u.username AS actor_username,
		       u.display_name AS actor_display_name,
		       u.avatar_url AS actor_avatar_url
		FROM notifications n
		JOIN users u ON u.id = n.actor_id
		WHERE n.user_id = $1 AND n.type = $2
		ORDER BY n.created_at DESC
		LIMIT $3`, userID, model.NotificationTypeFollow, limit)
	if err != nil {
		return nil, fmt.Errorf("get follow notifications: %w", err)
	}

	notifications := make([]model.Notification, len(rows))
	for i := range rows {
		n := rows[i].Notification
		n.Actor = &model.UserSummary{
			ID:          n.ActorID,
			Username:    rows[i].ActorUsername,
			DisplayName: rows[i].ActorDisplayName,
			AvatarURL:   rows[i].ActorAvatarURL,
		}
		notifications[i] = n
	}
	return notifications, nil
}

// GetAggregatedNotifications groups like/repost/reply notifications by
// (type, post), newest group first, with up to three recent actors each.
func (r *notificationRepository) GetAggregatedNotifications(ctx context.Context, userID int64, limit int) ([]model.AggregatedNotification, error) {
	var groups []struct {
		Type       string         `db:"type"`
		PostID     *int64         `db:"post_id"`
		TotalCount int           `db:"total_count"`
		LatestAt   sql.NullTime  `db:"latest_at"`
		AllRead    bool          `db:"all_read"`
		ActorIDs   pq.Int64Array `db:"actor_ids"`
	}
	err := r.db.SelectContext(ctx, &groups, `
		SELECT type, post_id,
		       COUNT(*) AS total_count,
		       MAX(created_at) AS latest_at,
		       BOOL_AND(is_read) AS all_read,
		       (ARRAY_AGG(actor_id ORDER BY created_at DESC))[1:3] AS actor_ids
		FROM notifications
		WHERE user_id = $1 AND type <> $2
		GROUP BY type, post_id
		ORDER BY latest_at DESC
		LIMIT $3`, userID, model.NotificationTypeFollow, limit)
	if err != nil {
		return nil, fmt.Errorf("get aggregated notifications: %w", err)
	}

	// Resolve the recent actors of every group in one query.
	idSet := make(map[int64]struct{})
	for _, g := range groups {
		for _, id := range g.ActorIDs {
			idSet[id] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	actors := make(map[int64]model.UserSummary)
	if len(ids) > 0 {
		var users []model.UserSummary
		err := r.db.SelectContext(ctx, &users, `
			SELECT id, username, display_name, avatar_url
			FROM users WHERE id = ANY($1)`, pq.Array(ids))
		if err != nil {
			return nil, fmt.Errorf("get notification actors: %w", err)
		}
		for _, u := range users {
			actors[u.ID] = u
		}
	}

	result := make([]model.AggregatedNotification, 0, len(groups))
	for _, g := range groups {
		agg := model.AggregatedNotification{
			Type:       g.Type,
			PostID:     g.PostID,
			TotalCount: g.TotalCount,
			IsRead:     g.AllRead,
			Actors:     make([]model.UserSummary, 0, len(g.ActorIDs)),
		}
		if g.LatestAt.Valid {
			agg.LatestAt = g.LatestAt.Time
		}
		for _, id := range g.ActorIDs {
			if u, ok := actors[id]; ok {
				agg.Actors = append(agg.Actors, u)
			}
		}
		result = append(result, agg)
	}
	return result, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE user_id = $1 AND id = ANY($2)`, userID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (r *notificationRepository) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return count, nil
}
