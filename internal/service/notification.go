package service

import (
	"context"

	"chirp/internal/model"
	"chirp/internal/repository"
	"chirp/internal/text"
)

// notificationLimit caps each section of the notification list.
const notificationLimit = 50

// NotificationService assembles the notification screen.
type NotificationService struct {
	notifRepo repository.NotificationRepository
}

// NewNotificationService creates a new notification service.
func NewNotificationService(notifRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifRepo: notifRepo}
}

// List returns follow notifications individually and like/repost/reply
// notifications aggregated by post, plus the unread badge count.
func (s *NotificationService) List(ctx context.Context, userID int64) (*model.NotificationListResponse, error) {
	follows, err := s.notifRepo.GetFollowNotifications(ctx, userID, notificationLimit)
	if err != nil {
		return nil, err
	}
	aggregated, err := s.notifRepo.GetAggregatedNotifications(ctx, userID, notificationLimit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range follows {
		if follows[i].Actor != nil {
			follows[i].Actor.Initials = text.Initials(displayOrUsername(*follows[i].Actor))
		}
	}
	for i := range aggregated {
		for j := range aggregated[i].Actors {
			aggregated[i].Actors[j].Initials = text.Initials(displayOrUsername(aggregated[i].Actors[j]))
		}
	}

	return &model.NotificationListResponse{
		Follows:     follows,
		Aggregated:  aggregated,
		UnreadCount: unread,
	}, nil
}

// MarkRead marks the given notifications read; an empty list marks all.
func (s *NotificationService) MarkRead(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return s.notifRepo.MarkAllAsRead(ctx, userID)
	}
	return s.notifRepo.MarkAsRead(ctx, userID, ids)
}
