package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/apt-crowd/discourse/internal/dto"
	"github.com/apt-crowd/discourse/internal/models"
	"github.com/apt-crowd/discourse/internal/pipeline"
	"github.com/apt-crowd/discourse/internal/repository"
)

// NotificationService exposes a user's notification feed. The bulk
// mention-marking that accompanies a read-pointer advancement happens inside
// the advancement transaction; this service covers the feed queries and the
// one-off mark-read action.
type NotificationService interface {
	List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error)
	UnreadMentions(ctx context.Context, userID uint) (dto.UnreadMentionsResponse, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
}

type notificationService struct {
	repo   repository.NotificationRepository
	logger zerolog.Logger
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		logger: logger.With().Str("component", "notification_service").Logger(),
	}
}

func (s *notificationService) List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, toNotificationResponse(notification))
	}
	return responses, nil
}

func (s *notificationService) UnreadMentions(ctx context.Context, userID uint) (dto.UnreadMentionsResponse, error) {
	count, err := s.repo.CountUnread(ctx, userID, models.NotificationTypeMention)
	if err != nil {
		return dto.UnreadMentionsResponse{}, err
	}
	return dto.UnreadMentionsResponse{UnreadMentions: count}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	notification, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, pipeline.ErrNotFound
		}
		return dto.NotificationResponse{}, err
	}

	s.logger.Debug().Uint("notification_id", id).Uint("user_id", userID).Msg("notification marked read")
	return toNotificationResponse(notification), nil
}

func toNotificationResponse(notification models.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        notification.ID,
		Type:      notification.Type,
		MessageID: notification.MessageID,
		ChannelID: notification.ChannelID,
		Read:      notification.Read,
	}
}
