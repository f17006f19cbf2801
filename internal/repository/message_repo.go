package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/apt-crowd/discourse/internal/models"
)

// MessageRepository reads and writes the channel message log. Deleting a
// message only trashes it: the row keeps its identity for audit and is
// excluded from default queries via the soft-delete marker.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	Trash(ctx context.Context, id uint) error
	FindVisible(ctx context.Context, id uint) (models.Message, error)
	ListByChannel(ctx context.Context, channelID uint, limit int) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) Trash(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Message{}, id).Error
}

// FindVisible loads a message by identifier, excluding trashed rows.
func (r *messageRepository) FindVisible(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) ListByChannel(ctx context.Context, channelID uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}
