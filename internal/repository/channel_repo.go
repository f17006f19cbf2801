package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/apt-crowd/discourse/internal/models"
)

// ChannelRepository handles persistence for chat channels.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	FindByID(ctx context.Context, id uint) (models.Channel, error)
}

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository constructs a repository backed by GORM.
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Create(ctx context.Context, channel *models.Channel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

func (r *channelRepository) FindByID(ctx context.Context, id uint) (models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).First(&channel, id).Error; err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}
