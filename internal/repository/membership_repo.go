package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/apt-crowd/discourse/internal/models"
)

// AdvanceLastReadInput identifies the membership row to advance and the
// target message identifier.
type AdvanceLastReadInput struct {
	MembershipID uint
	UserID       uint
	ChannelID    uint
	MessageID    uint
}

// AdvanceLastReadOutcome reports the committed read pointer. Advanced is
// false when the stored pointer was already at or past the target, in which
// case the call was a no-op rather than a regression or an error.
type AdvanceLastReadOutcome struct {
	LastReadMessageID uint
	Advanced          bool
	NotificationsRead int64
}

// MembershipRepository handles persistence for channel memberships.
type MembershipRepository interface {
	Create(ctx context.Context, membership *models.Membership) error
	Delete(ctx context.Context, userID, channelID uint) error
	FindByUserAndChannel(ctx context.Context, userID, channelID uint) (models.Membership, error)
	AdvanceLastRead(ctx context.Context, input AdvanceLastReadInput) (AdvanceLastReadOutcome, error)
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository constructs a repository backed by GORM.
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *membershipRepository) Delete(ctx context.Context, userID, channelID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		Delete(&models.Membership{}).Error
}

func (r *membershipRepository) FindByUserAndChannel(ctx context.Context, userID, channelID uint) (models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		First(&membership).Error
	if err != nil {
		return models.Membership{}, err
	}
	return membership, nil
}

// AdvanceLastRead moves the membership's read pointer to the target message
// and marks the mention notifications it covers as read, all in a single
// transaction. The pointer update is conditional on still being an increase
// at commit time: when a concurrent advancement already committed a larger
// identifier, the update matches zero rows and the stored value wins.
func (r *membershipRepository) AdvanceLastRead(ctx context.Context, input AdvanceLastReadInput) (AdvanceLastReadOutcome, error) {
	var outcome AdvanceLastReadOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Membership{}).
			Where("id = ? AND (last_read_message_id IS NULL OR last_read_message_id < ?)", input.MembershipID, input.MessageID).
			Update("last_read_message_id", input.MessageID)
		if update.Error != nil {
			return update.Error
		}
		outcome.Advanced = update.RowsAffected > 0

		var membership models.Membership
		if err := tx.First(&membership, input.MembershipID).Error; err != nil {
			return err
		}
		if membership.LastReadMessageID != nil {
			outcome.LastReadMessageID = *membership.LastReadMessageID
		}

		marked := tx.Model(&models.Notification{}).
			Where("user_id = ? AND type = ? AND read = ? AND channel_id = ? AND message_id IS NOT NULL AND message_id <= ?",
				input.UserID, models.NotificationTypeMention, false, input.ChannelID, outcome.LastReadMessageID).
			Update("read", true)
		if marked.Error != nil {
			return marked.Error
		}
		outcome.NotificationsRead = marked.RowsAffected

		return nil
	})
	if err != nil {
		return AdvanceLastReadOutcome{}, err
	}

	return outcome, nil
}
