package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apt-crowd/discourse/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Channel{}, &models.Membership{}, &models.Message{}, &models.Thread{}, &models.Notification{}))
	return db
}

func uintPtr(v uint) *uint {
	return &v
}

func TestAdvanceLastReadSetsPointerFromUnset(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMembershipRepository(db)

	membership := models.Membership{UserID: 1, ChannelID: 2}
	require.NoError(t, db.Create(&membership).Error)

	outcome, err := repo.AdvanceLastRead(context.Background(), AdvanceLastReadInput{
		MembershipID: membership.ID,
		UserID:       1,
		ChannelID:    2,
		MessageID:    42,
	})
	require.NoError(t, err)
	require.True(t, outcome.Advanced)
	require.Equal(t, uint(42), outcome.LastReadMessageID)

	var reloaded models.Membership
	require.NoError(t, db.First(&reloaded, membership.ID).Error)
	require.NotNil(t, reloaded.LastReadMessageID)
	require.Equal(t, uint(42), *reloaded.LastReadMessageID)
}

func TestAdvanceLastReadIsNoopWhenStoredPointerIsLarger(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMembershipRepository(db)

	membership := models.Membership{UserID: 1, ChannelID: 2, LastReadMessageID: uintPtr(100)}
	require.NoError(t, db.Create(&membership).Error)

	outcome, err := repo.AdvanceLastRead(context.Background(), AdvanceLastReadInput{
		MembershipID: membership.ID,
		UserID:       1,
		ChannelID:    2,
		MessageID:    50,
	})
	require.NoError(t, err)
	require.False(t, outcome.Advanced)
	require.Equal(t, uint(100), outcome.LastReadMessageID)

	var reloaded models.Membership
	require.NoError(t, db.First(&reloaded, membership.ID).Error)
	require.Equal(t, uint(100), *reloaded.LastReadMessageID)
}

func TestAdvanceLastReadConvergesToHighestRegardlessOfOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMembershipRepository(db)

	membership := models.Membership{UserID: 1, ChannelID: 2}
	require.NoError(t, db.Create(&membership).Error)

	// Larger identifier commits first, then the smaller straggler.
	_, err := repo.AdvanceLastRead(context.Background(), AdvanceLastReadInput{
		MembershipID: membership.ID, UserID: 1, ChannelID: 2, MessageID: 9,
	})
	require.NoError(t, err)

	outcome, err := repo.AdvanceLastRead(context.Background(), AdvanceLastReadInput{
		MembershipID: membership.ID, UserID: 1, ChannelID: 2, MessageID: 3,
	})
	require.NoError(t, err)
	require.False(t, outcome.Advanced)
	require.Equal(t, uint(9), outcome.LastReadMessageID)
}

func TestAdvanceLastReadMarksCoveredMentionsRead(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMembershipRepository(db)

	membership := models.Membership{UserID: 1, ChannelID: 2}
	require.NoError(t, db.Create(&membership).Error)

	covered := models.Notification{UserID: 1, Type: models.NotificationTypeMention, MessageID: uintPtr(4), ChannelID: uintPtr(2)}
	alsoCovered := models.Notification{UserID: 1, Type: models.NotificationTypeMention, MessageID: uintPtr(5), ChannelID: uintPtr(2)}
	beyondPointer := models.Notification{UserID: 1, Type: models.NotificationTypeMention, MessageID: uintPtr(9), ChannelID: uintPtr(2)}
	otherChannel := models.Notification{UserID: 1, Type: models.NotificationTypeMention, MessageID: uintPtr(4), ChannelID: uintPtr(3)}
	otherType := models.Notification{UserID: 1, Type: "reply", MessageID: uintPtr(4), ChannelID: uintPtr(2)}
	otherUser := models.Notification{UserID: 7, Type: models.NotificationTypeMention, MessageID: uintPtr(4), ChannelID: uintPtr(2)}
	for _, n := range []*models.Notification{&covered, &alsoCovered, &beyondPointer, &otherChannel, &otherType, &otherUser} {
		require.NoError(t, db.Create(n).Error)
	}

	outcome, err := repo.AdvanceLastRead(context.Background(), AdvanceLastReadInput{
		MembershipID: membership.ID,
		UserID:       1,
		ChannelID:    2,
		MessageID:    5,
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), outcome.NotificationsRead)

	var unread []models.Notification
	require.NoError(t, db.Where("read = ?", false).Find(&unread).Error)
	require.Len(t, unread, 4)
	for _, n := range unread {
		require.NotContains(t, []uint{covered.ID, alsoCovered.ID}, n.ID)
	}
}
