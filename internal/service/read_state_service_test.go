package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apt-crowd/discourse/internal/dto"
	"github.com/apt-crowd/discourse/internal/models"
	"github.com/apt-crowd/discourse/internal/repository"
)

type stubTracking struct {
	updates []dto.TrackingStateUpdate
}

func (s *stubTracking) Publish(_ context.Context, update dto.TrackingStateUpdate) {
	s.updates = append(s.updates, update)
}

type stubGuardian struct {
	userID  uint
	allowed bool
}

func (g stubGuardian) UserID() uint { return g.userID }

func (g stubGuardian) CanReadChannel(context.Context, models.Channel) bool { return g.allowed }

type readStateFixture struct {
	db         *gorm.DB
	service    ReadStateService
	tracking   *stubTracking
	channel    models.Channel
	membership models.Membership
	message    models.Message
}

func setupReadStateFixture(t *testing.T) *readStateFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Channel{}, &models.Membership{}, &models.Message{}, &models.Thread{}, &models.Notification{}))

	channel := models.Channel{Name: "general", Slug: "general"}
	require.NoError(t, db.Create(&channel).Error)

	membership := models.Membership{UserID: 1, ChannelID: channel.ID}
	require.NoError(t, db.Create(&membership).Error)

	message := models.Message{ChannelID: channel.ID, AuthorID: 2, Content: "hello"}
	require.NoError(t, db.Create(&message).Error)

	tracking := &stubTracking{}
	svc := NewReadStateService(
		repository.NewMembershipRepository(db),
		repository.NewChannelRepository(db),
		repository.NewMessageRepository(db),
		tracking,
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)

	return &readStateFixture{
		db:         db,
		service:    svc,
		tracking:   tracking,
		channel:    channel,
		membership: membership,
		message:    message,
	}
}

func (f *readStateFixture) request() dto.UpdateLastReadRequest {
	return dto.UpdateLastReadRequest{
		UserID:    f.membership.UserID,
		ChannelID: f.channel.ID,
		MessageID: f.message.ID,
	}
}

func TestUpdateLastReadFailsContractWhenUserMissing(t *testing.T) {
	f := setupReadStateFixture(t)

	req := f.request()
	req.UserID = 0

	result, err := f.service.UpdateLastRead(context.Background(), stubGuardian{allowed: true}, req)
	require.NoError(t, err)
	require.True(t, result.FailedContract())
	require.Contains(t, result.Fields, "UserID")
}

func TestUpdateLastReadFailsWhenMembershipMissing(t *testing.T) {
	f := setupReadStateFixture(t)
	require.NoError(t, f.db.Delete(&models.Membership{}, f.membership.ID).Error)

	result, err := f.service.UpdateLastRead(context.Background(), stubGuardian{userID: 1, allowed: true}, f.request())
	require.NoError(t, err)
	require.True(t, result.FailedToFindModel("membership"))
}

func TestUpdateLastReadFailsInvalidAccess(t *testing.T) {
	f := setupReadStateFixture(t)

	result, err := f.service.UpdateLastRead(context.Background(), stubGuardian{userID: 1, allowed: false}, f.request())
	require.NoError(t, err)
	require.True(t, result.FailedPolicy(PolicyInvalidAccess))
}

func TestUpdateLastReadFailsWhenMessageIDNotRecent(t *testing.T) {
	f := setupReadStateFixture(t)

	pointer := f.message.ID
	require.NoError(t, f.db.Model(&models.Membership{}).
		Where("id = ?", f.membership.ID).
		Update("last_read_message_id", pointer).Error)

	result, err := f.service.UpdateLastRead(context.Background(), stubGuardian{userID: 1, allowed: true}, f.request())
	require.NoError(t, err)
	require.True(t, result.FailedPolicy(PolicyEnsureMessageIDRecency))

	var reloaded models.Membership
	require.NoError(t, f.db.First(&reloaded, f.membership.ID).Error)
	require.Equal(t, pointer, *reloaded.LastReadMessageID)
	require.Empty(t, f.tracking.updates)
}

func TestUpdateLastReadFailsWhenMessageTrashed(t *testing.T) {
	f := setupReadStateFixture(t)
	require.NoError(t, f.db.Delete(&models.Message{}, f.message.ID).Error)

	result, err := f.service.UpdateLastRead(context.Background(), stubGuardian{userID: 1, allowed: true}, f.request())
	require.NoError(t, err)
	require.True(t, result.FailedPolicy(PolicyEnsureMessageExists))
}

func TestUpdateLastReadFailsWhenMessageInAnotherChannel(t *testing.T) {
	f := setupReadStateFixture(t)

	other := models.Channel{Name: "other", Slug: "other"}
	require.NoError(t, f.db.Create(&other).Error)
	foreign := models.Message{ChannelID: other.ID, AuthorID: 2, Content: "elsewhere"}
	require.NoError(t, f.db.Create(&foreign).Error)

	req := f.request()
	req.MessageID = foreign.ID

	result, err := f.service.UpdateLastRead(context.Background(), stubGuardian{userID: 1, allowed: true}, req)
	require.NoError(t, err)
	require.True(t, result.FailedPolicy(PolicyEnsureMessageExists))
}

func TestUpdateLastReadSuccess(t *testing.T) {
	f := setupReadStateFixture(t)

	messageID := f.message.ID
	channelID := f.channel.ID
	mention := models.Notification{
		UserID:    1,
		Type:      models.NotificationTypeMention,
		MessageID: &messageID,
		ChannelID: &channelID,
	}
	require.NoError(t, f.db.Create(&mention).Error)

	result, err := f.service.UpdateLastRead(context.Background(), stubGuardian{userID: 1, allowed: true}, f.request())
	require.NoError(t, err)
	require.True(t, result.OK)

	payload, ok := result.Payload.(dto.ReadStateResponse)
	require.True(t, ok)
	require.Equal(t, f.channel.ID, payload.ChannelID)
	require.Equal(t, f.message.ID, payload.LastReadMessageID)

	var reloaded models.Membership
	require.NoError(t, f.db.First(&reloaded, f.membership.ID).Error)
	require.Equal(t, f.message.ID, *reloaded.LastReadMessageID)

	var unreadMentions int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND read = ?", 1, models.NotificationTypeMention, false).
		Count(&unreadMentions).Error)
	require.Zero(t, unreadMentions)

	require.Len(t, f.tracking.updates, 1)
	require.Equal(t, dto.TrackingStateUpdate{
		UserID:            1,
		ChannelID:         f.channel.ID,
		LastReadMessageID: f.message.ID,
	}, f.tracking.updates[0])
}

func TestUpdateLastReadConcurrentRequestsConvergeToHighest(t *testing.T) {
	f := setupReadStateFixture(t)

	later := models.Message{ChannelID: f.channel.ID, AuthorID: 2, Content: "newer"}
	require.NoError(t, f.db.Create(&later).Error)

	reqHigh := f.request()
	reqHigh.MessageID = later.ID

	resultHigh, err := f.service.UpdateLastRead(context.Background(), stubGuardian{userID: 1, allowed: true}, reqHigh)
	require.NoError(t, err)
	require.True(t, resultHigh.OK)

	// The straggler with the smaller identifier is rejected by the recency
	// policy and must not regress the pointer.
	resultLow, err := f.service.UpdateLastRead(context.Background(), stubGuardian{userID: 1, allowed: true}, f.request())
	require.NoError(t, err)
	require.True(t, resultLow.FailedPolicy(PolicyEnsureMessageIDRecency))

	var reloaded models.Membership
	require.NoError(t, f.db.First(&reloaded, f.membership.ID).Error)
	require.Equal(t, later.ID, *reloaded.LastReadMessageID)
}
