package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/apt-crowd/discourse/internal/models"
)

func TestMessageRepositoryTrashHidesMessage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	message := models.Message{ChannelID: 1, AuthorID: 2, Content: "hello"}
	require.NoError(t, repo.Create(ctx, &message))

	found, err := repo.FindVisible(ctx, message.ID)
	require.NoError(t, err)
	require.Equal(t, message.ID, found.ID)

	require.NoError(t, repo.Trash(ctx, message.ID))

	_, err = repo.FindVisible(ctx, message.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestMessageRepositoryListByChannelSkipsTrashed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	first := models.Message{ChannelID: 1, AuthorID: 2, Content: "one"}
	require.NoError(t, repo.Create(ctx, &first))
	second := models.Message{ChannelID: 1, AuthorID: 2, Content: "two"}
	require.NoError(t, repo.Create(ctx, &second))
	other := models.Message{ChannelID: 9, AuthorID: 2, Content: "elsewhere"}
	require.NoError(t, repo.Create(ctx, &other))

	require.NoError(t, repo.Trash(ctx, first.ID))

	messages, err := repo.ListByChannel(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, second.ID, messages[0].ID)
}

func TestMembershipRepositoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	membership := models.Membership{UserID: 5, ChannelID: 7}
	require.NoError(t, repo.Create(ctx, &membership))

	found, err := repo.FindByUserAndChannel(ctx, 5, 7)
	require.NoError(t, err)
	require.Equal(t, membership.ID, found.ID)

	require.NoError(t, repo.Delete(ctx, 5, 7))

	_, err = repo.FindByUserAndChannel(ctx, 5, 7)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
