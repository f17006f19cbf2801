package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/apt-crowd/discourse/internal/models"
	"github.com/apt-crowd/discourse/internal/repository"
)

type stubThreadRepo struct {
	ensureCalls [][]uint
	updated     int
	groups      []repository.ThreadMessageGroup
	lastQuery   repository.GroupedMessagesQuery
}

func (s *stubThreadRepo) Create(context.Context, *models.Thread) error { return nil }

func (s *stubThreadRepo) FindByID(context.Context, uint) (models.Thread, error) {
	return models.Thread{}, nil
}

func (s *stubThreadRepo) EnsureConsistency(_ context.Context, threadIDs ...uint) (int, error) {
	s.ensureCalls = append(s.ensureCalls, threadIDs)
	return s.updated, nil
}

func (s *stubThreadRepo) GroupedMessages(_ context.Context, query repository.GroupedMessagesQuery) ([]repository.ThreadMessageGroup, error) {
	s.lastQuery = query
	return s.groups, nil
}

func TestThreadServiceEnsureConsistencyReportsUpdates(t *testing.T) {
	repo := &stubThreadRepo{updated: 2}
	svc := NewThreadService(repo, zerolog.Nop())

	response, err := svc.EnsureConsistency(context.Background(), 3, 4)
	require.NoError(t, err)
	require.Equal(t, 2, response.UpdatedThreads)
	require.Equal(t, [][]uint{{3, 4}}, repo.ensureCalls)
}

func TestThreadServiceGroupedMessagesMapsGroups(t *testing.T) {
	repo := &stubThreadRepo{groups: []repository.ThreadMessageGroup{
		{ThreadID: 1, OriginalMessageID: 10, MessageIDs: []uint{10, 11, 12}},
	}}
	svc := NewThreadService(repo, zerolog.Nop())

	groups, err := svc.GroupedMessages(context.Background(), repository.GroupedMessagesQuery{
		ThreadIDs:              []uint{1},
		IncludeOriginalMessage: true,
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, uint(1), groups[0].ThreadID)
	require.Equal(t, uint(10), groups[0].OriginalMessageID)
	require.Equal(t, []uint{10, 11, 12}, groups[0].ThreadMessageIDs)
	require.True(t, repo.lastQuery.IncludeOriginalMessage)
}
