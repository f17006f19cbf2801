package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/apt-crowd/discourse/internal/models"
)

// GroupedMessagesQuery selects threads either by thread identifiers or by
// message identifiers. The two modes are mutually exclusive.
type GroupedMessagesQuery struct {
	ThreadIDs              []uint
	MessageIDs             []uint
	IncludeOriginalMessage bool
}

// ThreadMessageGroup is one grouped-messages row: the message identifiers
// belonging to a thread in ascending creation order. When the original
// message is included it is the first element of MessageIDs.
type ThreadMessageGroup struct {
	ThreadID          uint
	OriginalMessageID uint
	MessageIDs        []uint
}

// ThreadRepository maintains thread aggregates over the message log.
type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) error
	FindByID(ctx context.Context, id uint) (models.Thread, error)
	EnsureConsistency(ctx context.Context, threadIDs ...uint) (int, error)
	GroupedMessages(ctx context.Context, query GroupedMessagesQuery) ([]ThreadMessageGroup, error)
}

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository constructs a repository backed by GORM.
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) Create(ctx context.Context, thread *models.Thread) error {
	return r.db.WithContext(ctx).Create(thread).Error
}

func (r *threadRepository) FindByID(ctx context.Context, id uint) (models.Thread, error) {
	var thread models.Thread
	if err := r.db.WithContext(ctx).First(&thread, id).Error; err != nil {
		return models.Thread{}, err
	}
	return thread, nil
}

type threadReplyRow struct {
	ThreadID uint
	Cached   int64
	Replies  int64
}

// EnsureConsistency recomputes replies_count for every thread (or the given
// subset) from the message log and persists only the values that drifted.
// It is a convergent recomputation over source data, not an incremental
// counter, so it is idempotent and safe to run concurrently with message
// creation and deletion. Returns the number of threads updated.
func (r *threadRepository) EnsureConsistency(ctx context.Context, threadIDs ...uint) (int, error) {
	query := r.db.WithContext(ctx).
		Table("threads").
		Select("threads.id AS thread_id, threads.replies_count AS cached, COUNT(messages.id) AS replies").
		Joins("LEFT JOIN messages ON messages.thread_id = threads.id AND messages.id <> threads.original_message_id AND messages.deleted_at IS NULL").
		Group("threads.id, threads.replies_count")
	if len(threadIDs) > 0 {
		query = query.Where("threads.id IN ?", threadIDs)
	}

	var rows []threadReplyRow
	if err := query.Scan(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to recompute thread reply counts: %w", err)
	}

	updated := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if row.Replies == row.Cached {
				continue
			}
			result := tx.Model(&models.Thread{}).
				Where("id = ?", row.ThreadID).
				Update("replies_count", row.Replies)
			if result.Error != nil {
				return result.Error
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to persist thread reply counts: %w", err)
	}

	return updated, nil
}

type groupedMessageRow struct {
	ThreadID          uint
	OriginalMessageID uint
	MessageID         uint
}

// GroupedMessages groups message identifiers by owning thread, ordered by
// creation. Threads with no matching input identifiers are absent from the
// result; an empty selection yields an empty result rather than an error.
func (r *threadRepository) GroupedMessages(ctx context.Context, query GroupedMessagesQuery) ([]ThreadMessageGroup, error) {
	if len(query.ThreadIDs) > 0 && len(query.MessageIDs) > 0 {
		return nil, fmt.Errorf("thread ids and message ids are mutually exclusive")
	}
	if len(query.ThreadIDs) == 0 && len(query.MessageIDs) == 0 {
		return []ThreadMessageGroup{}, nil
	}

	base := r.db.WithContext(ctx).
		Table("messages").
		Select("threads.id AS thread_id, threads.original_message_id AS original_message_id, messages.id AS message_id").
		Joins("JOIN threads ON messages.thread_id = threads.id OR messages.id = threads.original_message_id").
		Where("messages.deleted_at IS NULL")
	if len(query.ThreadIDs) > 0 {
		base = base.Where("threads.id IN ?", query.ThreadIDs)
	} else {
		base = base.Where("messages.id IN ?", query.MessageIDs)
	}

	var rows []groupedMessageRow
	if err := base.Order("messages.created_at ASC, messages.id ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group thread messages: %w", err)
	}

	groups := make([]ThreadMessageGroup, 0)
	index := make(map[uint]int)
	for _, row := range rows {
		position, seen := index[row.ThreadID]
		if !seen {
			position = len(groups)
			index[row.ThreadID] = position
			groups = append(groups, ThreadMessageGroup{
				ThreadID:          row.ThreadID,
				OriginalMessageID: row.OriginalMessageID,
				MessageIDs:        []uint{},
			})
		}
		if !query.IncludeOriginalMessage && row.MessageID == row.OriginalMessageID {
			continue
		}
		groups[position].MessageIDs = append(groups[position].MessageIDs, row.MessageID)
	}

	return groups, nil
}
