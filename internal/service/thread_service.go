package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/apt-crowd/discourse/internal/dto"
	"github.com/apt-crowd/discourse/internal/observability"
	"github.com/apt-crowd/discourse/internal/repository"
)

// ThreadService exposes the thread consistency reconciler and the grouped
// messages query.
type ThreadService interface {
	EnsureConsistency(ctx context.Context, threadIDs ...uint) (dto.EnsureConsistencyResponse, error)
	GroupedMessages(ctx context.Context, query repository.GroupedMessagesQuery) ([]dto.GroupedThreadMessages, error)
	StartReconciler(ctx context.Context, interval time.Duration)
}

type threadService struct {
	threads repository.ThreadRepository
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewThreadService constructs the thread service.
func NewThreadService(threads repository.ThreadRepository, logger zerolog.Logger) ThreadService {
	return &threadService{
		threads: threads,
		logger:  logger.With().Str("component", "thread_service").Logger(),
		tracer:  otel.Tracer("github.com/apt-crowd/discourse/internal/service/thread"),
	}
}

// EnsureConsistency recomputes cached reply counts from the message log.
// Any inability to read the log fails the whole run; the pass is idempotent
// and safe to re-run to completion.
func (s *threadService) EnsureConsistency(ctx context.Context, threadIDs ...uint) (dto.EnsureConsistencyResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "chat.threads.ensure_consistency", trace.WithAttributes(
		attribute.Int("chat.thread_count", len(threadIDs)),
	))
	defer span.End()

	updated, err := s.threads.EnsureConsistency(spanCtx, threadIDs...)
	if err != nil {
		span.RecordError(err)
		return dto.EnsureConsistencyResponse{}, err
	}

	observability.ThreadReconciliationRuns().Inc()
	observability.ThreadReplyCountUpdates().Add(float64(updated))

	if updated > 0 {
		s.logger.Info().Int("updated_threads", updated).Msg("thread reply counts reconciled")
	}

	return dto.EnsureConsistencyResponse{UpdatedThreads: updated}, nil
}

func (s *threadService) GroupedMessages(ctx context.Context, query repository.GroupedMessagesQuery) ([]dto.GroupedThreadMessages, error) {
	groups, err := s.threads.GroupedMessages(ctx, query)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.GroupedThreadMessages, 0, len(groups))
	for _, group := range groups {
		responses = append(responses, dto.GroupedThreadMessages{
			ThreadID:          group.ThreadID,
			OriginalMessageID: group.OriginalMessageID,
			ThreadMessageIDs:  group.MessageIDs,
		})
	}

	return responses, nil
}

// StartReconciler runs EnsureConsistency on the given interval until the
// context is cancelled. An interval of zero disables the schedule; callers
// can still reconcile on demand.
func (s *threadService) StartReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.EnsureConsistency(ctx); err != nil {
					s.logger.Error().Err(err).Msg("scheduled thread reconciliation failed")
				}
			}
		}
	}()
}
