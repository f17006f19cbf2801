package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/apt-crowd/discourse/internal/dto"
	"github.com/apt-crowd/discourse/internal/guard"
	"github.com/apt-crowd/discourse/internal/models"
	"github.com/apt-crowd/discourse/internal/observability"
	"github.com/apt-crowd/discourse/internal/pipeline"
	"github.com/apt-crowd/discourse/internal/repository"
)

// Policy names surfaced by UpdateLastRead failures. Callers rely on them to
// render distinct responses, e.g. "already read past this point" versus
// "message was deleted".
const (
	PolicyInvalidAccess          = "invalid_access"
	PolicyEnsureMessageIDRecency = "ensure_message_id_recency"
	PolicyEnsureMessageExists    = "ensure_message_exists"
)

// TrackingPublisher is the broadcast boundary consumed by the read-state
// pipeline. Delivery is best-effort and must never block the caller.
type TrackingPublisher interface {
	Publish(ctx context.Context, update dto.TrackingStateUpdate)
}

// ReadStateService advances a membership's last-read pointer, reconciles the
// mention notifications the new pointer covers, and fans the new position out
// to the user's open sessions.
type ReadStateService interface {
	UpdateLastRead(ctx context.Context, guardian guard.Guardian, req dto.UpdateLastReadRequest) (pipeline.Result, error)
}

type readStateService struct {
	memberships repository.MembershipRepository
	channels    repository.ChannelRepository
	messages    repository.MessageRepository
	tracking    TrackingPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewReadStateService constructs the read-state service.
func NewReadStateService(
	memberships repository.MembershipRepository,
	channels repository.ChannelRepository,
	messages repository.MessageRepository,
	tracking TrackingPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) ReadStateService {
	return &readStateService{
		memberships: memberships,
		channels:    channels,
		messages:    messages,
		tracking:    tracking,
		validator:   validate,
		logger:      logger.With().Str("component", "read_state_service").Logger(),
		tracer:      otel.Tracer("github.com/apt-crowd/discourse/internal/service/readstate"),
	}
}

// UpdateLastRead runs the advancement pipeline: contract, membership and
// channel resolution, the ordered policy chain, then the transactional
// mutation. The broadcast is enqueued only after the transaction committed.
func (s *readStateService) UpdateLastRead(ctx context.Context, guardian guard.Guardian, req dto.UpdateLastReadRequest) (pipeline.Result, error) {
	spanCtx, span := s.tracer.Start(ctx, "chat.update_last_read", trace.WithAttributes(
		attribute.Int64("chat.user_id", int64(req.UserID)),
		attribute.Int64("chat.channel_id", int64(req.ChannelID)),
		attribute.Int64("chat.message_id", int64(req.MessageID)),
	))
	defer span.End()

	var outcome repository.AdvanceLastReadOutcome

	result, err := pipeline.New().
		Contract(s.validator, req).
		Model("membership", func(ctx context.Context, st *pipeline.State) (any, error) {
			membership, err := s.memberships.FindByUserAndChannel(ctx, req.UserID, req.ChannelID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pipeline.ErrNotFound
			}
			if err != nil {
				return nil, err
			}
			return membership, nil
		}).
		Model("channel", func(ctx context.Context, st *pipeline.State) (any, error) {
			channel, err := s.channels.FindByID(ctx, req.ChannelID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pipeline.ErrNotFound
			}
			if err != nil {
				return nil, err
			}
			return channel, nil
		}).
		Policy(PolicyInvalidAccess, func(ctx context.Context, st *pipeline.State) (bool, error) {
			channel := st.Model("channel").(models.Channel)
			return guardian.CanReadChannel(ctx, channel), nil
		}).
		Policy(PolicyEnsureMessageIDRecency, func(ctx context.Context, st *pipeline.State) (bool, error) {
			membership := st.Model("membership").(models.Membership)
			// An unset pointer reads as the lowest possible value, so any
			// message id passes.
			if membership.LastReadMessageID == nil {
				return true, nil
			}
			return req.MessageID > *membership.LastReadMessageID, nil
		}).
		Policy(PolicyEnsureMessageExists, func(ctx context.Context, st *pipeline.State) (bool, error) {
			message, err := s.messages.FindVisible(ctx, req.MessageID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return message.ChannelID == req.ChannelID, nil
		}).
		Mutate(func(ctx context.Context, st *pipeline.State) (any, error) {
			membership := st.Model("membership").(models.Membership)

			var err error
			outcome, err = s.memberships.AdvanceLastRead(ctx, repository.AdvanceLastReadInput{
				MembershipID: membership.ID,
				UserID:       req.UserID,
				ChannelID:    req.ChannelID,
				MessageID:    req.MessageID,
			})
			if err != nil {
				return nil, err
			}

			return dto.ReadStateResponse{
				ChannelID:         req.ChannelID,
				LastReadMessageID: outcome.LastReadMessageID,
			}, nil
		}).
		Run(spanCtx)
	if err != nil {
		span.RecordError(err)
		return pipeline.Result{}, err
	}

	if !result.OK {
		s.logger.Debug().
			Uint("user_id", req.UserID).
			Uint("channel_id", req.ChannelID).
			Str("kind", string(result.Kind)).
			Str("name", result.Name).
			Msg("last read advancement rejected")
		return result, nil
	}

	if outcome.Advanced {
		observability.ReadStateAdvancements().Inc()
	} else {
		observability.ReadStateNoops().Inc()
	}
	observability.NotificationsReconciled().Add(float64(outcome.NotificationsRead))

	// The transaction has committed; fan the new position out to the user's
	// open sessions. Delivery is asynchronous and best-effort.
	s.tracking.Publish(spanCtx, dto.TrackingStateUpdate{
		UserID:            req.UserID,
		ChannelID:         req.ChannelID,
		LastReadMessageID: outcome.LastReadMessageID,
	})

	s.logger.Info().
		Uint("user_id", req.UserID).
		Uint("channel_id", req.ChannelID).
		Uint("last_read_message_id", outcome.LastReadMessageID).
		Bool("advanced", outcome.Advanced).
		Int64("notifications_read", outcome.NotificationsRead).
		Msg("last read advanced")

	return result, nil
}
