package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/apt-crowd/discourse/internal/dto"
	"github.com/apt-crowd/discourse/internal/guard"
	"github.com/apt-crowd/discourse/internal/middleware"
	"github.com/apt-crowd/discourse/internal/service"
	"github.com/apt-crowd/discourse/internal/utils"
)

// ReadStateHandler exposes last-read pointer advancement over HTTP.
type ReadStateHandler struct {
	service service.ReadStateService
	logger  zerolog.Logger
}

// NewReadStateHandler constructs a handler instance.
func NewReadStateHandler(service service.ReadStateService, logger zerolog.Logger) *ReadStateHandler {
	return &ReadStateHandler{
		service: service,
		logger:  logger.With().Str("component", "read_state_handler").Logger(),
	}
}

// Register binds the read-state routes.
func (h *ReadStateHandler) Register(router fiber.Router) {
	router.Put("/channels/:channelID/read/:messageID", h.updateLastRead)
}

func (h *ReadStateHandler) updateLastRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	channelID, err := parseParamUint(c, "channelID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	messageID, err := parseParamUint(c, "messageID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))

	guardian := guard.New(userID, userRoleFromContext(c))
	result, err := h.service.UpdateLastRead(ctx, guardian, dto.UpdateLastReadRequest{
		UserID:    userID,
		ChannelID: channelID,
		MessageID: messageID,
	})
	if err != nil {
		h.logger.Error().Err(err).Uint("channel_id", channelID).Msg("last read advancement errored")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update read state")
	}

	return sendPipelineResult(c, result, "read state updated")
}
