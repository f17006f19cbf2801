package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/apt-crowd/discourse/internal/pipeline"
	"github.com/apt-crowd/discourse/internal/service"
	"github.com/apt-crowd/discourse/internal/utils"
)

// NotificationHandler exposes a user's notification feed over HTTP.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/unread-mentions", h.unreadMentions)
	router.Patch("/:notificationID/read", h.markRead)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	notifications, err := h.service.List(requestContext(c), userID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to list notifications")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list notifications")
	}

	return utils.SendSuccess(c, "notifications", notifications)
}

func (h *NotificationHandler) unreadMentions(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	response, err := h.service.UnreadMentions(requestContext(c), userID)
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to count unread mentions")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to count unread mentions")
	}

	return utils.SendSuccess(c, "unread mentions", response)
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	notificationID, err := parseParamUint(c, "notificationID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	notification, err := h.service.MarkRead(requestContext(c), notificationID, userID)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "couldn't find notification")
		}
		h.logger.Error().Err(err).Uint("notification_id", notificationID).Msg("failed to mark notification read")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to mark notification read")
	}

	return utils.SendSuccess(c, "notification marked read", notification)
}
