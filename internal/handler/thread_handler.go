package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/apt-crowd/discourse/internal/dto"
	"github.com/apt-crowd/discourse/internal/middleware"
	"github.com/apt-crowd/discourse/internal/repository"
	"github.com/apt-crowd/discourse/internal/service"
	"github.com/apt-crowd/discourse/internal/utils"
)

// ThreadHandler exposes the thread grouping query and the on-demand
// reply-count reconciliation endpoint.
type ThreadHandler struct {
	service service.ThreadService
	logger  zerolog.Logger
}

// NewThreadHandler constructs a handler instance.
func NewThreadHandler(service service.ThreadService, logger zerolog.Logger) *ThreadHandler {
	return &ThreadHandler{
		service: service,
		logger:  logger.With().Str("component", "thread_handler").Logger(),
	}
}

// Register binds the thread routes. Reconciliation is restricted to staff.
func (h *ThreadHandler) Register(router fiber.Router) {
	router.Get("/grouped", h.groupedMessages)
	router.Post("/ensure-consistency", middleware.RequireRole("admin", "moderator"), h.ensureConsistency)
}

func (h *ThreadHandler) groupedMessages(c *fiber.Ctx) error {
	threadIDs, err := parseQueryUintList(c, "thread_ids")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	messageIDs, err := parseQueryUintList(c, "message_ids")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if len(threadIDs) > 0 && len(messageIDs) > 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "thread_ids and message_ids are mutually exclusive")
	}

	includeOriginal := true
	if raw := strings.TrimSpace(c.Query("include_original_message")); raw != "" {
		includeOriginal = raw != "false" && raw != "0"
	}

	groups, err := h.service.GroupedMessages(requestContext(c), repository.GroupedMessagesQuery{
		ThreadIDs:              threadIDs,
		MessageIDs:             messageIDs,
		IncludeOriginalMessage: includeOriginal,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("grouped messages query failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to group thread messages")
	}

	return utils.SendSuccess(c, "grouped thread messages", groups)
}

func (h *ThreadHandler) ensureConsistency(c *fiber.Ctx) error {
	var req dto.EnsureConsistencyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	response, err := h.service.EnsureConsistency(requestContext(c), req.ThreadIDs...)
	if err != nil {
		h.logger.Error().Err(err).Msg("thread reconciliation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to reconcile threads")
	}

	return utils.SendSuccess(c, "threads reconciled", response)
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}
