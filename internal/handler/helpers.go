package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/apt-crowd/discourse/internal/pipeline"
	"github.com/apt-crowd/discourse/internal/service"
	"github.com/apt-crowd/discourse/internal/utils"
)

func parseQueryUintList(c *fiber.Ctx, key string) ([]uint, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parsed, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q", key, trimmed)
		}
		ids = append(ids, uint(parsed))
	}

	return ids, nil
}

func parseParamUint(c *fiber.Ctx, key string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(key)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

// sendPipelineResult maps the discriminated operation result onto transport
// status codes: contract failures are bad requests, a missing model is a
// not-found, an access policy rejection is forbidden, and every other named
// policy rejection is unprocessable.
func sendPipelineResult(c *fiber.Ctx, result pipeline.Result, successMessage string) error {
	if result.OK {
		return utils.SendSuccess(c, successMessage, result.Payload)
	}

	switch result.Kind {
	case pipeline.FailureContract:
		return utils.SendErrorDetail(c, fiber.StatusBadRequest, "invalid parameters", result.Fields)
	case pipeline.FailureModelNotFound:
		return utils.SendError(c, fiber.StatusNotFound, fmt.Sprintf("couldn't find %s", result.Name))
	case pipeline.FailurePolicy:
		if result.Name == service.PolicyInvalidAccess {
			return utils.SendError(c, fiber.StatusForbidden, result.Name)
		}
		return utils.SendError(c, fiber.StatusUnprocessableEntity, result.Name)
	default:
		return utils.SendError(c, fiber.StatusInternalServerError, "unexpected operation result")
	}
}
