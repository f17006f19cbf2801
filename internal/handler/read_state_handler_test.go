package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/apt-crowd/discourse/internal/dto"
	"github.com/apt-crowd/discourse/internal/guard"
	"github.com/apt-crowd/discourse/internal/pipeline"
)

type stubReadStateService struct {
	result  pipeline.Result
	lastReq dto.UpdateLastReadRequest
}

func (s *stubReadStateService) UpdateLastRead(_ context.Context, _ guard.Guardian, req dto.UpdateLastReadRequest) (pipeline.Result, error) {
	s.lastReq = req
	return s.result, nil
}

func newReadStateApp(svc *stubReadStateService, userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals("user_id", userID)
			c.Locals("user_role", "member")
		}
		return c.Next()
	})
	NewReadStateHandler(svc, zerolog.Nop()).Register(app.Group("/api/chat"))
	return app
}

func TestUpdateLastReadEndpointSuccess(t *testing.T) {
	svc := &stubReadStateService{result: pipeline.Success(dto.ReadStateResponse{ChannelID: 2, LastReadMessageID: 9})}
	app := newReadStateApp(svc, 1)

	req := httptest.NewRequest(http.MethodPut, "/api/chat/channels/2/read/9", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, dto.UpdateLastReadRequest{UserID: 1, ChannelID: 2, MessageID: 9}, svc.lastReq)
}

func TestUpdateLastReadEndpointRequiresAuthentication(t *testing.T) {
	svc := &stubReadStateService{result: pipeline.Success(nil)}
	app := newReadStateApp(svc, 0)

	req := httptest.NewRequest(http.MethodPut, "/api/chat/channels/2/read/9", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateLastReadEndpointStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		result pipeline.Result
		status int
	}{
		{"contract failure", pipeline.ContractFailure("MessageID"), fiber.StatusBadRequest},
		{"membership missing", pipeline.ModelNotFound("membership"), fiber.StatusNotFound},
		{"access denied", pipeline.PolicyFailure("invalid_access"), fiber.StatusForbidden},
		{"stale message id", pipeline.PolicyFailure("ensure_message_id_recency"), fiber.StatusUnprocessableEntity},
		{"trashed message", pipeline.PolicyFailure("ensure_message_exists"), fiber.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newReadStateApp(&stubReadStateService{result: tc.result}, 1)

			req := httptest.NewRequest(http.MethodPut, "/api/chat/channels/2/read/9", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestUpdateLastReadEndpointRejectsBadIdentifiers(t *testing.T) {
	app := newReadStateApp(&stubReadStateService{result: pipeline.Success(nil)}, 1)

	req := httptest.NewRequest(http.MethodPut, "/api/chat/channels/abc/read/9", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
