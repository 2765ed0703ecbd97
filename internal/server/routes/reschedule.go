package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/offis-rit/workq/internal/server/middleware"
	"github.com/offis-rit/workq/pkg/logger"
)

type unackTimeoutBody struct {
	UnackMS int64 `json:"unack_ms" validate:"gte=0"`
}

// SetUnackTimeoutHandler implements PATCH
// /api/queues/:queue/messages/:id/unack-timeout.
func SetUnackTimeoutHandler(c echo.Context) error {
	queueName, messageID := c.Param("queue"), c.Param("id")

	body := new(unackTimeoutBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	eng := c.(*middleware.AppContext).App.Engine
	updated, err := eng.SetUnackTimeout(c.Request().Context(), queueName, messageID, body.UnackMS)
	if err != nil {
		logger.Error("setUnackTimeout failed", "queue", queueName, "message_id", messageID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"updated": updated})
}

type offsetTimeBody struct {
	OffsetTimeSeconds int64 `json:"offset_time_seconds" validate:"gte=0"`
}

// SetOffsetTimeHandler implements PATCH
// /api/queues/:queue/messages/:id/offset.
func SetOffsetTimeHandler(c echo.Context) error {
	queueName, messageID := c.Param("queue"), c.Param("id")

	body := new(offsetTimeBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	eng := c.(*middleware.AppContext).App.Engine
	updated, err := eng.SetOffsetTime(c.Request().Context(), queueName, messageID, body.OffsetTimeSeconds)
	if err != nil {
		logger.Error("setOffsetTime failed", "queue", queueName, "message_id", messageID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"updated": updated})
}
