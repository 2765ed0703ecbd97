package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/offis-rit/workq/internal/server/middleware"
	"github.com/offis-rit/workq/pkg/logger"
)

type messageResponse struct {
	MessageID         string `json:"message_id"`
	Payload           string `json:"payload"`
	Priority          int32  `json:"priority"`
	OffsetTimeSeconds int64  `json:"offset_time_seconds"`
}

// PollHandler implements GET /api/queues/:queue/messages?count=&timeout_ms=,
// returning full messages rather than the id-only pop projection so
// callers do not need a second round-trip to read the payload they just
// leased.
func PollHandler(c echo.Context) error {
	queueName := c.Param("queue")
	if queueName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "queue is required"})
	}

	count := 1
	if raw := c.QueryParam("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "count must be a positive integer"})
		}
		count = parsed
	}

	var timeoutMS int64
	if raw := c.QueryParam("timeout_ms"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "timeout_ms must be a non-negative integer"})
		}
		timeoutMS = parsed
	}

	eng := c.(*middleware.AppContext).App.Engine
	msgs, err := eng.PollMessages(c.Request().Context(), queueName, count, timeoutMS)
	if err != nil {
		logger.Error("poll failed", "queue", queueName, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	out := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = messageResponse{
			MessageID:         m.MessageID,
			Payload:           m.Payload,
			Priority:          m.Priority,
			OffsetTimeSeconds: m.OffsetTimeSeconds,
		}
	}
	return c.JSON(http.StatusOK, out)
}
