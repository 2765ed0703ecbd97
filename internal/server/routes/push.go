package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/offis-rit/workq/internal/queue"
	"github.com/offis-rit/workq/internal/server/middleware"
	"github.com/offis-rit/workq/pkg/logger"
)

type pushMessageBody struct {
	MessageID         string `json:"message_id" validate:"required"`
	Payload           string `json:"payload"`
	Priority          int32  `json:"priority"`
	OffsetTimeSeconds int64  `json:"offset_time_seconds" validate:"gte=0"`
}

type pushRequestBody struct {
	Message  *pushMessageBody  `json:"message"`
	Messages []pushMessageBody `json:"messages"`
}

// PushHandler implements POST /api/queues/:queue/messages: push(queue,
// message) or push(queue, [messages]).
func PushHandler(c echo.Context) error {
	queueName := c.Param("queue")
	if queueName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "queue is required"})
	}

	body := new(pushRequestBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	reqs := body.Messages
	if body.Message != nil {
		reqs = append(reqs, *body.Message)
	}
	if len(reqs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "message or messages is required"})
	}
	for _, m := range reqs {
		if err := c.Validate(m); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		}
	}

	eng := c.(*middleware.AppContext).App.Engine
	ctx := c.Request().Context()

	pushReqs := make([]queue.PushRequest, len(reqs))
	for i, m := range reqs {
		pushReqs[i] = queue.PushRequest{
			MessageID:         m.MessageID,
			Payload:           m.Payload,
			Priority:          m.Priority,
			OffsetTimeSeconds: m.OffsetTimeSeconds,
		}
	}

	if len(pushReqs) == 1 {
		if err := eng.Push(ctx, queueName, pushReqs[0]); err != nil {
			logger.Error("push failed", "queue", queueName, "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		}
	} else if err := eng.PushBatch(ctx, queueName, pushReqs); err != nil {
		logger.Error("push batch failed", "queue", queueName, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "pushed"})
}

// PushIfNotExistsHandler implements POST /api/queues/:queue/messages/try.
func PushIfNotExistsHandler(c echo.Context) error {
	queueName := c.Param("queue")
	if queueName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "queue is required"})
	}

	body := new(pushMessageBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	eng := c.(*middleware.AppContext).App.Engine
	created, err := eng.PushIfNotExists(c.Request().Context(), queueName, queue.PushRequest{
		MessageID:         body.MessageID,
		Payload:           body.Payload,
		Priority:          body.Priority,
		OffsetTimeSeconds: body.OffsetTimeSeconds,
	})
	if err != nil {
		logger.Error("pushIfNotExists failed", "queue", queueName, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"created": created})
}
