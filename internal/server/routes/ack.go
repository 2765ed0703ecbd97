package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/offis-rit/workq/internal/server/middleware"
	"github.com/offis-rit/workq/pkg/logger"
)

// AckHandler implements DELETE /api/queues/:queue/messages/:id.
func AckHandler(c echo.Context) error {
	queueName, messageID := c.Param("queue"), c.Param("id")
	eng := c.(*middleware.AppContext).App.Engine

	removed, err := eng.Ack(c.Request().Context(), queueName, messageID)
	if err != nil {
		logger.Error("ack failed", "queue", queueName, "message_id", messageID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"acked": removed})
}

// ExistsHandler implements GET /api/queues/:queue/messages/:id/exists.
func ExistsHandler(c echo.Context) error {
	queueName, messageID := c.Param("queue"), c.Param("id")
	eng := c.(*middleware.AppContext).App.Engine

	found, err := eng.Exists(c.Request().Context(), queueName, messageID)
	if err != nil {
		logger.Error("exists failed", "queue", queueName, "message_id", messageID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"exists": found})
}

// RemoveHandler implements DELETE /api/queues/:queue/messages/:id/force,
// the administrative unconditional delete.
func RemoveHandler(c echo.Context) error {
	queueName, messageID := c.Param("queue"), c.Param("id")
	eng := c.(*middleware.AppContext).App.Engine

	if err := eng.Remove(c.Request().Context(), queueName, messageID); err != nil {
		logger.Error("remove failed", "queue", queueName, "message_id", messageID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "removed"})
}

// FlushHandler implements DELETE /api/queues/:queue.
func FlushHandler(c echo.Context) error {
	queueName := c.Param("queue")
	eng := c.(*middleware.AppContext).App.Engine

	if err := eng.Flush(c.Request().Context(), queueName); err != nil {
		logger.Error("flush failed", "queue", queueName, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "flushed"})
}
