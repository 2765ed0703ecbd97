package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/offis-rit/workq/internal/server/middleware"
	"github.com/offis-rit/workq/pkg/logger"
)

// GetSizeHandler implements GET /api/queues/:queue/size.
func GetSizeHandler(c echo.Context) error {
	queueName := c.Param("queue")
	eng := c.(*middleware.AppContext).App.Engine

	size, err := eng.GetSize(c.Request().Context(), queueName)
	if err != nil {
		logger.Error("getSize failed", "queue", queueName, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]int64{"size": size})
}

// QueuesDetailHandler implements GET /api/queues and GET
// /api/queues?verbose=1.
func QueuesDetailHandler(c echo.Context) error {
	eng := c.(*middleware.AppContext).App.Engine
	ctx := c.Request().Context()

	verbose, _ := strconv.ParseBool(c.QueryParam("verbose"))
	if !verbose {
		detail, err := eng.QueuesDetail(ctx)
		if err != nil {
			logger.Error("queuesDetail failed", "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		}
		return c.JSON(http.StatusOK, detail)
	}

	detail, err := eng.QueuesDetailVerbose(ctx)
	if err != nil {
		logger.Error("queuesDetailVerbose failed", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, detail)
}

// ProcessUnacksHandler implements POST
// /api/queues/:queue/unacks/process, the user-callable per-queue reclaim.
func ProcessUnacksHandler(c echo.Context) error {
	queueName := c.Param("queue")
	eng := c.(*middleware.AppContext).App.Engine

	if err := eng.ProcessUnacks(c.Request().Context(), queueName); err != nil {
		logger.Error("processUnacks failed", "queue", queueName, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "processed"})
}
