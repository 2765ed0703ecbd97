package server

import (
	"github.com/offis-rit/workq/internal/server/middleware"
	"github.com/offis-rit/workq/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.POST("/queues/:queue/messages", routes.PushHandler, middleware.RequirePermission("queue.push"))
	apiRoutes.POST("/queues/:queue/messages/try", routes.PushIfNotExistsHandler, middleware.RequirePermission("queue.push"))
	apiRoutes.GET("/queues/:queue/messages", routes.PollHandler, middleware.RequirePermission("queue.poll"))
	apiRoutes.DELETE("/queues/:queue/messages/:id", routes.AckHandler, middleware.RequirePermission("queue.ack"))
	apiRoutes.GET("/queues/:queue/messages/:id/exists", routes.ExistsHandler, middleware.RequirePermission("queue.poll"))
	apiRoutes.DELETE("/queues/:queue/messages/:id/force", routes.RemoveHandler, middleware.RequirePermission("queue.manage"))
	apiRoutes.DELETE("/queues/:queue", routes.FlushHandler, middleware.RequirePermission("queue.manage"))
	apiRoutes.PATCH("/queues/:queue/messages/:id/unack-timeout", routes.SetUnackTimeoutHandler, middleware.RequirePermission("queue.manage"))
	apiRoutes.PATCH("/queues/:queue/messages/:id/offset", routes.SetOffsetTimeHandler, middleware.RequirePermission("queue.manage"))
	apiRoutes.GET("/queues/:queue/size", routes.GetSizeHandler, middleware.RequirePermission("queue.poll"))
	apiRoutes.GET("/queues", routes.QueuesDetailHandler, middleware.RequirePermission("queue.poll"))
	apiRoutes.POST("/queues/:queue/unacks/process", routes.ProcessUnacksHandler, middleware.RequirePermission("queue.admin:unacks"))
}
