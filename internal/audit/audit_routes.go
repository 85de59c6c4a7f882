package audit

import (
	"github.com/gin-gonic/gin"

	"leavedesk/internal/middleware"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	trail := r.Group("/audit")
	trail.Use(middleware.AuthMiddleware())
	{
		trail.GET("/:entityType/:entityId", handler.GetTrail)
	}
}
