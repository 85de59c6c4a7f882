package request

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"leavedesk/internal/middleware"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rdb *redis.Client, rec middleware.UnauthorizedRecorder) {
	requests := r.Group("/requests")
	requests.Use(middleware.AuthMiddleware(rec))
	requests.Use(middleware.RateLimitByUser(rate.Limit(5), 10))
	{
		requests.POST("", middleware.Idempotency(rdb), handler.Create)
		requests.GET("", handler.GetAll)
		requests.GET("/summary", handler.Summary)
		requests.GET("/:id", handler.GetByID)

		requests.POST("/:id/approve", middleware.Idempotency(rdb), handler.Approve)
		requests.POST("/:id/deny", middleware.Idempotency(rdb), handler.Deny)
		requests.POST("/:id/archive", handler.Archive)
		requests.POST("/:id/unarchive", handler.Unarchive)
		requests.DELETE("/:id", handler.SoftDelete)
		requests.POST("/:id/restore", handler.Restore)
	}
}
