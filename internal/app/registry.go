package app

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"leavedesk/internal/audit"
	"leavedesk/internal/auth"
	"leavedesk/internal/authz"
	"leavedesk/internal/messaging/kafka"
	"leavedesk/internal/middleware"
	"leavedesk/internal/request"
)

func registerModules(
	router *gin.Engine,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	// --- Repositories ---
	auditRepo := audit.NewRepository(gormDB)
	authRepo := auth.NewRepository(gormDB)
	requestRepo := request.NewRepository(gormDB, db)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Authorization gate ---
	gate, err := authz.NewGate()
	if err != nil {
		return err
	}

	// --- Services ---
	recorder := audit.NewRecorder(auditRepo)
	authService := auth.NewService(authRepo)
	requestService := request.NewService(db, requestRepo, outboxRepo, gate, recorder)

	// --- Handlers ---
	authHandler := auth.NewHandler(authService)
	requestHandler := request.NewHandlerWithRedis(requestService, rdb)
	auditHandler := audit.NewHandler(auditRepo)

	// --- Routes ---
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimitByIP(rate.Limit(20), 40))

	api := router.Group("/api/v1")
	{
		auth.RegisterRoutes(api, authHandler)
		request.RegisterRoutes(api, requestHandler, rdb, recorder)
		audit.RegisterRoutes(api, auditHandler)
	}

	return nil
}
