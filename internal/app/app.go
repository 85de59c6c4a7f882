package app

import (
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leavedesk/internal/audit"
	"leavedesk/internal/auth"
	"leavedesk/internal/request"
	"leavedesk/internal/shared/connection"
)

func BuildApp(router *gin.Engine) error {
	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	if err := migrate(gormDB); err != nil {
		return err
	}

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		zap.L().Warn("redis unavailable, idempotency replay disabled", zap.Error(err))
		redisClient = nil
	}

	return registerModules(router, gormDB, redisClient)
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&auth.User{},
		&request.LeaveRequest{},
		&audit.Entry{},
	); err != nil {
		return err
	}

	// Blocks resubmitting an identical request while one is still pending.
	if err := db.Exec(`
        CREATE UNIQUE INDEX IF NOT EXISTS uq_leave_requests_pending_submission
        ON leave_requests (employee_name, leave_type, start_date, end_date)
        WHERE status = 'PENDING'
    `).Error; err != nil {
		return err
	}

	// The outbox is written with raw SQL, so it is not an AutoMigrate model.
	return db.Exec(`
        CREATE TABLE IF NOT EXISTS outbox_events (
            id UUID PRIMARY KEY,
            request_id VARCHAR(64),
            aggregate_type VARCHAR(40) NOT NULL,
            aggregate_id VARCHAR(64) NOT NULL,
            event_type VARCHAR(60) NOT NULL,
            topic VARCHAR(120) NOT NULL,
            payload JSONB NOT NULL,
            status VARCHAR(10) NOT NULL DEFAULT 'pending',
            retry_count INT NOT NULL DEFAULT 0,
            error_message VARCHAR(500),
            next_retry_at TIMESTAMPTZ,
            processed_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `).Error
}
