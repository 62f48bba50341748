package health

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var startedAt = time.Now()

// Handlers reports process and dependency health.
type Handlers struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// JSON GET /health - dependency status without auth.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	dbStatus := "down"
	if h.DB != nil {
		if sqlDB, err := h.DB.DB(); err == nil && sqlDB.Ping() == nil {
			dbStatus = "up"
		}
	}

	redisStatus := "disabled"
	if h.Redis != nil {
		redisStatus = "down"
		if h.Redis.Ping(c.Context()).Err() == nil {
			redisStatus = "up"
		}
	}

	return c.JSON(fiber.Map{
		"status":         "ok",
		"database":       dbStatus,
		"redis":          redisStatus,
		"uptime_seconds": int64(time.Since(startedAt).Seconds()),
		"time":           time.Now().UTC(),
	})
}
