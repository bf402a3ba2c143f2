package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	config "github.com/mrusso/postdeck/configs"
	"github.com/mrusso/postdeck/internal/scheduler"
)

// CronHandler exposes the pipeline to external cron triggers. The endpoint is
// authenticated by a shared secret instead of a user session.
type CronHandler struct {
	pipeline *scheduler.Pipeline
	db       *sql.DB
	cfg      config.Scheduler
}

func NewCronHandler(pipeline *scheduler.Pipeline, db *sql.DB, cfg config.Scheduler) *CronHandler {
	return &CronHandler{pipeline: pipeline, db: db, cfg: cfg}
}

func (h *CronHandler) RunScheduler(c *fiber.Ctx) error {
	if h.cfg.CronSecret == "" {
		slog.Error("cron secret is not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Cron trigger is not configured",
		})
	}

	token := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	if token == "" || token != h.cfg.CronSecret {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	summary, err := h.pipeline.Run(c.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrLeaseHeld) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Scheduler is already running",
			})
		}
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

func (h *CronHandler) Health(c *fiber.Ctx) error {
	if err := h.db.PingContext(c.Context()); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  "database unreachable",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":           "ok",
		"quota_per_minute": h.cfg.QuotaPerMinute,
		"max_retries":      h.cfg.MaxRetries,
	})
}
