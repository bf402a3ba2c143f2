package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/mrusso/postdeck/internal/queue"
	"github.com/mrusso/postdeck/internal/service"
)

type AccountHandler struct {
	s           service.AccountSyncService
	AsynqClient *asynq.Client
}

func NewAccountHandler(service service.AccountSyncService, asynqClient *asynq.Client) *AccountHandler {
	return &AccountHandler{s: service, AsynqClient: asynqClient}
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.s.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *AccountHandler) RemoveAccount(c *fiber.Ctx) error {
	accountID := c.QueryInt("id", 0)
	if accountID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing account id",
		})
	}

	if err := h.s.Remove(c.Context(), int64(accountID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *AccountHandler) SyncAccounts(c *fiber.Ctx) error {
	if err := queue.Enqueue(h.AsynqClient, queue.TaskTypeAccountSync); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to schedule account sync",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Account sync scheduled",
	})
}
