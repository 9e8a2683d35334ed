package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/services"
)

type ledgerApplicationService interface {
	Balance(ctx context.Context, parentID int64) (int, error)
	PurchaseHistory(ctx context.Context, parentID int64) ([]models.CreditPurchase, error)
}

type CreditHandler struct {
	service ledgerApplicationService
}

func NewCreditHandler(service *services.LedgerService) *CreditHandler {
	return &CreditHandler{service: service}
}

func (h *CreditHandler) GetBalance(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	balance, err := h.service.Balance(c.Context(), parentID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch credit balance"})
	}

	return c.JSON(fiber.Map{"total_credits": balance})
}

func (h *CreditHandler) ListPurchases(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	purchases, err := h.service.PurchaseHistory(c.Context(), parentID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch purchase history"})
	}

	return c.JSON(fiber.Map{"purchases": purchases})
}
