package handlers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/avargas-dev/AcademyBack/internal/services"
)

type paymentEventHandler interface {
	HandleEvent(ctx context.Context, event services.PaymentEvent) error
}

// WebhookHandler receives payment-processor events. The gateway in front
// of this service verifies webhook signatures; only verified payloads are
// forwarded here.
type WebhookHandler struct {
	service paymentEventHandler
}

func NewWebhookHandler(service *services.PaymentService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

type paymentEventRequest struct {
	EventType string  `json:"event_type"`
	EventID   string  `json:"event_id"`
	Amount    float64 `json:"amount_paid"`
	Metadata  struct {
		ParentID       int64  `json:"parent_id"`
		RegistrationID int64  `json:"registration_id"`
		SessionType    string `json:"session_type"`
		PackageType    string `json:"package_type"`
		SessionDate    string `json:"session_date"`
		TimeSlot       string `json:"time_slot"`
	} `json:"metadata"`
}

func (h *WebhookHandler) HandlePaymentEvent(c *fiber.Ctx) error {
	var req paymentEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event payload"})
	}

	event := services.PaymentEvent{
		EventType:      strings.TrimSpace(req.EventType),
		EventID:        strings.TrimSpace(req.EventID),
		ParentID:       req.Metadata.ParentID,
		RegistrationID: req.Metadata.RegistrationID,
		SessionType:    req.Metadata.SessionType,
		PackageType:    strings.TrimSpace(req.Metadata.PackageType),
		TimeSlot:       req.Metadata.TimeSlot,
		AmountPaid:     req.Amount,
	}

	if raw := strings.TrimSpace(req.Metadata.SessionDate); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "metadata.session_date must be a YYYY-MM-DD date"})
		}
		event.SessionDate = &date
	}

	if err := h.service.HandleEvent(c.Context(), event); err != nil {
		if errors.Is(err, services.ErrAlreadyProcessed) {
			// Replay of an event we already applied; acknowledge so the
			// processor stops retrying.
			return c.JSON(fiber.Map{"status": "already_processed"})
		}
		if errors.Is(err, services.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event payload"})
		}
		// A failed event stays unclaimed, so the processor's retry gets
		// another chance.
		log.Printf("payment webhook %s (%s): %v", event.EventID, event.EventType, err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process payment event"})
	}

	return c.JSON(fiber.Map{"status": "processed"})
}
