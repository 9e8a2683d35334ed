package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/services"
)

type sundayApplicationService interface {
	BookSundaySlot(ctx context.Context, parentID, slotID, registrationID int64) (*services.SundayBookingResult, error)
	CancelSundayBooking(ctx context.Context, parentID, bookingID int64, reason *string) (*services.SundayBookingResult, error)
	ListUpcomingSlots(ctx context.Context) ([]models.SundaySlot, error)
	GenerateSlots(ctx context.Context, weeks int) ([]models.SundaySlot, error)
}

type SundayHandler struct {
	service sundayApplicationService
}

func NewSundayHandler(service *services.SundayService) *SundayHandler {
	return &SundayHandler{service: service}
}

func (h *SundayHandler) ListSlots(c *fiber.Ctx) error {
	if _, err := parseActorID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	slots, err := h.service.ListUpcomingSlots(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to list practice slots"})
	}

	return c.JSON(fiber.Map{"slots": slots})
}

type bookSundayRequest struct {
	SlotID         int64 `json:"slot_id"`
	RegistrationID int64 `json:"registration_id"`
}

func (h *SundayHandler) BookSlot(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	var req bookSundayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.service.BookSundaySlot(c.Context(), parentID, req.SlotID, req.RegistrationID)
	if err != nil {
		return mapSundayError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"booking": result.Booking,
		"slot":    result.Slot,
	})
}

func (h *SundayHandler) CancelBooking(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	bookingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req cancelBookingRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	result, err := h.service.CancelSundayBooking(c.Context(), parentID, bookingID, req.Reason)
	if err != nil {
		return mapSundayError(c, err)
	}

	return c.JSON(fiber.Map{
		"booking": result.Booking,
		"slot":    result.Slot,
	})
}

type generateSlotsRequest struct {
	Weeks int `json:"weeks"`
}

// GenerateSlots pre-creates practice slots for upcoming Sundays. Admin
// only; normally driven by the scheduled generator job.
func (h *SundayHandler) GenerateSlots(c *fiber.Ctx) error {
	if _, err := requireRole(c, "admin"); err != nil {
		return err
	}

	var req generateSlotsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	slots, err := h.service.GenerateSlots(c.Context(), req.Weeks)
	if err != nil {
		return mapSundayError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"slots": slots})
}

func mapSundayError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Slot or registration not found"})
	case errors.Is(err, services.ErrSlotPast):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Practice slot date has passed"})
	case errors.Is(err, services.ErrSlotFull):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Practice slot is full"})
	case errors.Is(err, services.ErrDuplicateBooking):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "Player already booked on this slot"})
	case errors.Is(err, services.ErrInvalidProgramType):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Program type is not eligible for Sunday practice"})
	case errors.Is(err, services.ErrIneligibleCategory):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Category is not eligible for this practice slot"})
	case errors.Is(err, services.ErrPaymentRequired):
		return c.Status(fiber.StatusPaymentRequired).
			JSON(fiber.Map{"error": "Registration payment must be verified first"})
	case errors.Is(err, services.ErrAlreadyCancelled),
		errors.Is(err, services.ErrSessionOccurred):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process practice slot request"})
	}
}
