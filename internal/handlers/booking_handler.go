package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/repository"
	"github.com/avargas-dev/AcademyBack/internal/services"
)

type bookingApplicationService interface {
	Book(ctx context.Context, parentID int64, input services.BookSessionInput) (*services.BookingResult, error)
	Cancel(ctx context.Context, parentID, bookingID int64, reason *string) (*services.CancelResult, error)
	MarkAttended(ctx context.Context, bookingID int64) (*models.SessionBooking, error)
	MarkNoShow(ctx context.Context, bookingID int64) (*models.SessionBooking, error)
	ListBookings(ctx context.Context, parentID int64, filter repository.BookingListFilter) ([]models.SessionBooking, error)
	GetBooking(ctx context.Context, parentID, bookingID int64) (*models.SessionBooking, error)
}

type BookingHandler struct {
	service bookingApplicationService
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type bookSessionRequest struct {
	RegistrationID int64  `json:"registration_id"`
	SessionType    string `json:"session_type"`
	SessionDate    string `json:"session_date"`
	TimeSlot       string `json:"time_slot"`
}

type cancelBookingRequest struct {
	Reason *string `json:"reason"`
}

func (h *BookingHandler) BookSession(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	var req bookSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	sessionDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.SessionDate))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "session_date must be a YYYY-MM-DD date"})
	}

	result, err := h.service.Book(c.Context(), parentID, services.BookSessionInput{
		RegistrationID: req.RegistrationID,
		SessionType:    req.SessionType,
		SessionDate:    sessionDate,
		TimeSlot:       req.TimeSlot,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"booking":           result.Booking,
		"credits_remaining": result.CreditsRemaining,
	})
}

func (h *BookingHandler) CancelBooking(c *fiber.Ctx) error {
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

	result, err := h.service.Cancel(c.Context(), parentID, bookingID, req.Reason)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{
		"booking":           result.Booking,
		"credits_refunded":  result.CreditsRefunded,
		"credits_remaining": result.CreditsRemaining,
	})
}

func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}

	bookings, err := h.service.ListBookings(c.Context(), parentID, repository.BookingListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: timeframe,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"bookings": bookings})
}

func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	bookingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.GetBooking(c.Context(), parentID, bookingID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

// MarkAttendance handles the administrative attended/no_show transitions.
func (h *BookingHandler) MarkAttendance(c *fiber.Ctx) error {
	if _, err := requireRole(c, "admin"); err != nil {
		return err
	}

	bookingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var booking *models.SessionBooking
	switch strings.TrimSpace(req.Status) {
	case "attended":
		booking, err = h.service.MarkAttended(c.Context(), bookingID)
	case "no_show":
		booking, err = h.service.MarkNoShow(c.Context(), bookingID)
	default:
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "status must be attended or no_show"})
	}
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

// requireRole rejects requests whose token does not carry the role, and
// returns the actor id for the ones that do.
func requireRole(c *fiber.Ctx, role string) (int64, error) {
	actual, ok := c.Locals("role").(string)
	if !ok || actual != role {
		return 0, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	actorID, err := parseActorID(c)
	if err != nil {
		return 0, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	return actorID, nil
}

func mapBookingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	case errors.Is(err, services.ErrSlotFull):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session slot is full"})
	case errors.Is(err, services.ErrDuplicateBooking):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session already booked"})
	case errors.Is(err, services.ErrInsufficientCredits):
		return c.Status(fiber.StatusPaymentRequired).
			JSON(fiber.Map{"error": "Not enough credits to book this session"})
	case errors.Is(err, services.ErrPaymentRequired):
		return c.Status(fiber.StatusPaymentRequired).
			JSON(fiber.Map{"error": "Registration payment has not been verified"})
	case errors.Is(err, services.ErrAlreadyCancelled):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrSessionOccurred):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrIneligibleCategory):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Category is not eligible for this session"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process booking request"})
	}
}
