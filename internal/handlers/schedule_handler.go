package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/services"
)

type scheduleApplicationService interface {
	ChangeSchedule(ctx context.Context, parentID int64, input services.ChangeScheduleInput) (*services.ScheduleChangeResult, error)
	History(ctx context.Context, parentID, registrationID int64) ([]models.ScheduleChange, error)
}

type ScheduleHandler struct {
	service scheduleApplicationService
}

func NewScheduleHandler(service *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

type dayMappingRequest struct {
	OriginalDay    string `json:"original_day"`
	ReplacementDay string `json:"replacement_day"`
	Date           string `json:"date"`
}

type changeScheduleRequest struct {
	RegistrationID int64               `json:"registration_id"`
	ChangeType     string              `json:"change_type"`
	NewDays        []string            `json:"new_days"`
	NewTimeSlot    string              `json:"new_time_slot"`
	Mappings       []dayMappingRequest `json:"mappings"`
	SpecificDate   string              `json:"specific_date"`
}

func (h *ScheduleHandler) ChangeSchedule(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	var req changeScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	input := services.ChangeScheduleInput{
		RegistrationID: req.RegistrationID,
		ChangeType:     strings.TrimSpace(req.ChangeType),
		NewDays:        req.NewDays,
		NewTimeSlot:    req.NewTimeSlot,
	}

	for _, m := range req.Mappings {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(m.Date))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "mapping date must be a YYYY-MM-DD date"})
		}
		input.Mappings = append(input.Mappings, services.DayMapping{
			OriginalDay:    m.OriginalDay,
			ReplacementDay: m.ReplacementDay,
			ExceptionDate:  date,
		})
	}

	if specific := strings.TrimSpace(req.SpecificDate); specific != "" {
		date, err := time.Parse("2006-01-02", specific)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "specific_date must be a YYYY-MM-DD date"})
		}
		input.SpecificDate = &date
	}

	result, err := h.service.ChangeSchedule(c.Context(), parentID, input)
	if err != nil {
		return mapScheduleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"schedule_change": result.Change,
		"exceptions":      result.Exceptions,
		"new_schedule": fiber.Map{
			"days":      result.NewDays,
			"time_slot": result.NewTimeSlot,
		},
	})
}

func (h *ScheduleHandler) History(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	registrationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || registrationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid registration id"})
	}

	changes, err := h.service.History(c.Context(), parentID, registrationID)
	if err != nil {
		return mapScheduleError(c, err)
	}

	return c.JSON(fiber.Map{"schedule_changes": changes})
}

func mapScheduleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Registration not found"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "Requested schedule conflicts with another registration"})
	case errors.Is(err, services.ErrInvalidProgramType):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Program type does not support schedule changes"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process schedule change"})
	}
}
