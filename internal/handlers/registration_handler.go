package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/avargas-dev/AcademyBack/internal/catalog"
	"github.com/avargas-dev/AcademyBack/internal/repository"
)

type RegistrationHandler struct {
	registrations *repository.RegistrationRepository
}

func NewRegistrationHandler(registrations *repository.RegistrationRepository) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

type createRegistrationRequest struct {
	PlayerName  string `json:"player_name"`
	Category    string `json:"category"`
	ProgramType string `json:"program_type"`
	// TrainingDays and TimeSlot apply to private and semi-private
	// programs only; group players inherit the slot for their category.
	TrainingDays []string `json:"training_days"`
	TimeSlot     string   `json:"time_slot"`
}

// CreateRegistration enrolls a player. Each program type has its own
// required fields; nothing is guessed from optional ones.
func (h *RegistrationHandler) CreateRegistration(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	var req createRegistrationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if req.PlayerName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "player_name is required"})
	}

	category := catalog.NormalizeCategory(req.Category)
	if !catalog.ValidCategory(category) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown age category"})
	}
	if !catalog.ValidProgramType(req.ProgramType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown program type"})
	}

	input := repository.CreateRegistrationInput{
		ParentID:    parentID,
		PlayerName:  req.PlayerName,
		Category:    category,
		ProgramType: req.ProgramType,
	}

	switch req.ProgramType {
	case catalog.ProgramGroup:
		slot, ok := catalog.AssignedSlot(category)
		if !ok {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "No group slot configured for this category"})
		}
		input.TrainingDays = catalog.AllowedDays(catalog.ProgramGroup)
		input.TimeSlot = slot
	default:
		if len(req.TrainingDays) == 0 || strings.TrimSpace(req.TimeSlot) == "" {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "training_days and time_slot are required for this program"})
		}
		allowed := catalog.AllowedDays(req.ProgramType)
		for _, day := range req.TrainingDays {
			day = strings.ToLower(strings.TrimSpace(day))
			ok := false
			for _, a := range allowed {
				if a == day {
					ok = true
					break
				}
			}
			if !ok {
				return c.Status(fiber.StatusBadRequest).
					JSON(fiber.Map{"error": "training_days contains a day outside the program availability"})
			}
			input.TrainingDays = append(input.TrainingDays, day)
		}
		input.TimeSlot = strings.TrimSpace(req.TimeSlot)
	}

	registration, err := h.registrations.Create(c.Context(), input)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to create registration"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"registration": registration})
}

func (h *RegistrationHandler) ListRegistrations(c *fiber.Ctx) error {
	parentID, err := requireRole(c, "parent")
	if err != nil {
		return err
	}

	registrations, err := h.registrations.ListByParent(c.Context(), parentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to list registrations"})
	}

	return c.JSON(fiber.Map{"registrations": registrations})
}
